// Copyright 2025 The Embedded Redis Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedded

import (
	"fmt"
	"io"
	"time"
)

// RedisServer is a single redis-server data node: a group master, a
// replica, or a standalone test server.
type RedisServer struct {
	*instance
}

// NewRedisServer returns a standalone server on the given port, using
// the default executable resolution.  Use a ServerBuilder for anything
// more elaborate.
func NewRedisServer(port int) (*RedisServer, error) {
	return NewServerBuilder().Port(port).Build()
}

// ServerBuilder assembles one data node.  Builders are single-use and
// not safe for concurrent use; the cluster builder creates a fresh one
// per instance through its factory so that configured processes never
// alias state.
type ServerBuilder struct {
	executable string
	port       int
	bind       string
	role       ServerRole
	settings   []string
	name       string
	out        io.Writer
	err        io.Writer
	grace      time.Duration
}

func NewServerBuilder() *ServerBuilder {
	return &ServerBuilder{
		port: 6379,
		role: Standalone{},
	}
}

// Executable overrides binary resolution with an explicit path.
func (b *ServerBuilder) Executable(path string) *ServerBuilder {
	b.executable = path
	return b
}

func (b *ServerBuilder) Port(port int) *ServerBuilder {
	b.port = port
	return b
}

// Bind sets the listen address (redis defaults to all interfaces).
func (b *ServerBuilder) Bind(addr string) *ServerBuilder {
	b.bind = addr
	return b
}

// ReplicaOf wires this node as a replica of the given master.
func (b *ServerBuilder) ReplicaOf(host string, port int) *ServerBuilder {
	b.role = ReplicaOf{Host: host, Port: port}
	return b
}

// Setting appends a raw redis configuration directive, e.g.
// "maxmemory 128mb".  It is split on whitespace and passed as
// command-line flags.
func (b *ServerBuilder) Setting(s string) *ServerBuilder {
	b.settings = append(b.settings, s)
	return b
}

// Name overrides the generated instance name.
func (b *ServerBuilder) Name(name string) *ServerBuilder {
	b.name = name
	return b
}

func (b *ServerBuilder) OutTo(w io.Writer) *ServerBuilder {
	b.out = w
	return b
}

func (b *ServerBuilder) ErrTo(w io.Writer) *ServerBuilder {
	b.err = w
	return b
}

// StopGrace bounds the post-SIGTERM wait; zero waits forever.
func (b *ServerBuilder) StopGrace(d time.Duration) *ServerBuilder {
	b.grace = d
	return b
}

func (b *ServerBuilder) Build() (*RedisServer, error) {
	executable := b.executable
	if executable == "" {
		var e error
		if executable, e = defaultServerExecutable(); e != nil {
			return nil, e
		}
	}
	name := b.name
	if name == "" {
		name = fmt.Sprintf("redis-server:%d", b.port)
	}
	args := serverArgs(executable, b.port, b.bind, b.role, b.settings)
	inst, e := newInstance(name, args, b.port, serverReadyPattern)
	if e != nil {
		return nil, e
	}
	if b.out != nil {
		inst.OutTo(b.out)
	}
	if b.err != nil {
		inst.ErrTo(b.err)
	}
	inst.StopGrace(b.grace)
	return &RedisServer{instance: inst}, nil
}
