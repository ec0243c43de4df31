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
	"os"
	"time"
)

// RedisSentinel is one monitoring sidecar.  A sentinel watches every
// replication group in its topology and shares the cluster-wide quorum
// size; it does not replicate data itself.
type RedisSentinel struct {
	*instance

	confFile string
}

// ConfFile returns the path of the generated sentinel configuration.
// The file is left in place across Stop so the instance can be started
// again; it lives in the OS temp directory.
func (s *RedisSentinel) ConfFile() string {
	return s.confFile
}

// SentinelBuilder assembles one sentinel.  Group wiring is added with
// MasterName/MasterPort/QuorumSize followed by
// AddDefaultReplicationGroup, once per group, mirroring the order the
// cluster builder feeds it.
type SentinelBuilder struct {
	executable string
	port       int
	bind       string
	name       string
	out        io.Writer
	err        io.Writer
	grace      time.Duration

	// Pending group settings, latched by AddDefaultReplicationGroup.
	masterName      string
	masterPort      int
	quorum          int
	downAfter       int
	failoverTimeout int
	parallelSyncs   int

	groups []MonitorGroup
}

func NewSentinelBuilder() *SentinelBuilder {
	return &SentinelBuilder{
		port:   26379,
		quorum: 1,
	}
}

// Executable overrides binary resolution with an explicit path.
func (b *SentinelBuilder) Executable(path string) *SentinelBuilder {
	b.executable = path
	return b
}

func (b *SentinelBuilder) Port(port int) *SentinelBuilder {
	b.port = port
	return b
}

func (b *SentinelBuilder) Bind(addr string) *SentinelBuilder {
	b.bind = addr
	return b
}

func (b *SentinelBuilder) Name(name string) *SentinelBuilder {
	b.name = name
	return b
}

func (b *SentinelBuilder) MasterName(name string) *SentinelBuilder {
	b.masterName = name
	return b
}

func (b *SentinelBuilder) MasterPort(port int) *SentinelBuilder {
	b.masterPort = port
	return b
}

func (b *SentinelBuilder) QuorumSize(quorum int) *SentinelBuilder {
	b.quorum = quorum
	return b
}

func (b *SentinelBuilder) DownAfterMillis(ms int) *SentinelBuilder {
	b.downAfter = ms
	return b
}

func (b *SentinelBuilder) FailoverTimeoutMillis(ms int) *SentinelBuilder {
	b.failoverTimeout = ms
	return b
}

func (b *SentinelBuilder) ParallelSyncs(n int) *SentinelBuilder {
	b.parallelSyncs = n
	return b
}

// AddDefaultReplicationGroup latches the pending master name, master
// port and quorum as one monitored group, with default discovery
// settings for anything not set explicitly.
func (b *SentinelBuilder) AddDefaultReplicationGroup() *SentinelBuilder {
	b.groups = append(b.groups, MonitorGroup{
		Name:                  b.masterName,
		MasterPort:            b.masterPort,
		Quorum:                b.quorum,
		DownAfterMillis:       b.downAfter,
		FailoverTimeoutMillis: b.failoverTimeout,
		ParallelSyncs:         b.parallelSyncs,
	})
	return b
}

func (b *SentinelBuilder) OutTo(w io.Writer) *SentinelBuilder {
	b.out = w
	return b
}

func (b *SentinelBuilder) ErrTo(w io.Writer) *SentinelBuilder {
	b.err = w
	return b
}

func (b *SentinelBuilder) StopGrace(d time.Duration) *SentinelBuilder {
	b.grace = d
	return b
}

// Build writes the generated sentinel configuration to a temp file and
// assembles the instance around it.  Sentinels rewrite their config at
// runtime, so every instance must get a private file.
func (b *SentinelBuilder) Build() (*RedisSentinel, error) {
	executable := b.executable
	if executable == "" {
		var e error
		if executable, e = defaultSentinelExecutable(); e != nil {
			return nil, e
		}
	}
	name := b.name
	if name == "" {
		name = fmt.Sprintf("redis-sentinel:%d", b.port)
	}

	conf, e := os.CreateTemp("", "embedded-redis-sentinel-*.conf")
	if e != nil {
		return nil, fmt.Errorf("%w: cannot write sentinel config: %v",
			ErrLaunchFailed, e)
	}
	if _, e = conf.WriteString(sentinelConf(b.port, b.bind, b.groups)); e != nil {
		conf.Close()
		os.Remove(conf.Name())
		return nil, fmt.Errorf("%w: cannot write sentinel config: %v",
			ErrLaunchFailed, e)
	}
	if e = conf.Close(); e != nil {
		os.Remove(conf.Name())
		return nil, fmt.Errorf("%w: cannot write sentinel config: %v",
			ErrLaunchFailed, e)
	}

	args := []string{executable, conf.Name(), "--sentinel"}
	inst, e := newInstance(name, args, b.port, sentinelReadyPattern)
	if e != nil {
		os.Remove(conf.Name())
		return nil, e
	}
	if b.out != nil {
		inst.OutTo(b.out)
	}
	if b.err != nil {
		inst.ErrTo(b.err)
	}
	inst.StopGrace(b.grace)
	return &RedisSentinel{instance: inst, confFile: conf.Name()}, nil
}
