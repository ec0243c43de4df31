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
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Readiness patterns, matched against whole stdout lines.  These are
// the messages redis-server prints once it is serving (and, in sentinel
// mode, once the sentinel is up), stable across the versions this
// package is used with.
const (
	serverReadyPattern   = `.*Ready to accept connections.*`
	sentinelReadyPattern = `.*(Sentinel ID starts|Sentinel runs in sentinel mode).*`
)

// Environment overrides for locating the binaries.  Without them the
// executables are resolved from PATH.  Packaging or bundling binaries
// is deliberately outside this package.
const (
	ServerExecutableEnv   = "REDIS_SERVER_EXECUTABLE"
	SentinelExecutableEnv = "REDIS_SENTINEL_EXECUTABLE"
)

func defaultServerExecutable() (string, error) {
	if path := os.Getenv(ServerExecutableEnv); path != "" {
		return path, nil
	}
	if path, e := exec.LookPath("redis-server"); e == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: set %s or put redis-server on PATH",
		ErrNoExecutable, ServerExecutableEnv)
}

func defaultSentinelExecutable() (string, error) {
	if path := os.Getenv(SentinelExecutableEnv); path != "" {
		return path, nil
	}
	// Sentinels run as "redis-server <conf> --sentinel", so the
	// server binary is the normal answer.
	return defaultServerExecutable()
}

// ServerRole is the tagged role a data node plays.  The role is the only
// thing that distinguishes a master's argument vector from a replica's.
type ServerRole interface {
	roleArgs() []string
}

// Standalone is a data node with no replication wiring: a group master,
// or a lone test server.
type Standalone struct{}

func (Standalone) roleArgs() []string {
	return nil
}

// ReplicaOf makes a data node replicate from the given master.
type ReplicaOf struct {
	Host string
	Port int
}

func (r ReplicaOf) roleArgs() []string {
	return []string{"--replicaof", r.Host, strconv.Itoa(r.Port)}
}

// serverArgs emits the full argument vector for one data node.  This is
// the only place server flag syntax is known; the lifecycle code treats
// the result as an opaque vector.
func serverArgs(executable string, port int, bind string, role ServerRole, settings []string) []string {
	args := []string{
		executable,
		"--port", strconv.Itoa(port),
	}
	if bind != "" {
		args = append(args, "--bind", bind)
	}
	args = append(args, role.roleArgs()...)
	for _, s := range settings {
		args = append(args, strings.Fields(s)...)
	}
	return args
}

// MonitorGroup is one replication group as a sentinel sees it: what to
// watch, and the quorum needed to agree the master is down.
type MonitorGroup struct {
	Name       string
	MasterPort int
	Quorum     int

	// Replica-discovery defaults, written per group.
	DownAfterMillis       int
	FailoverTimeoutMillis int
	ParallelSyncs         int
}

const (
	defaultDownAfterMillis       = 60000
	defaultFailoverTimeoutMillis = 180000
	defaultParallelSyncs         = 1
)

// sentinelConf emits the configuration file body for one sentinel.
// Sentinels will not start from command-line flags alone; they insist
// on a config file they can rewrite.
func sentinelConf(port int, bind string, groups []MonitorGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "port %d\n", port)
	if bind != "" {
		fmt.Fprintf(&b, "bind %s\n", bind)
	}
	for _, g := range groups {
		down := g.DownAfterMillis
		if down == 0 {
			down = defaultDownAfterMillis
		}
		failover := g.FailoverTimeoutMillis
		if failover == 0 {
			failover = defaultFailoverTimeoutMillis
		}
		syncs := g.ParallelSyncs
		if syncs == 0 {
			syncs = defaultParallelSyncs
		}
		fmt.Fprintf(&b, "sentinel monitor %s 127.0.0.1 %d %d\n",
			g.Name, g.MasterPort, g.Quorum)
		fmt.Fprintf(&b, "sentinel down-after-milliseconds %s %d\n",
			g.Name, down)
		fmt.Fprintf(&b, "sentinel failover-timeout %s %d\n",
			g.Name, failover)
		fmt.Fprintf(&b, "sentinel parallel-syncs %s %d\n",
			g.Name, syncs)
	}
	return b.String()
}
