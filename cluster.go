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
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// replicationGroup is one master plus its replicas, with every port
// assigned eagerly at creation so replicas can be wired to the master's
// port before any process exists.
type replicationGroup struct {
	name         string
	masterPort   int
	replicaPorts []int
}

func newReplicationGroup(name string, replicaCount int, provider PortProvider) (*replicationGroup, error) {
	g := &replicationGroup{name: name}
	var e error
	if g.masterPort, e = provider.Next(); e != nil {
		return nil, e
	}
	// Draw replica ports in request order; the first port after the
	// master is the first replica, which keeps logs correlatable.
	for i := 0; i < replicaCount; i++ {
		port, e := provider.Next()
		if e != nil {
			return nil, e
		}
		g.replicaPorts = append(g.replicaPorts, port)
	}
	return g, nil
}

// RedisCluster aggregates every process of a topology behind one
// start/stop pair.  It owns its instances; the builder that produced it
// retains nothing.
type RedisCluster struct {
	sentinels []Redis
	servers   []Redis
	log       *Log
	logger    *log.Logger
}

// Start starts every data node, masters and replicas first, then every
// sentinel, so the sentinels find the topology they are told to watch.
// The first failure is propagated as-is; already-started instances are
// left running, and the caller should Stop the cluster to clean up.
func (c *RedisCluster) Start() error {
	for _, s := range c.servers {
		if e := s.Start(); e != nil {
			return fmt.Errorf("start %s: %w", s.Name(), e)
		}
	}
	for _, s := range c.sentinels {
		if e := s.Start(); e != nil {
			return fmt.Errorf("start %s: %w", s.Name(), e)
		}
	}
	c.logger.Printf("Cluster up: %d data nodes, %d sentinels",
		len(c.servers), len(c.sentinels))
	return nil
}

// Stop stops every owned instance, sentinels first.  The sweep is best
// effort: a failing instance does not stop the teardown, and all
// failures are aggregated into the returned error.  Instances that are
// not active are skipped without error.
func (c *RedisCluster) Stop() error {
	var errs []error
	for _, s := range c.sentinels {
		if e := s.Stop(); e != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", s.Name(), e))
		}
	}
	for _, s := range c.servers {
		if e := s.Stop(); e != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", s.Name(), e))
		}
	}
	if e := errors.Join(errs...); e != nil {
		c.logger.Printf("Cluster teardown reported errors: %v", e)
		return e
	}
	c.logger.Printf("Cluster down")
	return nil
}

// Ports returns the ports of every owned instance, sentinels first.
func (c *RedisCluster) Ports() []int {
	var ports []int
	for _, s := range c.sentinels {
		ports = append(ports, s.Ports()...)
	}
	for _, s := range c.servers {
		ports = append(ports, s.Ports()...)
	}
	return ports
}

// Sentinels returns the monitoring instances.
func (c *RedisCluster) Sentinels() []Redis {
	return append([]Redis{}, c.sentinels...)
}

// Servers returns the data node instances, masters before their
// replicas, in group registration order.
func (c *RedisCluster) Servers() []Redis {
	return append([]Redis{}, c.servers...)
}

// Instances returns every owned instance, sentinels first.
func (c *RedisCluster) Instances() []Redis {
	rv := make([]Redis, 0, len(c.sentinels)+len(c.servers))
	rv = append(rv, c.sentinels...)
	rv = append(rv, c.servers...)
	return rv
}

// Find returns the instance with the given name, or nil.
func (c *RedisCluster) Find(name string) Redis {
	for _, s := range c.Instances() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// LogRecords returns the cluster's own event log (starts, stops).
func (c *RedisCluster) LogRecords() []LogRecord {
	return c.log.Records()
}

// ClusterBuilder accumulates a declarative topology -- replication
// groups plus a sentinel quorum -- and expands it into a RedisCluster.
// All chained calls return the builder; errors during chaining (port
// provider exhaustion) are latched and reported by Build.
type ClusterBuilder struct {
	sentinelBuilder      func() *SentinelBuilder
	serverBuilder        func() *ServerBuilder
	sentinelCount        int
	quorumSize           int
	sentinelPortProvider PortProvider
	serverPortProvider   PortProvider
	groups               []*replicationGroup
	metrics              MetricsCollector
	logTo                io.Writer
	grace                time.Duration
	err                  error
}

func NewClusterBuilder() *ClusterBuilder {
	return &ClusterBuilder{
		sentinelBuilder:      NewSentinelBuilder,
		serverBuilder:        NewServerBuilder,
		sentinelCount:        1,
		quorumSize:           1,
		sentinelPortProvider: NewSequencePortProvider(26379),
		serverPortProvider:   NewSequencePortProvider(6379),
	}
}

// WithSentinelBuilder registers a factory producing the builder used
// for each sentinel.  A factory, not an instance: every sentinel gets
// an independently configured builder.
func (b *ClusterBuilder) WithSentinelBuilder(factory func() *SentinelBuilder) *ClusterBuilder {
	b.sentinelBuilder = factory
	return b
}

// WithServerBuilder registers a factory producing the builder used for
// each data node.
func (b *ClusterBuilder) WithServerBuilder(factory func() *ServerBuilder) *ClusterBuilder {
	b.serverBuilder = factory
	return b
}

// SentinelPorts fixes the sentinel ports to the given list, and the
// sentinel count to its length.
func (b *ClusterBuilder) SentinelPorts(ports []int) *ClusterBuilder {
	b.sentinelPortProvider = NewPredefinedPortProvider(ports)
	b.sentinelCount = len(ports)
	return b
}

// ServerPorts fixes the data node ports to the given list, consumed in
// group registration order, master first within each group.
func (b *ClusterBuilder) ServerPorts(ports []int) *ClusterBuilder {
	b.serverPortProvider = NewPredefinedPortProvider(ports)
	return b
}

// EphemeralSentinels lets the OS choose each sentinel port.
func (b *ClusterBuilder) EphemeralSentinels() *ClusterBuilder {
	b.sentinelPortProvider = NewEphemeralPortProvider()
	return b
}

// EphemeralServers lets the OS choose each data node port.
func (b *ClusterBuilder) EphemeralServers() *ClusterBuilder {
	b.serverPortProvider = NewEphemeralPortProvider()
	return b
}

// Ephemeral lets the OS choose every port in the topology.
func (b *ClusterBuilder) Ephemeral() *ClusterBuilder {
	b.EphemeralSentinels()
	b.EphemeralServers()
	return b
}

func (b *ClusterBuilder) SentinelCount(count int) *ClusterBuilder {
	b.sentinelCount = count
	return b
}

func (b *ClusterBuilder) SentinelStartingPort(port int) *ClusterBuilder {
	b.sentinelPortProvider = NewSequencePortProvider(port)
	return b
}

// QuorumSize sets the quorum shared by every sentinel for every group.
func (b *ClusterBuilder) QuorumSize(quorum int) *ClusterBuilder {
	b.quorumSize = quorum
	return b
}

// ReplicationGroup registers a group with the given master name and
// replica count.  Ports are drawn immediately from the current server
// port provider, not at Build time.
func (b *ClusterBuilder) ReplicationGroup(name string, replicaCount int) *ClusterBuilder {
	if b.err != nil {
		return b
	}
	g, e := newReplicationGroup(name, replicaCount, b.serverPortProvider)
	if e != nil {
		b.err = fmt.Errorf("replication group %q: %w", name, e)
		return b
	}
	b.groups = append(b.groups, g)
	return b
}

// Metrics installs a collector on every instance the builder produces.
func (b *ClusterBuilder) Metrics(m MetricsCollector) *ClusterBuilder {
	b.metrics = m
	return b
}

// LogTo directs cluster and instance lifecycle messages to w instead of
// the orchestrator's stderr.  Process output is not affected; that goes
// through the per-instance sinks.
func (b *ClusterBuilder) LogTo(w io.Writer) *ClusterBuilder {
	b.logTo = w
	return b
}

// StopGrace bounds every instance's post-SIGTERM wait.
func (b *ClusterBuilder) StopGrace(d time.Duration) *ClusterBuilder {
	b.grace = d
	return b
}

// Build expands the accumulated topology into a RedisCluster.  Masters
// carry no role arguments; each replica replicates from localhost at
// its group's master port; each sentinel is configured with every
// group's name, master port and the shared quorum size.  No cross-field
// validation is performed: a topology with no groups still yields the
// configured sentinels.
func (b *ClusterBuilder) Build() (*RedisCluster, error) {
	if b.err != nil {
		return nil, b.err
	}

	c := &RedisCluster{log: NewLog()}
	logTo := b.logTo
	if logTo == nil {
		logTo = os.Stderr
	}
	c.logger = log.New(newFanSink(c.log, logTo), "", 0)

	servers, e := b.buildServers()
	if e != nil {
		return nil, e
	}
	sentinels, e := b.buildSentinels()
	if e != nil {
		return nil, e
	}
	for _, s := range servers {
		b.outfit(s.instance, c)
		c.servers = append(c.servers, s)
	}
	for _, s := range sentinels {
		b.outfit(s.instance, c)
		c.sentinels = append(c.sentinels, s)
	}
	return c, nil
}

func (b *ClusterBuilder) outfit(inst *instance, c *RedisCluster) {
	inst.setLogger(c.logger)
	inst.setMetrics(b.metrics)
	if b.grace > 0 {
		inst.StopGrace(b.grace)
	}
}

func (b *ClusterBuilder) buildServers() ([]*RedisServer, error) {
	var servers []*RedisServer
	for _, g := range b.groups {
		master, e := b.serverBuilder().
			Port(g.masterPort).
			Name(fmt.Sprintf("master:%s", g.name)).
			Build()
		if e != nil {
			return nil, e
		}
		servers = append(servers, master)
		for i, port := range g.replicaPorts {
			replica, e := b.serverBuilder().
				Port(port).
				ReplicaOf("localhost", g.masterPort).
				Name(fmt.Sprintf("replica:%s:%d", g.name, i)).
				Build()
			if e != nil {
				return nil, e
			}
			servers = append(servers, replica)
		}
	}
	return servers, nil
}

func (b *ClusterBuilder) buildSentinels() ([]*RedisSentinel, error) {
	var sentinels []*RedisSentinel
	for i := 0; i < b.sentinelCount; i++ {
		port, e := b.sentinelPortProvider.Next()
		if e != nil {
			return nil, fmt.Errorf("sentinel %d: %w", i, e)
		}
		sb := b.sentinelBuilder().
			Port(port).
			Name(fmt.Sprintf("sentinel:%d", port))
		for _, g := range b.groups {
			sb.MasterName(g.name)
			sb.MasterPort(g.masterPort)
			sb.QuorumSize(b.quorumSize)
			sb.AddDefaultReplicationGroup()
		}
		sentinel, e := sb.Build()
		if e != nil {
			return nil, e
		}
		sentinels = append(sentinels, sentinel)
	}
	return sentinels, nil
}
