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

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package embedded

import (
	"io"
	"log"
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// testClusterBuilder wires the stub executable into both builder
// factories, so no real redis binaries are needed.
func testClusterBuilder() *ClusterBuilder {
	return NewClusterBuilder().
		WithServerBuilder(func() *ServerBuilder {
			return NewServerBuilder().Executable(testScript)
		}).
		WithSentinelBuilder(func() *SentinelBuilder {
			return NewSentinelBuilder().Executable(testScript)
		}).
		LogTo(io.Discard)
}

func cleanupConfFiles(c *RedisCluster) {
	for _, s := range c.sentinels {
		os.Remove(s.(*RedisSentinel).ConfFile())
	}
}

func TestReplicationGroupPorts(t *testing.T) {
	Convey("A group draws its master port first, then the replicas", t, func() {
		p := NewSequencePortProvider(7000)
		g, e := newReplicationGroup("group1", 3, p)
		So(e, ShouldBeNil)
		So(g.masterPort, ShouldEqual, 7000)
		So(g.replicaPorts, ShouldResemble, []int{7001, 7002, 7003})
	})

	Convey("Zero replicas leaves the replica list empty", t, func() {
		g, e := newReplicationGroup("solo", 0, NewSequencePortProvider(7000))
		So(e, ShouldBeNil)
		So(g.masterPort, ShouldEqual, 7000)
		So(len(g.replicaPorts), ShouldEqual, 0)
	})
}

func TestClusterTopology(t *testing.T) {
	Convey("Build expands groups into masters, replicas and sentinels", t, func() {
		c, e := testClusterBuilder().
			ReplicationGroup("group1", 2).
			SentinelCount(3).
			QuorumSize(2).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		So(len(c.servers), ShouldEqual, 3)
		So(len(c.sentinels), ShouldEqual, 3)

		master := c.servers[0].(*RedisServer)
		So(master.Name(), ShouldEqual, "master:group1")
		So(master.Ports(), ShouldResemble, []int{6379})
		So(strings.Join(master.args, " "),
			ShouldNotContainSubstring, "--replicaof")

		Convey("Each replica replicates from the master port", func() {
			for i, port := range []int{6380, 6381} {
				replica := c.servers[i+1].(*RedisServer)
				So(replica.Ports(), ShouldResemble, []int{port})
				So(strings.Join(replica.args, " "),
					ShouldContainSubstring,
					"--replicaof localhost 6379")
			}
		})

		Convey("Each sentinel monitors the group at the quorum", func() {
			for i, port := range []int{26379, 26380, 26381} {
				s := c.sentinels[i].(*RedisSentinel)
				So(s.Ports(), ShouldResemble, []int{port})
				conf, e := os.ReadFile(s.ConfFile())
				So(e, ShouldBeNil)
				So(string(conf), ShouldContainSubstring,
					"sentinel monitor group1 127.0.0.1 6379 2")
				So(string(conf), ShouldContainSubstring,
					"sentinel down-after-milliseconds group1 60000")
			}
		})

		Convey("Ports returns the union", func() {
			So(c.Ports(), ShouldResemble,
				[]int{26379, 26380, 26381, 6379, 6380, 6381})
		})
	})
}

func TestClusterTopologyMultiGroup(t *testing.T) {
	Convey("Sentinels are wired with every registered group", t, func() {
		c, e := testClusterBuilder().
			ReplicationGroup("one", 1).
			ReplicationGroup("two", 0).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		So(len(c.servers), ShouldEqual, 3)
		So(len(c.sentinels), ShouldEqual, 1)

		conf, e := os.ReadFile(c.sentinels[0].(*RedisSentinel).ConfFile())
		So(e, ShouldBeNil)
		So(string(conf), ShouldContainSubstring,
			"sentinel monitor one 127.0.0.1 6379 1")
		So(string(conf), ShouldContainSubstring,
			"sentinel monitor two 127.0.0.1 6381 1")
	})
}

func TestClusterNoGroups(t *testing.T) {
	Convey("A topology without groups still yields sentinels", t, func() {
		c, e := testClusterBuilder().
			SentinelCount(2).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		So(len(c.servers), ShouldEqual, 0)
		So(len(c.sentinels), ShouldEqual, 2)
	})
}

func TestClusterPredefinedPorts(t *testing.T) {
	Convey("Predefined ports are consumed in registration order", t, func() {
		c, e := testClusterBuilder().
			ServerPorts([]int{7100, 7101}).
			SentinelPorts([]int{27100, 27101}).
			ReplicationGroup("group1", 1).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		So(len(c.sentinels), ShouldEqual, 2)
		So(c.Ports(), ShouldResemble, []int{27100, 27101, 7100, 7101})
	})

	Convey("Exhausting the server ports is reported by Build", t, func() {
		_, e := testClusterBuilder().
			ServerPorts([]int{7100}).
			ReplicationGroup("group1", 2).
			Build()
		So(e, ShouldNotBeNil)
		So(e, ShouldWrap, ErrPortsExhausted)
	})
}

func TestClusterEphemeralPorts(t *testing.T) {
	Convey("Ephemeral topologies get distinct OS-assigned ports", t, func() {
		c, e := testClusterBuilder().
			Ephemeral().
			ReplicationGroup("group1", 1).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		ports := c.Ports()
		So(len(ports), ShouldEqual, 3)
		for _, p := range ports {
			So(p, ShouldBeGreaterThan, 0)
		}
	})
}

func TestClusterStartStop(t *testing.T) {
	Convey("A cluster starts and stops as a unit", t, func() {
		c, e := testClusterBuilder().
			Ephemeral().
			ReplicationGroup("group1", 1).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		So(c.Start(), ShouldBeNil)
		for _, s := range c.Instances() {
			So(s.Active(), ShouldBeTrue)
		}

		So(c.Stop(), ShouldBeNil)
		for _, s := range c.Instances() {
			So(s.Active(), ShouldBeFalse)
		}

		Convey("And the event log recorded the lifecycle", func() {
			text := c.log.Text()
			So(text, ShouldContainSubstring, "Cluster up")
			So(text, ShouldContainSubstring, "Cluster down")
		})
	})
}

func TestClusterStopMixed(t *testing.T) {
	Convey("Stop sweeps active and inactive instances alike", t, func() {
		c, e := testClusterBuilder().
			Ephemeral().
			ReplicationGroup("group1", 1).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		// Start only the master; the replica and sentinel stay idle.
		So(c.servers[0].Start(), ShouldBeNil)

		So(c.Stop(), ShouldBeNil)
		for _, s := range c.Instances() {
			So(s.Active(), ShouldBeFalse)
		}
	})
}

// fakeRedis records lifecycle calls and fails on demand, for driving
// the teardown sweep without real processes.
type fakeRedis struct {
	name    string
	stopErr error
	stopped bool
}

func (f *fakeRedis) Start() error            { return nil }
func (f *fakeRedis) Stop() error             { f.stopped = true; return f.stopErr }
func (f *fakeRedis) Active() bool            { return false }
func (f *fakeRedis) Name() string            { return f.name }
func (f *fakeRedis) Ports() []int            { return nil }
func (f *fakeRedis) LogRecords() []LogRecord { return nil }

func TestClusterStopAggregatesFailures(t *testing.T) {
	Convey("A failing instance does not stop the teardown sweep", t, func() {
		bad := &fakeRedis{name: "bad", stopErr: ErrShutdownFailed}
		good := &fakeRedis{name: "good"}
		c := &RedisCluster{
			sentinels: []Redis{bad},
			servers:   []Redis{good},
			log:       NewLog(),
		}
		c.logger = log.New(newFanSink(c.log, io.Discard), "", 0)

		e := c.Stop()
		So(e, ShouldNotBeNil)
		So(e, ShouldWrap, ErrShutdownFailed)
		So(bad.stopped, ShouldBeTrue)
		So(good.stopped, ShouldBeTrue)

		Convey("And the event log reports the degraded teardown", func() {
			text := c.log.Text()
			So(text, ShouldContainSubstring,
				"teardown reported errors")
			So(text, ShouldNotContainSubstring, "Cluster down")
		})
	})
}

func TestClusterFind(t *testing.T) {
	Convey("Find resolves instances by name", t, func() {
		c, e := testClusterBuilder().
			ReplicationGroup("group1", 1).
			Build()
		So(e, ShouldBeNil)
		defer cleanupConfFiles(c)

		So(c.Find("master:group1"), ShouldNotBeNil)
		So(c.Find("replica:group1:0"), ShouldNotBeNil)
		So(c.Find("sentinel:26379"), ShouldNotBeNil)
		So(c.Find("nonesuch"), ShouldBeNil)
	})
}
