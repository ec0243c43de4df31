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

// Package embedded starts and supervises throwaway Redis topologies for
// use inside test suites.  A topology is one or more master/replica
// replication groups, optionally watched by a quorum of sentinels.
//
// The package is strictly a process launcher.  It assigns ports, builds
// the argument list for each redis-server or redis-sentinel process,
// spawns the processes, waits for each one to report readiness on its
// standard output, and tears everything down again.  It never speaks the
// Redis wire protocol, and it performs no restart-on-crash supervision;
// tests that need a client should dial the ports it reports.
//
// The simplest use is a standalone server:
//
//	server, err := embedded.NewRedisServer(6379)
//	if err != nil { ... }
//	if err = server.Start(); err != nil { ... }
//	defer server.Stop()
//
// Larger topologies are declared through a ClusterBuilder and come back
// as a single RedisCluster handle that starts and stops every process in
// the topology as a unit.
package embedded
