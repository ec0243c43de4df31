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
	"net"
)

// PortProvider hands out TCP port numbers for topology members.  A
// provider is owned by a single ClusterBuilder and is consumed during
// topology expansion; implementations need not be safe for concurrent
// use.  Providers only return numbers -- nothing is reserved, so a port
// taken by an unrelated process between expansion and Start is a caller
// problem.
type PortProvider interface {
	// Next returns the next port.  Sequence providers never fail,
	// predefined providers fail with ErrPortsExhausted when the list
	// runs out, and ephemeral providers fail with ErrPortUnavailable
	// if the OS refuses to bind a probe socket.
	Next() (int, error)
}

// SequencePortProvider counts upward from a starting port.
type SequencePortProvider struct {
	next int
}

func NewSequencePortProvider(start int) *SequencePortProvider {
	return &SequencePortProvider{next: start}
}

func (p *SequencePortProvider) Next() (int, error) {
	rv := p.next
	p.next++
	return rv, nil
}

// PredefinedPortProvider replays a fixed list of ports in order.
type PredefinedPortProvider struct {
	ports []int
	index int
}

func NewPredefinedPortProvider(ports []int) *PredefinedPortProvider {
	// Copy, so that later mutation of the caller's slice cannot
	// change the topology.
	saved := make([]int, len(ports))
	copy(saved, ports)
	return &PredefinedPortProvider{ports: saved}
}

func (p *PredefinedPortProvider) Next() (int, error) {
	if p.index >= len(p.ports) {
		return 0, ErrPortsExhausted
	}
	rv := p.ports[p.index]
	p.index++
	return rv, nil
}

// EphemeralPortProvider asks the OS for a free port by binding to port
// zero and reading back the assignment.  The probe socket is closed
// immediately, so the port is free but not reserved.
type EphemeralPortProvider struct{}

func NewEphemeralPortProvider() *EphemeralPortProvider {
	return &EphemeralPortProvider{}
}

func (p *EphemeralPortProvider) Next() (int, error) {
	l, e := net.Listen("tcp", "127.0.0.1:0")
	if e != nil {
		return 0, fmt.Errorf("%w: %v", ErrPortUnavailable, e)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
