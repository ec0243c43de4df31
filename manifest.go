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

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ClusterManifest is the YAML form of a topology, consumed by the
// redisclusterd daemon and available to library users who prefer a file
// over chained builder calls.
//
//	name: integration
//	sentinelCount: 3
//	quorumSize: 2
//	groups:
//	  - name: group1
//	    replicas: 2
//	ephemeral: true
type ClusterManifest struct {
	Name               string          `yaml:"name"`
	ServerExecutable   string          `yaml:"serverExecutable"`
	SentinelExecutable string          `yaml:"sentinelExecutable"`
	SentinelCount      *int            `yaml:"sentinelCount" validate:"omitempty,gte=0"`
	QuorumSize         int             `yaml:"quorumSize" validate:"gte=0"`
	SentinelPorts      []int           `yaml:"sentinelPorts" validate:"dive,gte=1,lte=65535"`
	ServerPorts        []int           `yaml:"serverPorts" validate:"dive,gte=1,lte=65535"`
	Ephemeral          bool            `yaml:"ephemeral"`
	StopGraceSeconds   int             `yaml:"stopGraceSeconds" validate:"gte=0"`
	Groups             []GroupManifest `yaml:"groups" validate:"dive"`
}

// GroupManifest is one replication group in a manifest.
type GroupManifest struct {
	Name     string `yaml:"name" validate:"required"`
	Replicas int    `yaml:"replicas" validate:"gte=0"`
}

// LoadManifest parses and validates a YAML manifest.
func LoadManifest(r io.Reader) (*ClusterManifest, error) {
	m := &ClusterManifest{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if e := dec.Decode(m); e != nil {
		return nil, fmt.Errorf("bad cluster manifest: %v", e)
	}
	if e := validator.New().Struct(m); e != nil {
		return nil, fmt.Errorf("bad cluster manifest: %v", e)
	}
	return m, nil
}

// LoadManifestFile is LoadManifest on a file path.
func LoadManifestFile(path string) (*ClusterManifest, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return LoadManifest(f)
}

// Builder converts the manifest into a ClusterBuilder.  Fields left at
// their zero value keep the builder defaults (one sentinel, quorum one,
// sequence ports).
func (m *ClusterManifest) Builder() *ClusterBuilder {
	b := NewClusterBuilder()
	if exe := m.ServerExecutable; exe != "" {
		b.WithServerBuilder(func() *ServerBuilder {
			return NewServerBuilder().Executable(exe)
		})
	}
	if exe := m.SentinelExecutable; exe != "" {
		b.WithSentinelBuilder(func() *SentinelBuilder {
			return NewSentinelBuilder().Executable(exe)
		})
	}
	if m.SentinelCount != nil {
		b.SentinelCount(*m.SentinelCount)
	}
	if m.QuorumSize > 0 {
		b.QuorumSize(m.QuorumSize)
	}
	// Predefined ports win over the ephemeral switch, as the more
	// specific request.
	if m.Ephemeral {
		b.Ephemeral()
	}
	if len(m.SentinelPorts) > 0 {
		b.SentinelPorts(m.SentinelPorts)
	}
	if len(m.ServerPorts) > 0 {
		b.ServerPorts(m.ServerPorts)
	}
	if m.StopGraceSeconds > 0 {
		b.StopGrace(time.Duration(m.StopGraceSeconds) * time.Second)
	}
	for _, g := range m.Groups {
		b.ReplicationGroup(g.Name, g.Replicas)
	}
	return b
}
