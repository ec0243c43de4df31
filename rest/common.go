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

package rest

const (
	mimeJson = "application/json; charset=UTF-8"
)

var ok struct{}

// InstanceInfo describes one supervised process of the topology.
type InstanceInfo struct {
	Name   string `json:"name"`
	Ports  []int  `json:"ports"`
	Active bool   `json:"active"`
}

// ClusterInfo summarizes the whole topology.
type ClusterInfo struct {
	Instances int   `json:"instances"`
	Active    int   `json:"active"`
	Ports     []int `json:"ports"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
