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
)

var (
	ErrAlreadyRunning  = errors.New("Redis instance is already running")
	ErrPortsExhausted  = errors.New("Predefined ports exhausted")
	ErrPortUnavailable = errors.New("Cannot allocate an ephemeral port")
	ErrLaunchFailed    = errors.New("Failed to start Redis instance")
	ErrShutdownFailed  = errors.New("Failed to stop Redis instance")
	ErrNoExecutable    = errors.New("No Redis executable found")
)
