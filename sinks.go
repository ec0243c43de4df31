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
	"io"
	"strings"
	"sync"
)

// fanSink delivers each written line to every registered sink.  It is
// what lets a drained process stream feed the instance's ring log and a
// caller-supplied writer at the same time, without the sinks knowing
// about each other.  Writes are expected to be whole lines; multi-line
// writes are split and delivered a line at a time.
type fanSink struct {
	sinks []io.Writer
	lock  sync.Mutex
}

func newFanSink(sinks ...io.Writer) *fanSink {
	f := &fanSink{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *fanSink) Write(b []byte) (int, error) {
	lines := strings.Split(strings.Trim(string(b), "\n"), "\n")
	f.lock.Lock()
	for _, line := range lines {
		for _, sink := range f.sinks {
			// A broken sink must not stop delivery to the
			// others, nor stall the drain.
			sink.Write([]byte(line + "\n"))
		}
	}
	f.lock.Unlock()
	return len(b), nil
}

func (f *fanSink) addSink(w io.Writer) {
	if w == nil {
		return
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, x := range f.sinks {
		if x == w {
			return
		}
	}
	f.sinks = append(f.sinks, w)
}

func (f *fanSink) delSink(w io.Writer) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for i, x := range f.sinks {
		if x == w {
			f.sinks = append(f.sinks[:i], f.sinks[i+1:]...)
			break
		}
	}
}
