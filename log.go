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
	"strings"
	"sync"
	"time"
)

const (
	MaxLogRecords = 1000
)

// LogRecord is one retained line of process output.  Ids increase
// monotonically within a Log, so consumers can use them to fetch only
// what is new.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log is a fixed-size ring of the most recent output lines from one
// process (or from the cluster event stream).  It implements io.Writer
// so it can sit directly behind a drain or a log.Logger; writes are
// split on newlines, one record per line.
type Log struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	mx         sync.Mutex
}

// NewLog returns an empty ring that retains up to MaxLogRecords lines.
func NewLog() *Log {
	return &Log{
		maxRecords: MaxLogRecords,
		id:         time.Now().UnixNano(),
	}
}

func (l *Log) Write(b []byte) (int, error) {
	str := strings.Trim(string(b), "\n")
	l.mx.Lock()
	if l.maxRecords == 0 {
		l.maxRecords = MaxLogRecords
	}
	if l.records == nil {
		l.records = make([]LogRecord, l.maxRecords)
		l.numRecords = 0
	}
	for _, line := range strings.Split(str, "\n") {
		idx := l.numRecords % l.maxRecords
		l.id++
		l.records[idx].Text = line
		l.records[idx].Id = l.id
		l.records[idx].Time = time.Now()
		// NB: numRecords may exceed maxRecords; it really tracks
		// the next index, not the population.
		l.numRecords++
	}
	l.mx.Unlock()
	return len(b), nil
}

func (l *Log) Clear() {
	l.mx.Lock()
	l.numRecords = 0
	// We presume that records cannot be added more quickly than one
	// every nanosecond, which keeps ids unique across a Clear.
	l.id = time.Now().UnixNano()
	l.mx.Unlock()
}

// Records returns the retained lines, oldest first.
func (l *Log) Records() []LogRecord {
	l.mx.Lock()
	cnt := l.numRecords
	if cnt > l.maxRecords {
		cnt = l.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	index := l.numRecords - cnt
	for j := 0; j < cnt; j++ {
		recs = append(recs, l.records[index%l.maxRecords])
		index++
	}
	l.mx.Unlock()
	return recs
}

// Text returns the retained lines joined with newlines, for use in
// diagnostics such as launch failure messages.
func (l *Log) Text() string {
	recs := l.Records()
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, r.Text)
	}
	return strings.Join(lines, "\n")
}
