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
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogRing(t *testing.T) {
	Convey("Lines are retained oldest first with increasing ids", t, func() {
		l := NewLog()
		l.Write([]byte("one\n"))
		l.Write([]byte("two\nthree\n"))

		recs := l.Records()
		So(len(recs), ShouldEqual, 3)
		So(recs[0].Text, ShouldEqual, "one")
		So(recs[1].Text, ShouldEqual, "two")
		So(recs[2].Text, ShouldEqual, "three")
		So(recs[1].Id, ShouldBeGreaterThan, recs[0].Id)
		So(recs[2].Id, ShouldBeGreaterThan, recs[1].Id)

		So(l.Text(), ShouldEqual, "one\ntwo\nthree")
	})

	Convey("The ring keeps only the most recent lines", t, func() {
		l := &Log{maxRecords: 3}
		for i := 1; i <= 5; i++ {
			fmt.Fprintf(l, "line %d\n", i)
		}
		recs := l.Records()
		So(len(recs), ShouldEqual, 3)
		So(recs[0].Text, ShouldEqual, "line 3")
		So(recs[2].Text, ShouldEqual, "line 5")
	})

	Convey("Clear empties the ring but ids keep increasing", t, func() {
		l := NewLog()
		l.Write([]byte("before\n"))
		last := l.Records()[0].Id

		l.Clear()
		So(len(l.Records()), ShouldEqual, 0)

		l.Write([]byte("after\n"))
		recs := l.Records()
		So(len(recs), ShouldEqual, 1)
		So(recs[0].Id, ShouldBeGreaterThan, last)
	})
}

func TestFanSink(t *testing.T) {
	Convey("Every sink sees every line", t, func() {
		var a, b strings.Builder
		f := newFanSink(&a, nil, &b)

		f.Write([]byte("first\nsecond\n"))
		So(a.String(), ShouldEqual, "first\nsecond\n")
		So(b.String(), ShouldEqual, a.String())
	})

	Convey("Sinks can come and go while the fan is in use", t, func() {
		var a, b strings.Builder
		f := newFanSink(&a)

		f.Write([]byte("early\n"))
		f.addSink(&b)
		f.addSink(&b) // repeated adds register once
		f.Write([]byte("both\n"))
		f.delSink(&a)
		f.Write([]byte("late\n"))

		So(a.String(), ShouldEqual, "early\nboth\n")
		So(b.String(), ShouldEqual, "both\nlate\n")
	})

	Convey("A fan feeding a ring log lands whole lines", t, func() {
		l := NewLog()
		f := newFanSink(l)
		f.Write([]byte("watch this\n"))

		recs := l.Records()
		So(len(recs), ShouldEqual, 1)
		So(recs[0].Text, ShouldEqual, "watch this")
	})
}
