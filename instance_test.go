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

// The suite drives a bundled redistest.sh stub instead of a real
// redis-server, which keeps it POSIX-only, like the stub.

package embedded

import (
	"bytes"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const testScript = "./redistest.sh"

func testInstance(t *testing.T, args ...string) *instance {
	argv := append([]string{testScript}, args...)
	inst, e := newInstance("test", argv, 6379, `.*Ready to accept connections.*`)
	if e != nil {
		t.Fatalf("Failed to build instance: %v", e)
	}
	inst.setLogger(testLogger(t))
	return inst
}

func TestInstanceStartStop(t *testing.T) {
	Convey("Test start/stop of an instance", t, func() {
		r := testInstance(t)
		So(r.Active(), ShouldBeFalse)
		So(r.Ports(), ShouldResemble, []int{6379})

		e := r.Start()
		So(e, ShouldBeNil)
		So(r.Active(), ShouldBeTrue)

		e = r.Stop()
		So(e, ShouldBeNil)
		So(r.Active(), ShouldBeFalse)

		Convey("And the ready line was retained", func() {
			text := r.log.Text()
			So(text, ShouldContainSubstring,
				"Ready to accept connections")
		})
	})
}

func TestInstanceDoubleStart(t *testing.T) {
	Convey("Starting a running instance fails", t, func() {
		r := testInstance(t)
		So(r.Start(), ShouldBeNil)

		e := r.Start()
		So(e, ShouldEqual, ErrAlreadyRunning)

		Convey("And the first process is still running", func() {
			So(r.Active(), ShouldBeTrue)
			So(r.Stop(), ShouldBeNil)
		})
	})
}

func TestInstanceStopIdle(t *testing.T) {
	Convey("Stopping a never-started instance is a no-op", t, func() {
		r := testInstance(t)
		So(r.Stop(), ShouldBeNil)
		So(r.Active(), ShouldBeFalse)

		Convey("Even when repeated", func() {
			So(r.Stop(), ShouldBeNil)
		})
	})
}

func TestInstanceRestart(t *testing.T) {
	Convey("A stopped instance can be started again", t, func() {
		r := testInstance(t)
		So(r.Start(), ShouldBeNil)
		So(r.Stop(), ShouldBeNil)

		So(r.Start(), ShouldBeNil)
		So(r.Active(), ShouldBeTrue)
		So(r.Stop(), ShouldBeNil)
	})
}

func TestInstanceNeverReady(t *testing.T) {
	Convey("A process that exits before the ready line fails to start", t, func() {
		r := testInstance(t, "fail")
		e := r.Start()
		So(e, ShouldNotBeNil)
		So(e, ShouldWrap, ErrLaunchFailed)
		So(r.Active(), ShouldBeFalse)

		Convey("And the failure carries the accumulated output", func() {
			So(e.Error(), ShouldContainSubstring,
				"could not initialize")
		})
	})
}

func TestInstanceStdoutClosedChildAlive(t *testing.T) {
	Convey("A live child that closes stdout fails the start promptly", t, func() {
		// The mute stub closes its stdout without printing the
		// ready line and then stays alive, so the start must not
		// sit waiting for the process to exit.
		r := testInstance(t, "mute")

		done := make(chan error, 1)
		go func() {
			done <- r.Start()
		}()

		select {
		case e := <-done:
			So(e, ShouldNotBeNil)
			So(e, ShouldWrap, ErrLaunchFailed)
		case <-time.After(time.Second * 5):
			t.Fatal("Start still blocked after stdout closed")
		}
		So(r.Active(), ShouldBeFalse)
	})
}

func TestInstanceSpawnFailure(t *testing.T) {
	Convey("A missing executable fails the start", t, func() {
		inst, e := newInstance("test",
			[]string{"./no-such-binary"}, 6379, `.*`)
		So(e, ShouldBeNil)
		inst.setLogger(testLogger(t))

		e = inst.Start()
		So(e, ShouldNotBeNil)
		So(e, ShouldWrap, ErrLaunchFailed)
		So(inst.Active(), ShouldBeFalse)
	})
}

func TestInstanceSinks(t *testing.T) {
	Convey("Stream sinks receive the process output", t, func() {
		out := &syncBuffer{}
		errOut := &syncBuffer{}
		r := testInstance(t)
		r.OutTo(out)
		r.ErrTo(errOut)

		So(r.Start(), ShouldBeNil)
		// The stderr drain is asynchronous; allow it a moment.
		time.Sleep(time.Millisecond * 100)
		So(r.Stop(), ShouldBeNil)

		So(out.String(), ShouldContainSubstring,
			"Ready to accept connections")
		So(errOut.String(), ShouldContainSubstring, "redistest: pid")
	})
}

func TestInstanceReadyMatchIsFullLine(t *testing.T) {
	Convey("The ready pattern matches whole lines only", t, func() {
		// Every line the failing stub prints contains "redistest",
		// so a substring match would see the process as ready.  A
		// whole-line match must instead run into end of stream.
		argv := []string{testScript, "fail"}
		inst, e := newInstance("test", argv, 6379, `redistest`)
		So(e, ShouldBeNil)
		inst.setLogger(testLogger(t))

		e = inst.Start()
		So(e, ShouldNotBeNil)
		So(e, ShouldWrap, ErrLaunchFailed)
		So(inst.Active(), ShouldBeFalse)
	})
}

func TestInstanceParallelLifecycles(t *testing.T) {
	Convey("Different instances start and stop independently", t, func() {
		const n = 4
		insts := make([]*instance, n)
		for i := range insts {
			insts[i] = testInstance(t)
		}
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range insts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if errs[i] = insts[i].Start(); errs[i] != nil {
					return
				}
				errs[i] = insts[i].Stop()
			}(i)
		}
		wg.Wait()
		for i := range insts {
			So(errs[i], ShouldBeNil)
			So(insts[i].Active(), ShouldBeFalse)
		}
	})
}

// syncBuffer is a bytes.Buffer safe for use as a drain sink.
type syncBuffer struct {
	buf bytes.Buffer
	mx  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.String()
}

// testLogger routes instance lifecycle messages into the test log.
func testLogger(t *testing.T) *log.Logger {
	return log.New(&testLogWriter{t}, "", 0)
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}
