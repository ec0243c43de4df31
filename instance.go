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
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Redis is one supervised process in a topology -- a data node or a
// sentinel.  Start and Stop on the same instance are mutually exclusive;
// calls on different instances are fully independent.
type Redis interface {
	// Start spawns the process and blocks until it reports readiness
	// on its standard output.  It fails with ErrAlreadyRunning if the
	// instance is active, and with an error wrapping ErrLaunchFailed
	// if the spawn fails or the process closes its output before the
	// ready line appears.  No timeout is imposed; callers wanting a
	// bounded wait must layer their own.
	Start() error

	// Stop terminates the process and waits for it to exit.  Stopping
	// an instance that is not active is a no-op, not an error.
	Stop() error

	// Active reports whether the process is running and became ready.
	Active() bool

	// Name identifies the instance within its cluster.
	Name() string

	// Ports returns the port(s) the instance is bound to.
	Ports() []int

	// LogRecords returns the retained recent output of the process.
	LogRecords() []LogRecord
}

// instance owns exactly one OS process.  RedisServer and RedisSentinel
// embed it; they differ only in how their argument vectors and readiness
// patterns are assembled.
type instance struct {
	name  string
	args  []string // args[0] is the executable path
	port  int
	ready *regexp.Regexp
	grace time.Duration // after SIGTERM; 0 waits forever

	out     io.Writer // post-spawn stdout sink, nil discards
	errOut  io.Writer // stderr sink
	log     *Log      // recent output, both streams
	logger  *log.Logger
	metrics MetricsCollector

	active bool
	cmd    *exec.Cmd
	drains *sync.WaitGroup // per launch; see Start
	mx     sync.Mutex
}

func newInstance(name string, args []string, port int, readyPattern string) (*instance, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty argument vector", ErrLaunchFailed)
	}
	// The upstream harness matches the pattern against the entire
	// line, not a substring, so anchor it.
	ready, e := regexp.Compile(`^(?:` + readyPattern + `)$`)
	if e != nil {
		return nil, fmt.Errorf("bad ready pattern %q: %v", readyPattern, e)
	}
	return &instance{
		name:    name,
		args:    args,
		port:    port,
		ready:   ready,
		errOut:  os.Stderr,
		log:     NewLog(),
		metrics: noopMetrics{},
	}, nil
}

func (r *instance) Name() string {
	return r.name
}

func (r *instance) Ports() []int {
	return []int{r.port}
}

func (r *instance) Active() bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.active
}

func (r *instance) LogRecords() []LogRecord {
	return r.log.Records()
}

// OutTo redirects the process's standard output to w.  Lines read
// during the readiness wait are forwarded as well.  Must be called
// before Start.
func (r *instance) OutTo(w io.Writer) {
	r.out = w
}

// ErrTo redirects the process's standard error to w.  The default is
// the orchestrator's own stderr.  Must be called before Start.
func (r *instance) ErrTo(w io.Writer) {
	r.errOut = w
}

// StopGrace arms a kill timer: if the process has not exited this long
// after SIGTERM, it is killed.  Zero (the default) waits forever.
func (r *instance) StopGrace(d time.Duration) {
	r.grace = d
}

func (r *instance) setLogger(l *log.Logger) {
	r.logger = l
}

func (r *instance) setMetrics(m MetricsCollector) {
	if m != nil {
		r.metrics = m
	}
}

func (r *instance) logf(format string, v ...interface{}) {
	if r.logger != nil {
		r.logger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}

func (r *instance) Start() error {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.active {
		return ErrAlreadyRunning
	}

	// A fresh Cmd per launch; exec.Cmd cannot be reused after Wait.
	cmd := exec.Command(r.args[0], r.args[1:]...)
	cmd.Dir = filepath.Dir(r.args[0])

	stdout, e := cmd.StdoutPipe()
	if e != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, e)
	}
	stderr, e := cmd.StderrPipe()
	if e != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, e)
	}
	if e = cmd.Start(); e != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, e)
	}
	began := time.Now()
	r.cmd = cmd
	r.log.Clear()

	// A fresh wait group per launch, so a drain left over from a
	// failed launch cannot stall the Stop of a later one.
	drains := &sync.WaitGroup{}
	r.drains = drains

	// Stderr drains from the moment of the spawn, so the child can
	// never block on a full stderr buffer while we wait for readiness.
	drains.Add(1)
	go r.drain(bufio.NewReader(stderr), newFanSink(r.log, r.errOut))

	osink := newFanSink(r.log, r.out)
	reader := bufio.NewReader(stdout)
	if e = r.awaitReady(reader, osink); e != nil {
		// The failure must surface now, even if the child closed
		// its stdout but stayed alive; cleaning the child up is the
		// caller's business.  Reap in the background so a child
		// that does exit is not left a zombie.
		go func() {
			drains.Wait()
			cmd.Wait()
		}()
		r.cmd = nil
		r.metrics.LaunchFailed(r.name)
		return e
	}

	// Ready line seen.  The same buffered reader is handed to the
	// background drain; re-wrapping the pipe here would lose anything
	// already buffered.
	drains.Add(1)
	go r.drain(reader, osink)

	r.active = true
	r.logf("Started %s on port %d (pid %d)", r.name, r.port,
		cmd.Process.Pid)
	r.metrics.Started(r.name, time.Since(began))
	return nil
}

// awaitReady consumes stdout on the calling goroutine, one line per
// match attempt, until a line matches the ready pattern.  End of stream
// first means the process never came up; the retained output goes into
// the error so a misconfigured binary can be diagnosed from the failure
// alone.
func (r *instance) awaitReady(reader *bufio.Reader, sink io.Writer) error {
	for {
		line, e := reader.ReadString('\n')
		line = strings.Trim(line, "\n")
		if len(line) != 0 {
			sink.Write([]byte(line + "\n"))
		}
		if r.ready.MatchString(line) {
			return nil
		}
		if e != nil {
			return fmt.Errorf("%w: stream closed before ready; process output:\n%s",
				ErrLaunchFailed, r.log.Text())
		}
	}
}

// drain forwards the remainder of a stream to its sink, line by line,
// until the stream closes.  One goroutine per process per stream.
func (r *instance) drain(reader *bufio.Reader, sink io.Writer) {
	defer r.drains.Done()
	for {
		line, e := reader.ReadString('\n')
		if len(line) != 0 {
			sink.Write([]byte(strings.Trim(line, "\n") + "\n"))
		}
		if e != nil {
			return
		}
	}
}

func (r *instance) Stop() error {
	r.mx.Lock()
	defer r.mx.Unlock()

	if !r.active {
		return nil
	}
	began := time.Now()

	var timer *time.Timer
	if proc := r.cmd.Process; proc != nil {
		if e := proc.Signal(syscall.SIGTERM); e != nil {
			// The process may already have exited; Wait below
			// settles it either way.
			r.logf("Failed sending SIGTERM to %s: %v", r.name, e)
		}
		if r.grace > 0 {
			timer = time.AfterFunc(r.grace, func() {
				r.logf("Graceful shutdown of %s timed out", r.name)
				proc.Kill()
			})
		}
	}

	e := r.cmd.Wait()
	if timer != nil {
		timer.Stop()
	}
	// Wait closes the pipes, which unblocks the drains.
	r.drains.Wait()
	r.active = false
	r.cmd = nil

	if e != nil {
		var xe *exec.ExitError
		if !errors.As(e, &xe) {
			return fmt.Errorf("%w: %v", ErrShutdownFailed, e)
		}
		// A non-zero exit status after a termination signal is the
		// expected outcome, not a shutdown failure.
	}
	r.logf("Stopped %s", r.name)
	r.metrics.Stopped(r.name, time.Since(began))
	return nil
}
