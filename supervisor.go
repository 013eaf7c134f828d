// Copyright 2026 The Llamavisor Authors
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

package llamavisor

import (
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultStallThreshold = 5 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
	DefaultPollTimeout    = time.Second
	DefaultTickInterval   = 100 * time.Millisecond
	DefaultExecutable     = "./llama-cli"
	OutputChunkSize       = 4096
)

// State describes the supervised workload.
type State int

const (
	StateIdle     State = iota // not yet launched, or shut down
	StateRunning               // child is alive
	StateExited                // child finished with status zero
	StateFailed                // child crashed or could not start
	StateSignaled              // child was killed by a signal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	case StateSignaled:
		return "signaled"
	}
	return "unknown"
}

// Status is a consistent snapshot of the supervisor.
type Status struct {
	Name       string
	State      State
	Pid        int
	Restarts   int
	Created    time.Time
	Started    time.Time
	LastOutput time.Time
	Stalled    bool
	Offload    int
	Serial     int64
}

// Supervisor owns one inference child and the workers backing it.
// All process management happens on the goroutine that calls Run;
// other goroutines only read snapshots or set request flags, so a
// probe can never race a restart.
type Supervisor struct {
	name     string
	template *Template
	registry *Registry
	prober   Prober
	ring     *Log
	logger   *log.Logger
	logSink  io.Writer
	stdout   io.Writer
	childOut io.Writer
	monitor  *Monitor

	stall time.Duration
	poll  time.Duration
	tick  time.Duration

	child      *Child
	state      State
	spawned    bool
	restarts   int
	createTime time.Time
	startTime  time.Time
	serial     int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex

	stopReq    atomic.Bool
	restartReq atomic.Bool
	stopOnce   sync.Once
}

// Option adjusts a Supervisor at construction.
type Option func(*Supervisor)

// WithProber substitutes the reachability check.
func WithProber(p Prober) Option {
	return func(s *Supervisor) { s.prober = p }
}

// WithStallThreshold sets the quiet period that triggers worker checks.
func WithStallThreshold(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.stall = d
		}
	}
}

// WithPollTimeout bounds each wait for child output.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithTickInterval sets the pause between control loop passes.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithStdout redirects forwarded child output, normally os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(s *Supervisor) { s.stdout = w }
}

// WithLogWriter redirects supervisor notices, normally os.Stderr.
// Notices land in the ring regardless.
func WithLogWriter(w io.Writer) Option {
	return func(s *Supervisor) { s.logSink = w }
}

// WithLogCapacity sizes the output ring.
func WithLogCapacity(n int) Option {
	return func(s *Supervisor) { s.ring = NewLog(n) }
}

// NewSupervisor wires up a supervisor for the given invocation and
// worker set.  Nothing is launched until Run.
func NewSupervisor(name string, t *Template, r *Registry, opts ...Option) *Supervisor {
	s := &Supervisor{
		name:       name,
		template:   t,
		registry:   r,
		prober:     &TCPProber{Timeout: DefaultProbeTimeout},
		ring:       NewLog(0),
		stdout:     os.Stdout,
		logSink:    os.Stderr,
		stall:      DefaultStallThreshold,
		poll:       DefaultPollTimeout,
		tick:       DefaultTickInterval,
		state:      StateIdle,
		createTime: time.Now(),
		serial:     time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = log.New(io.MultiWriter(s.logSink,
		s.ring.SourceWriter(SourceVisor)), "", log.LstdFlags)
	s.childOut = io.MultiWriter(s.stdout,
		s.ring.SourceWriter(SourceChild))
	s.monitor = NewMonitor(s.stall)
	return s
}

// Name returns the instance name.
func (s *Supervisor) Name() string {
	return s.name
}

// Log returns the output ring.
func (s *Supervisor) Log() *Log {
	return s.ring
}

// Logger returns the notice logger, which writes to both the
// configured sink and the ring.
func (s *Supervisor) Logger() *log.Logger {
	return s.logger
}

// Terminate asks the control loop to shut the child down and return.
// Safe from any goroutine, including signal handlers.
func (s *Supervisor) Terminate() {
	s.stopReq.Store(true)
}

// RequestRestart asks the loop to relaunch the child on its next pass.
func (s *Supervisor) RequestRestart() {
	s.restartReq.Store(true)
}

// Run drives the child until it exits cleanly or Terminate is called.
// The loop makes one pass per tick: drain output, check for stall,
// reap, then decide.  Every restart path funnels through startChild so
// the argument vector is always rebuilt from surviving workers.
func (s *Supervisor) Run() error {
	defer s.shutdown()
	s.logger.Printf("Supervising %s with %d RPC worker(s)",
		s.template.Executable(), len(s.registry.Endpoints()))
	s.startChild()
	for {
		if s.stopReq.Load() {
			s.logger.Printf("Termination requested, shutting down")
			return nil
		}
		if s.restartReq.CompareAndSwap(true, false) {
			s.logger.Printf("Restart requested over control API")
			s.startChild()
		}
		if s.child == nil {
			// Previous spawn failed; keep trying.
			s.startChild()
		}
		s.pollOutput()
		if s.child != nil && s.monitor.Stalled() {
			s.checkWorkers()
		}
		switch st := s.reapChild(); st {
		case ReapSuccess:
			s.logger.Printf("Child exited cleanly, workload complete")
			return nil
		case ReapFailure, ReapSignaled:
			s.logger.Printf("Child %v, restarting", s.child.WaitErr())
			s.startChild()
		}
		time.Sleep(s.tick)
	}
}

// pollOutput waits briefly for child output and forwards one chunk.
func (s *Supervisor) pollOutput() {
	if s.child == nil {
		return
	}
	if n := s.child.PollOutput(s.poll, s.childOut); n > 0 {
		s.mx.Lock()
		s.monitor.Touch()
		s.mx.Unlock()
	}
}

// reapChild checks for child exit without blocking and records the
// disposition.  The caller decides whether that means restart or done.
func (s *Supervisor) reapChild() ReapStatus {
	if s.child == nil {
		return ReapNone
	}
	st := s.child.Status()
	switch st {
	case ReapSuccess:
		s.setState(StateExited)
	case ReapFailure:
		s.setState(StateFailed)
	case ReapSignaled:
		s.setState(StateSignaled)
	}
	return st
}

// checkWorkers handles a stalled child: probe every worker still in
// rotation, drop the dead ones, and relaunch.  Exactly one of three
// notices explains which case this was.
func (s *Supervisor) checkWorkers() {
	s.logger.Printf("No output for %v, checking RPC workers", s.stall)
	removed := 0
	for _, ep := range s.registry.Available() {
		if s.prober.Probe(ep.Host, ep.Port) {
			continue
		}
		s.logger.Printf("Worker %s is unreachable, removing it",
			ep.Address)
		s.mx.Lock()
		s.registry.MarkUnavailable(ep)
		s.bumpSerial()
		s.mx.Unlock()
		removed++
	}
	if removed == 0 {
		s.logger.Printf("All workers reachable but output stalled, restarting inference")
	} else if s.registry.AllUnavailable() {
		s.logger.Printf("No reachable workers remain, falling back to CPU only")
	}
	s.startChild()
}

// startChild replaces the child with a fresh generation built from the
// workers still in rotation.  Any prior child is terminated first.
// Only the Run goroutine calls this.
func (s *Supervisor) startChild() {
	if old := s.child; old != nil {
		old.Terminate()
		s.mx.Lock()
		s.child = nil
		s.mx.Unlock()
	}
	args := s.template.Build(s.registry.Available())
	child, err := StartChild(args, s.logger)
	s.mx.Lock()
	if s.spawned {
		s.restarts++
	}
	s.spawned = true
	if err != nil {
		s.child = nil
		s.state = StateFailed
	} else {
		s.child = child
		s.state = StateRunning
		s.startTime = time.Now()
	}
	s.monitor.Touch()
	s.bumpSerial()
	s.mx.Unlock()
	if err != nil {
		s.logger.Printf("Failed to start %s: %v", args[0], err)
		return
	}
	s.logger.Printf("Started %s (pid %d)", args[0], child.Pid())
}

// shutdown terminates any live child exactly once.
func (s *Supervisor) shutdown() {
	s.stopOnce.Do(func() {
		if c := s.child; c != nil {
			if c.Status() == ReapNone {
				s.logger.Printf("Stopping child (pid %d)", c.Pid())
			}
			c.Terminate()
			s.mx.Lock()
			s.child = nil
			if s.state == StateRunning {
				s.state = StateIdle
			}
			s.bumpSerial()
			s.mx.Unlock()
		}
	})
}

// setState records a state change and notifies watchers.
func (s *Supervisor) setState(st State) {
	s.mx.Lock()
	if s.state != st {
		s.state = st
		s.bumpSerial()
	}
	s.mx.Unlock()
}

// bumpSerial increments the serial and notifies watchers.  Call with
// the lock held.
func (s *Supervisor) bumpSerial() int64 {
	s.serial++
	// NB: If the lock is not held here, then there is a risk that
	// the woken goroutines won't see the updated serial number.
	for cv := range s.cvs {
		cv.Broadcast()
	}
	return s.serial
}

// Serial returns the change counter.  It moves on state transitions,
// restarts, and worker removals, and makes a usable Etag.
func (s *Supervisor) Serial() int64 {
	s.mx.Lock()
	rv := s.serial
	s.mx.Unlock()
	return rv
}

// WatchSerial blocks until the serial differs from old or the
// expiration passes, and returns the current value.  A poll can be
// done by supplying 0 for the expiration.
func (s *Supervisor) WatchSerial(old int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&s.mx)
	var timer *time.Timer
	var rv int64

	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.mx.Lock()
			expired = true
			cv.Broadcast()
			s.mx.Unlock()
		})
	} else {
		expired = true
	}

	s.mx.Lock()
	s.cvs[cv] = true
	for {
		rv = s.serial
		if rv != old || expired {
			break
		}
		cv.Wait()
	}
	delete(s.cvs, cv)
	s.mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// Status returns a consistent snapshot for the control API.
func (s *Supervisor) Status() Status {
	s.mx.Lock()
	st := Status{
		Name:       s.name,
		State:      s.state,
		Restarts:   s.restarts,
		Created:    s.createTime,
		Started:    s.startTime,
		LastOutput: s.monitor.LastOutput(),
		Stalled:    s.state == StateRunning && s.monitor.Stalled(),
		Offload:    s.template.OffloadLayers(),
		Serial:     s.serial,
	}
	if s.child != nil {
		st.Pid = s.child.Pid()
	}
	s.mx.Unlock()
	return st
}

// Workers returns a copy of the endpoint list.
func (s *Supervisor) Workers() []Endpoint {
	s.mx.Lock()
	eps := s.registry.Snapshot()
	s.mx.Unlock()
	return eps
}
