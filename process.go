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
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ReapStatus classifies how a child generation ended, if it has.
type ReapStatus int

const (
	ReapNone     ReapStatus = iota // still running
	ReapSuccess                    // exited zero
	ReapFailure                    // exited non-zero or unstartable
	ReapSignaled                   // killed by a signal
)

// Child is one generation of the supervised inference process.  A
// fresh Child is created for every launch; exec.Cmd cannot be reused
// once started.  The child's stdout and stderr are merged into a
// single pipe whose read end stays with the supervisor, and a reaper
// goroutine collects the exit status the moment the process dies so
// the supervisor never blocks in wait.
type Child struct {
	cmd    *exec.Cmd
	out    *os.File
	logger *log.Logger
	buf    [OutputChunkSize]byte

	mx      sync.Mutex
	status  ReapStatus
	waitErr error
	done    chan struct{}
}

// StartChild launches args (element 0 is the executable) with stdout
// and stderr merged into a supervisor-held pipe.  The executable is
// resolved via PATH when the name has no separator.
func StartChild(args []string, logger *log.Logger) (*Child, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(args[0])
	cmd.Args = append([]string(nil), args...)
	cmd.Stdout = w
	cmd.Stderr = w
	c := &Child{
		cmd:    cmd,
		out:    r,
		logger: logger,
		done:   make(chan struct{}),
	}
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	// The child holds its own descriptor now.  Dropping ours makes
	// reads return EOF once the child is gone.
	w.Close()
	go c.reap()
	return c, nil
}

// reap waits for the process and records its disposition.
func (c *Child) reap() {
	err := c.cmd.Wait()
	c.mx.Lock()
	c.waitErr = err
	c.status = reapStatus(err)
	c.mx.Unlock()
	close(c.done)
}

func reapStatus(err error) ReapStatus {
	if err == nil {
		return ReapSuccess
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return ReapSignaled
		}
	}
	return ReapFailure
}

// Pid returns the child's process ID.
func (c *Child) Pid() int {
	if c.cmd.Process != nil {
		return c.cmd.Process.Pid
	}
	return 0
}

// Status is the non-blocking check the control loop runs every tick.
// It returns ReapNone while the child is alive, and the recorded
// disposition once it is not.
func (c *Child) Status() ReapStatus {
	select {
	case <-c.done:
		c.mx.Lock()
		st := c.status
		c.mx.Unlock()
		return st
	default:
		return ReapNone
	}
}

// WaitErr returns the error from wait, nil until the child has been
// reaped or if it exited zero.
func (c *Child) WaitErr() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.waitErr
}

// PollOutput blocks up to timeout for output on the merged stream,
// forwards at most one chunk to w, and returns the byte count.  A
// quiet window, EOF, and a closed pipe all return zero.
func (c *Child) PollOutput(timeout time.Duration, w io.Writer) int {
	if err := c.out.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0
	}
	n, _ := c.out.Read(c.buf[:])
	if n > 0 {
		w.Write(c.buf[:n])
	}
	return n
}

// Terminate sends SIGTERM, blocks until the child has been reaped,
// and releases the pipe.  There is no kill escalation; inference
// binaries honor SIGTERM, and anything wedged enough to ignore it
// needs operator eyes anyway.  Safe to call on an already dead child.
func (c *Child) Terminate() {
	select {
	case <-c.done:
	default:
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			c.logger.Printf("Signaling pid %d: %v", c.Pid(), err)
		}
		<-c.done
	}
	c.out.Close()
}
