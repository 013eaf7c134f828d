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
	"bytes"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	MaxLogRecords = 1000

	// Record sources.
	SourceChild = "child"
	SourceVisor = "visor"
)

// LogRecord is one line of output, either forwarded from the child or
// emitted by the supervisor itself.
type LogRecord struct {
	Id     int64     `json:"id,string"`
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
}

// Log is a fixed-size ring of recent output lines.  Records carry a
// monotonically increasing ID which doubles as an Etag for the REST
// API; pollers can sleep on Watch until the ID moves.
type Log struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

func (log *Log) lock() {
	log.mx.Lock()
}

func (log *Log) unlock() {
	log.mx.Unlock()
}

type logWriter struct {
	log     *Log
	source  string
	partial []byte
}

func (w *logWriter) Write(b []byte) (int, error) {
	w.log.append(w.source, &w.partial, b)
	return len(b), nil
}

// SourceWriter returns a Writer that records complete lines under the
// given source tag.  Child output arrives in arbitrary chunks, so a
// trailing partial line is buffered until its newline shows up.  Each
// returned writer buffers independently; do not share one between
// goroutines.
func (log *Log) SourceWriter(source string) io.Writer {
	return &logWriter{log: log, source: source}
}

func (log *Log) append(source string, partial *[]byte, b []byte) {
	log.lock()
	buf := append(*partial, b...)
	wrote := false
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			// Don't let a newline-free stream grow the buffer
			// without bound.
			if len(buf) >= OutputChunkSize {
				log.push(source, string(buf))
				wrote = true
				buf = nil
			}
			break
		}
		log.push(source, strings.TrimRight(string(buf[:i]), "\r"))
		wrote = true
		buf = buf[i+1:]
	}
	*partial = buf
	if wrote {
		for cv := range log.cvs {
			cv.Broadcast()
		}
	}
	log.unlock()
}

// push adds one record.  Call with the lock held.
func (log *Log) push(source, text string) {
	idx := log.numRecords % log.maxRecords
	log.id++
	log.records[idx].Id = log.id
	log.records[idx].Time = time.Now()
	log.records[idx].Source = source
	log.records[idx].Text = text
	// NB: numRecords may actually be more than maxRecords.  In that
	// case we've looped, but we use this really to track the next
	// index.
	log.numRecords++
}

// GetRecords returns the records that are stored, as well as an ID
// suitable for use as an Etag.  The last parameter can be the last ID
// that was checked, in which case this function will return nil
// immediately if the log has not changed since that ID was returned,
// without duplicating any records.
func (log *Log) GetRecords(last int64) ([]LogRecord, int64) {
	log.lock()
	if log.id == last {
		log.unlock()
		return nil, last
	}
	cnt := log.numRecords
	if cnt > log.maxRecords {
		cnt = log.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	index := log.numRecords - cnt
	for j := 0; j < cnt; j++ {
		recs = append(recs, log.records[index%log.maxRecords])
		index++
	}
	id := log.id
	log.unlock()
	return recs, id
}

// Watch blocks until the log has changed from the given ID, or the
// expiration passes, and returns the current ID.
func (log *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&log.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			log.lock()
			expired = true
			cv.Broadcast()
			log.unlock()
		})
	} else {
		expired = true
	}

	log.lock()
	log.cvs[cv] = true
	for {
		if log.id != last || expired {
			break
		}
		cv.Wait()
	}
	delete(log.cvs, cv)
	if log.id != last {
		last = log.id
	}
	log.unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}

// NewLog returns a Log holding up to max records, or MaxLogRecords if
// max is not positive.
func NewLog(max int) *Log {
	if max <= 0 {
		max = MaxLogRecords
	}
	log := &Log{
		records:    make([]LogRecord, max),
		maxRecords: max,
		// We presume that we cannot add new records more quickly
		// than once every nanosecond.
		id:  time.Now().UnixNano(),
		cvs: make(map[*sync.Cond]bool),
	}
	return log
}
