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
	"time"
)

// Monitor tracks when the child last produced output.  Any byte on the
// merged stream counts as liveness; the content is never inspected.
// Methods are not safe for concurrent use; the supervisor serializes
// access under its own lock.
type Monitor struct {
	last      time.Time
	threshold time.Duration
}

// NewMonitor starts the clock at now, so a freshly launched child gets
// a full quiet window before it can be called stalled.
func NewMonitor(threshold time.Duration) *Monitor {
	if threshold <= 0 {
		threshold = DefaultStallThreshold
	}
	return &Monitor{last: time.Now(), threshold: threshold}
}

// Touch records output activity.
func (m *Monitor) Touch() {
	m.last = time.Now()
}

// Stalled reports whether the quiet period has reached the threshold.
func (m *Monitor) Stalled() bool {
	return time.Since(m.last) >= m.threshold
}

// SinceOutput returns the length of the current quiet period.
func (m *Monitor) SinceOutput() time.Duration {
	return time.Since(m.last)
}

// LastOutput returns the time of the most recent activity.
func (m *Monitor) LastOutput() time.Time {
	return m.last
}
