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
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMonitor(t *testing.T) {
	Convey("Given a 50ms stall threshold", t, func() {
		m := NewMonitor(50 * time.Millisecond)

		Convey("A fresh monitor is not stalled", func() {
			So(m.Stalled(), ShouldBeFalse)
		})

		Convey("Silence crosses the threshold", func() {
			time.Sleep(80 * time.Millisecond)
			So(m.Stalled(), ShouldBeTrue)
			So(m.SinceOutput(), ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)

			Convey("And Touch resets the clock", func() {
				m.Touch()
				So(m.Stalled(), ShouldBeFalse)
				So(m.SinceOutput(), ShouldBeLessThan, 50*time.Millisecond)
			})
		})

		Convey("LastOutput tracks the newest touch", func() {
			before := m.LastOutput()
			time.Sleep(5 * time.Millisecond)
			m.Touch()
			So(m.LastOutput().After(before), ShouldBeTrue)
		})
	})

	Convey("A bogus threshold falls back to the default", t, func() {
		m := NewMonitor(0)
		So(m.threshold, ShouldEqual, DefaultStallThreshold)
		m = NewMonitor(-time.Second)
		So(m.threshold, ShouldEqual, DefaultStallThreshold)
	})
}
