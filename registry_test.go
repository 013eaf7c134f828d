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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseEndpoint(t *testing.T) {
	Convey("Parsing endpoints", t, func() {
		Convey("Host and port split on the first colon", func() {
			ep, e := ParseEndpoint("10.0.0.1:50052")
			So(e, ShouldBeNil)
			So(ep.Host, ShouldEqual, "10.0.0.1")
			So(ep.Port, ShouldEqual, 50052)
			So(ep.Address, ShouldEqual, "10.0.0.1:50052")
			So(ep.Available(), ShouldBeTrue)
		})
		Convey("The port defaults when omitted", func() {
			ep, e := ParseEndpoint("worker-1")
			So(e, ShouldBeNil)
			So(ep.Host, ShouldEqual, "worker-1")
			So(ep.Port, ShouldEqual, DefaultWorkerPort)
			So(ep.Address, ShouldEqual, "worker-1")
		})
		Convey("A non-numeric port is rejected", func() {
			_, e := ParseEndpoint("10.0.0.1:rpc")
			So(e, ShouldNotBeNil)
			So(errors.Is(e, ErrBadPort), ShouldBeTrue)
		})
		Convey("A colon with nothing after it is rejected", func() {
			_, e := ParseEndpoint("worker-1:")
			So(errors.Is(e, ErrBadPort), ShouldBeTrue)
		})
		Convey("An empty host is rejected", func() {
			_, e := ParseEndpoint(":50052")
			So(errors.Is(e, ErrBadEndpoint), ShouldBeTrue)
		})
		Convey("An empty address is rejected", func() {
			_, e := ParseEndpoint("")
			So(errors.Is(e, ErrBadEndpoint), ShouldBeTrue)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry of three workers", t, func() {
		r, e := NewRegistry([]string{"a:1", "b", "c:3"})
		So(e, ShouldBeNil)
		So(r, ShouldNotBeNil)

		Convey("All start available in listed order", func() {
			eps := r.Available()
			So(len(eps), ShouldEqual, 3)
			So(eps[0].Address, ShouldEqual, "a:1")
			So(eps[1].Address, ShouldEqual, "b")
			So(eps[2].Address, ShouldEqual, "c:3")
			So(r.AllUnavailable(), ShouldBeFalse)
		})

		Convey("Removal is one way and keeps order", func() {
			eps := r.Available()
			r.MarkUnavailable(eps[1])
			r.MarkUnavailable(eps[1]) // twice is harmless
			avail := r.Available()
			So(len(avail), ShouldEqual, 2)
			So(avail[0].Address, ShouldEqual, "a:1")
			So(avail[1].Address, ShouldEqual, "c:3")
			So(r.AllUnavailable(), ShouldBeFalse)

			Convey("Removing the rest empties the rotation", func() {
				r.MarkUnavailable(avail[0])
				r.MarkUnavailable(avail[1])
				So(len(r.Available()), ShouldEqual, 0)
				So(r.AllUnavailable(), ShouldBeTrue)
				So(len(r.Endpoints()), ShouldEqual, 3)
			})
		})

		Convey("Snapshots are copies", func() {
			snap := r.Snapshot()
			So(len(snap), ShouldEqual, 3)
			So(snap[0].Available(), ShouldBeTrue)
			r.MarkUnavailable(r.Endpoints()[0])
			So(snap[0].Available(), ShouldBeTrue)
			So(r.Snapshot()[0].Available(), ShouldBeFalse)
		})
	})

	Convey("An empty worker list is a config error", t, func() {
		_, e := NewRegistry(nil)
		So(e, ShouldEqual, ErrNoWorkers)
	})

	Convey("One bad address fails the whole list", t, func() {
		_, e := NewRegistry([]string{"a:1", "b:x"})
		So(errors.Is(e, ErrBadPort), ShouldBeTrue)
	})
}
