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

package rest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/context"

	"github.com/llamavisor/llamavisor"
)

// testSupervisor builds an idle supervisor; nothing is ever launched,
// so these tests exercise the wire without touching a real child.
func testSupervisor(t *testing.T) *llamavisor.Supervisor {
	tp, e := llamavisor.NewTemplate("./llama-cli", []string{"-m", "m.gguf"})
	So(e, ShouldBeNil)
	r, e := llamavisor.NewRegistry([]string{"w1:50053", "w2"})
	So(e, ShouldBeNil)
	return llamavisor.NewSupervisor("rest-test", tp, r,
		llamavisor.WithStdout(io.Discard),
		llamavisor.WithLogWriter(io.Discard))
}

func TestInfoEndpoint(t *testing.T) {
	Convey("Given a served supervisor", t, func() {
		s := testSupervisor(t)
		srv := httptest.NewServer(NewHandler(s))
		Reset(srv.Close)
		c := NewClient(nil, srv.URL)

		Convey("GET / returns workload info", func() {
			info, e := c.Info()
			So(e, ShouldBeNil)
			So(info, ShouldNotBeNil)
			So(info.Name, ShouldEqual, "rest-test")
			So(info.Version, ShouldEqual, llamavisor.Version)
			So(info.State, ShouldEqual, "idle")
			So(info.Pid, ShouldEqual, 0)
			So(info.Workers, ShouldEqual, 2)
			So(info.Available, ShouldEqual, 2)
			So(info.Offload, ShouldEqual, llamavisor.DefaultOffloadLayers)
		})

		Convey("An unchanged serial yields 304", func() {
			res, e := http.Get(srv.URL + "/")
			So(e, ShouldBeNil)
			etag := res.Header.Get("Etag")
			res.Body.Close()
			So(etag, ShouldNotBeBlank)

			req, e := http.NewRequest("GET", srv.URL+"/", nil)
			So(e, ShouldBeNil)
			req.Header.Set("If-None-Match", etag)
			res, e = http.DefaultClient.Do(req)
			So(e, ShouldBeNil)
			res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusNotModified)
		})

		Convey("GET /workers lists endpoints", func() {
			ws, e := c.Workers()
			So(e, ShouldBeNil)
			So(len(ws), ShouldEqual, 2)
			So(ws[0].Address, ShouldEqual, "w1:50053")
			So(ws[0].Host, ShouldEqual, "w1")
			So(ws[0].Port, ShouldEqual, 50053)
			So(ws[0].Available, ShouldBeTrue)
			So(ws[1].Host, ShouldEqual, "w2")
			So(ws[1].Port, ShouldEqual, llamavisor.DefaultWorkerPort)
		})

		Convey("POST /restart is accepted", func() {
			So(c.Restart(), ShouldBeNil)
		})

		Convey("Restart requires POST", func() {
			res, e := http.Get(srv.URL + "/restart")
			So(e, ShouldBeNil)
			res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestLogEndpoint(t *testing.T) {
	Convey("Given a supervisor with some log output", t, func() {
		s := testSupervisor(t)
		s.Logger().Printf("hello from the visor")
		srv := httptest.NewServer(NewHandler(s))
		Reset(srv.Close)
		c := NewClient(nil, srv.URL)

		li, e := c.GetLog()
		So(e, ShouldBeNil)
		So(li, ShouldNotBeNil)
		So(len(li.Records), ShouldBeGreaterThanOrEqualTo, 1)
		found := false
		for _, r := range li.Records {
			if strings.Contains(r.Text, "hello from the visor") &&
				r.Source == llamavisor.SourceVisor {
				found = true
			}
		}
		So(found, ShouldBeTrue)

		Convey("A new record wakes a long poll", func() {
			go func() {
				time.Sleep(time.Millisecond * 100)
				s.Logger().Printf("wake up")
			}()
			ctx, cancel := context.WithTimeout(context.Background(),
				time.Second*5)
			defer cancel()
			li2, e := c.WatchLog(ctx, li)
			So(e, ShouldBeNil)
			So(li2, ShouldNotBeNil)
			text := ""
			for _, r := range li2.Records {
				text += r.Text + "\n"
			}
			So(text, ShouldContainSubstring, "wake up")
		})

		Convey("A canceled watch returns the context error", func() {
			ctx, cancel := context.WithTimeout(context.Background(),
				time.Millisecond*100)
			defer cancel()
			_, e := c.WatchLog(ctx, li)
			So(e, ShouldEqual, context.DeadlineExceeded)
			// Unpark the handler so closing the server is quick.
			s.Logger().Printf("release")
		})
	})
}

func TestAuth(t *testing.T) {
	Convey("Basic auth gates every route", t, func() {
		s := testSupervisor(t)
		h := NewHandler(s)
		h.SetAuth("admin", "sekrit")
		srv := httptest.NewServer(h)
		Reset(srv.Close)

		Convey("No credentials is rejected", func() {
			c := NewClient(nil, srv.URL)
			_, e := c.Info()
			So(e, ShouldNotBeNil)
			re, ok := e.(*Error)
			So(ok, ShouldBeTrue)
			So(re.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("A wrong password is rejected", func() {
			c := NewClient(nil, srv.URL)
			c.SetAuth("admin", "guess")
			_, e := c.Info()
			So(e, ShouldNotBeNil)
		})

		Convey("Good credentials pass", func() {
			c := NewClient(nil, srv.URL)
			c.SetAuth("admin", "sekrit")
			info, e := c.Info()
			So(e, ShouldBeNil)
			So(info.Name, ShouldEqual, "rest-test")
		})
	})

	Convey("A bcrypt secret verifies passwords against the hash", t, func() {
		hash, e := bcrypt.GenerateFromPassword([]byte("sekrit"),
			bcrypt.MinCost)
		So(e, ShouldBeNil)
		s := testSupervisor(t)
		h := NewHandler(s)
		h.SetAuth("admin", string(hash))
		srv := httptest.NewServer(h)
		Reset(srv.Close)

		c := NewClient(nil, srv.URL)
		c.SetAuth("admin", "sekrit")
		info, e := c.Info()
		So(e, ShouldBeNil)
		So(info.State, ShouldEqual, "idle")

		bad := NewClient(nil, srv.URL)
		bad.SetAuth("admin", "wrong")
		_, e = bad.Info()
		So(e, ShouldNotBeNil)
	})
}
