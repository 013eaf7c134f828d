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
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultConfig(t *testing.T) {
	Convey("Stock tunables", t, func() {
		cfg := DefaultConfig()
		So(cfg.Name, ShouldEqual, "llamavisord")
		So(cfg.Executable, ShouldEqual, DefaultExecutable)
		So(cfg.StallThreshold(), ShouldEqual, DefaultStallThreshold)
		So(cfg.ProbeTimeout(), ShouldEqual, DefaultProbeTimeout)
		So(cfg.PollTimeout(), ShouldEqual, DefaultPollTimeout)
		So(cfg.TickInterval(), ShouldEqual, DefaultTickInterval)
		So(cfg.LogRecords, ShouldEqual, MaxLogRecords)
		So(cfg.Validate(), ShouldBeNil)
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("Loading a config file", t, func() {
		dir := t.TempDir()

		Convey("File values override defaults", func() {
			path := filepath.Join(dir, "llamavisord.yaml")
			data := []byte("name: edge-box\nstall_seconds: 9\nexecutable: /opt/llama/bin/llama-cli\n")
			So(os.WriteFile(path, data, 0600), ShouldBeNil)
			cfg, e := LoadConfig(path)
			So(e, ShouldBeNil)
			So(cfg.Name, ShouldEqual, "edge-box")
			So(cfg.StallSeconds, ShouldEqual, 9)
			So(cfg.Executable, ShouldEqual, "/opt/llama/bin/llama-cli")
			So(cfg.ProbeSeconds, ShouldEqual, DefaultConfig().ProbeSeconds)
			So(cfg.Listen, ShouldEqual, DefaultConfig().Listen)
		})

		Convey("A missing file is an error", func() {
			_, e := LoadConfig(filepath.Join(dir, "nope.yaml"))
			So(e, ShouldNotBeNil)
		})

		Convey("Bad YAML is rejected", func() {
			path := filepath.Join(dir, "bad.yaml")
			So(os.WriteFile(path, []byte("listen: [unterminated"), 0600), ShouldBeNil)
			_, e := LoadConfig(path)
			So(e, ShouldNotBeNil)
		})

		Convey("A zero interval is rejected", func() {
			path := filepath.Join(dir, "zero.yaml")
			So(os.WriteFile(path, []byte("tick_millis: 0\n"), 0600), ShouldBeNil)
			_, e := LoadConfig(path)
			So(e, ShouldNotBeNil)
		})

		Convey("An empty executable is rejected", func() {
			path := filepath.Join(dir, "noexec.yaml")
			So(os.WriteFile(path, []byte("executable: \"\"\n"), 0600), ShouldBeNil)
			_, e := LoadConfig(path)
			So(errors.Is(e, ErrNoExecutable), ShouldBeTrue)
		})
	})
}
