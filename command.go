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
	"fmt"
	"strconv"
	"strings"
)

// DefaultOffloadLayers is used when the operator never asked for a
// specific GPU layer count.
const DefaultOffloadLayers = 99

// Template holds the operator's original invocation and rebuilds the
// child's argument vector from it on every launch.  The original
// arguments are never mutated; --rpc and the layer flags are stripped
// and re-appended to reflect whichever workers are still alive.
type Template struct {
	executable string
	args       []string
	layers     int
}

// NewTemplate captures the executable path and the operator arguments.
// The requested GPU layer count is parsed up front (first -ngl or
// --n-gpu-layers wins) so that a bad value fails at startup rather
// than on some later restart.
func NewTemplate(executable string, args []string) (*Template, error) {
	if executable == "" {
		return nil, ErrNoExecutable
	}
	t := &Template{
		executable: executable,
		args:       append([]string(nil), args...),
		layers:     DefaultOffloadLayers,
	}
	for i := 0; i+1 < len(t.args); i++ {
		if t.args[i] == "-ngl" || t.args[i] == "--n-gpu-layers" {
			n, err := strconv.Atoi(t.args[i+1])
			if err != nil {
				return nil, fmt.Errorf("layer count %q: %w",
					t.args[i+1], ErrBadLayers)
			}
			t.layers = n
			break
		}
	}
	return t, nil
}

// Executable returns the path of the inference binary.
func (t *Template) Executable() string {
	return t.executable
}

// OffloadLayers returns the GPU layer count used while any worker
// remains reachable.
func (t *Template) OffloadLayers() int {
	return t.layers
}

// Build produces the full child argument vector, element 0 included,
// for the given set of surviving workers.  Passthrough arguments keep
// their original order.  With at least one worker the result ends in
// "--rpc host:port,... -ngl N"; with none it ends in "-ngl 0" and no
// --rpc flag at all, forcing a CPU-only run.
func (t *Template) Build(available []*Endpoint) []string {
	args := make([]string, 0, len(t.args)+5)
	args = append(args, t.executable)
	skip := false
	for _, a := range t.args {
		if skip {
			skip = false
			continue
		}
		switch a {
		case "--rpc", "-ngl", "--n-gpu-layers":
			skip = true
		default:
			args = append(args, a)
		}
	}
	if len(available) == 0 {
		return append(args, "-ngl", "0")
	}
	addrs := make([]string, 0, len(available))
	for _, e := range available {
		addrs = append(addrs, e.Address)
	}
	args = append(args, "--rpc", strings.Join(addrs, ","))
	args = append(args, "-ngl", strconv.Itoa(t.layers))
	return args
}
