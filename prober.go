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
	"net"
	"strconv"
	"time"
)

// Prober reports whether a worker endpoint is accepting connections.
// Probes may block for several seconds; the supervisor never probes
// from more than one goroutine.
type Prober interface {
	Probe(host string, port int) bool
}

// TCPProber checks reachability with a bare TCP connect.  No bytes are
// exchanged; the RPC protocol spoken on the port stays opaque.
type TCPProber struct {
	Timeout time.Duration
}

func (p *TCPProber) Probe(host string, port int) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
