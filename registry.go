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

// DefaultWorkerPort is assumed when an endpoint omits the port.
const DefaultWorkerPort = 50053

// Endpoint is a single remote RPC worker.  Address is the exact string
// the operator supplied, and is what gets handed back to the child, so
// that whatever name resolution the inference stack performs is left
// undisturbed.  Host and Port are only used for reachability probes.
type Endpoint struct {
	Address string
	Host    string
	Port    int

	available bool
}

// Available reports whether the endpoint is still in rotation.
func (e Endpoint) Available() bool {
	return e.available
}

// ParseEndpoint splits "host:port" on the first colon.  The port is
// optional; anything after the first colon must be numeric.
func ParseEndpoint(address string) (*Endpoint, error) {
	e := &Endpoint{
		Address:   address,
		Host:      address,
		Port:      DefaultWorkerPort,
		available: true,
	}
	if i := strings.Index(address, ":"); i >= 0 {
		port, err := strconv.Atoi(address[i+1:])
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", address, ErrBadPort)
		}
		e.Host = address[:i]
		e.Port = port
	}
	if e.Host == "" {
		return nil, fmt.Errorf("endpoint %q: %w", address, ErrBadEndpoint)
	}
	return e, nil
}

// Registry tracks the worker endpoints for one inference run.  Workers
// only ever leave rotation; nothing brings one back short of restarting
// the daemon.  The registry does no locking of its own.  The supervisor
// owns it and serializes access.
type Registry struct {
	endpoints []*Endpoint
}

// NewRegistry parses the given addresses in order.  An empty list is a
// configuration error, not an empty registry.
func NewRegistry(addresses []string) (*Registry, error) {
	if len(addresses) == 0 {
		return nil, ErrNoWorkers
	}
	r := &Registry{}
	for _, a := range addresses {
		e, err := ParseEndpoint(a)
		if err != nil {
			return nil, err
		}
		r.endpoints = append(r.endpoints, e)
	}
	return r, nil
}

// Endpoints returns every endpoint, available or not, in the order
// the operator listed them.
func (r *Registry) Endpoints() []*Endpoint {
	return r.endpoints
}

// Available returns the endpoints still in rotation, preserving the
// original order so rebuilt argument lists are deterministic.
func (r *Registry) Available() []*Endpoint {
	var avail []*Endpoint
	for _, e := range r.endpoints {
		if e.available {
			avail = append(avail, e)
		}
	}
	return avail
}

// MarkUnavailable takes the endpoint out of rotation.  Marking an
// endpoint twice is harmless.
func (r *Registry) MarkUnavailable(ep *Endpoint) {
	ep.available = false
}

// AllUnavailable reports whether no workers remain in rotation.
func (r *Registry) AllUnavailable() bool {
	for _, e := range r.endpoints {
		if e.available {
			return false
		}
	}
	return true
}

// Snapshot copies the endpoint list for use outside the supervisor
// lock, such as by the HTTP handlers.
func (r *Registry) Snapshot() []Endpoint {
	eps := make([]Endpoint, 0, len(r.endpoints))
	for _, e := range r.endpoints {
		eps = append(eps, *e)
	}
	return eps
}
