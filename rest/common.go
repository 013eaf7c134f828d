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

// Package rest exposes a supervisor over HTTP and provides the client
// used by llamactl.  Resources carry Etags derived from the supervisor
// serial and the log ID, so clients can long poll instead of hammering
// the daemon.
package rest

import (
	"time"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// PollEtagHeader asks the server to hold the request until the
	// resource moves past this Etag, or PollTimeHeader seconds pass.
	PollEtagHeader = "X-Llamavisor-Poll-Etag"
	PollTimeHeader = "X-Llamavisor-Poll-Seconds"

	// maxPollSecs caps a long poll server side.
	maxPollSecs = 300
)

var ok struct{}

// Info describes the supervised workload.
type Info struct {
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	State      string    `json:"state"`
	Pid        int       `json:"pid,omitempty"`
	Restarts   int       `json:"restarts"`
	Created    time.Time `json:"created"`
	Started    time.Time `json:"started"`
	LastOutput time.Time `json:"lastOutput"`
	Stalled    bool      `json:"stalled"`
	Offload    int       `json:"offloadLayers"`
	Workers    int       `json:"workers"`
	Available  int       `json:"availableWorkers"`
	CPUPercent float64   `json:"cpuPercent,omitempty"`
	RSSBytes   uint64    `json:"rssBytes,omitempty"`

	etag string
}

// WorkerInfo describes one RPC worker endpoint.
type WorkerInfo struct {
	Address   string `json:"address"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Available bool   `json:"available"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
