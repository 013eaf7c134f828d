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
	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a point-in-time sample of the child's resource usage.
type Stats struct {
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
	NumThreads int32   `json:"numThreads"`
}

// SampleStats inspects the given pid.  Sampling is best effort; the
// child may die between the caller reading the pid and us looking it
// up, so errors just mean no sample.  Fields the platform cannot
// report are left zero.
func SampleStats(pid int) (Stats, error) {
	var st Stats
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return st, err
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mi, err := p.MemoryInfo(); err == nil && mi != nil {
		st.RSSBytes = mi.RSS
	}
	if nt, err := p.NumThreads(); err == nil {
		st.NumThreads = nt
	}
	return st, nil
}
