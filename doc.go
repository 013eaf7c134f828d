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

// Package llamavisor keeps a distributed llama.cpp inference process
// alive.  It launches the inference executable as a child process,
// watches the merged stdout/stderr stream for liveness, and restarts
// the child when it crashes or goes quiet.  When the child stalls,
// the remote RPC workers backing the run are probed over TCP, and any
// that no longer accept connections are dropped from the argument
// list before the child is relaunched.  If every worker is gone the
// child is relaunched without GPU offload so that inference can limp
// along on the local CPU.
//
// The supervisor itself is a library.  The llamavisord command wraps
// it in a daemon with an optional HTTP control surface, and llamactl
// is a small client for that surface.  Both live under this module.
package llamavisor

// Version is reported by the control API and the client tools.
const Version = "0.9.1"
