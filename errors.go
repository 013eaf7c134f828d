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
)

var (
	ErrNoWorkers    = errors.New("No worker endpoints supplied")
	ErrBadEndpoint  = errors.New("Bad worker endpoint")
	ErrBadPort      = errors.New("Bad worker port")
	ErrBadLayers    = errors.New("Bad GPU layer count")
	ErrNoExecutable = errors.New("No inference executable")
)
