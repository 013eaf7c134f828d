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
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries the daemon-side tunables.  The inference invocation
// itself never comes from here; that is always the command line, so a
// config file cannot silently change what gets executed.
type Config struct {
	// Name identifies this instance in the control API.
	Name string `yaml:"name"`

	// Listen is the HTTP control address.  Empty disables the API.
	Listen string `yaml:"listen"`

	// Auth is "user:secret" for HTTP basic auth.  The secret may be
	// a bcrypt hash.  Empty leaves the API open.
	Auth string `yaml:"auth"`

	// Executable is the inference binary to supervise.
	Executable string `yaml:"executable"`

	// StallSeconds is the quiet period that triggers a worker check.
	StallSeconds int `yaml:"stall_seconds"`

	// ProbeSeconds bounds each worker TCP probe.
	ProbeSeconds int `yaml:"probe_seconds"`

	// PollSeconds bounds each wait for child output.
	PollSeconds int `yaml:"poll_seconds"`

	// TickMillis is the pause between control loop passes.
	TickMillis int `yaml:"tick_millis"`

	// LogRecords sizes the output ring.
	LogRecords int `yaml:"log_records"`
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() *Config {
	return &Config{
		Name:         "llamavisord",
		Listen:       "127.0.0.1:8323",
		Executable:   DefaultExecutable,
		StallSeconds: int(DefaultStallThreshold / time.Second),
		ProbeSeconds: int(DefaultProbeTimeout / time.Second),
		PollSeconds:  int(DefaultPollTimeout / time.Second),
		TickMillis:   int(DefaultTickInterval / time.Millisecond),
		LogRecords:   MaxLogRecords,
	}
}

// LoadConfig reads a YAML file over the defaults.  Keys absent from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the supervisor cannot run with.
func (c *Config) Validate() error {
	if c.Executable == "" {
		return ErrNoExecutable
	}
	if c.StallSeconds <= 0 {
		return fmt.Errorf("stall_seconds must be positive")
	}
	if c.ProbeSeconds <= 0 {
		return fmt.Errorf("probe_seconds must be positive")
	}
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive")
	}
	if c.TickMillis <= 0 {
		return fmt.Errorf("tick_millis must be positive")
	}
	if c.LogRecords <= 0 {
		return fmt.Errorf("log_records must be positive")
	}
	return nil
}

func (c *Config) StallThreshold() time.Duration {
	return time.Duration(c.StallSeconds) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeSeconds) * time.Second
}

func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}
