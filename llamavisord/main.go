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

// Command llamavisord supervises a distributed llama.cpp inference
// run.  The inference invocation is given on the command line exactly
// as it would be passed to the inference binary itself:
//
//	llamavisord -m model.gguf -p "prompt" --rpc host1:port,host2:port
//
// Daemon options, when needed, go before a literal "--":
//
//	llamavisord -a :8323 -exec ./llama-cli -- -m model.gguf --rpc host:port
//
// The daemon exits 0 when the inference completes or a termination
// signal arrives, and 1 on a usage or configuration error.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/llamavisor/llamavisor"
	"github.com/llamavisor/llamavisor/rest"
)

func usage() {
	fmt.Fprintf(os.Stderr,
		"Usage: %s [daemon flags --] [inference options] --rpc host:port,host:port,...\n",
		path.Base(os.Args[0]))
	os.Exit(1)
}

// splitArgs separates daemon flags from the inference invocation.
// Without a "--" the whole command line is the invocation, so the
// daemon can be dropped in where the inference binary used to be.
func splitArgs(args []string) ([]string, []string) {
	for i, a := range args {
		if a == "--" {
			return args[:i], args[i+1:]
		}
	}
	return nil, args
}

// rpcList pulls the worker list out of the invocation.
func rpcList(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "--rpc" {
			return args[i+1]
		}
	}
	return ""
}

func main() {
	daemonArgs, workload := splitArgs(os.Args[1:])

	cfg := llamavisor.DefaultConfig()
	fs := flag.NewFlagSet("llamavisord", flag.ContinueOnError)
	fs.Usage = usage
	cfgFile := fs.String("c", "", "config file (YAML)")
	listen := fs.String("a", cfg.Listen, "control listen address (empty disables)")
	auth := fs.String("auth", "", "control auth as user:secret")
	execPath := fs.String("exec", cfg.Executable, "inference executable")
	name := fs.String("n", cfg.Name, "instance name")
	if fs.Parse(daemonArgs) != nil {
		usage()
	}
	if *cfgFile != "" {
		c, e := llamavisor.LoadConfig(*cfgFile)
		if e != nil {
			log.Fatalf("Failed to load config: %v", e)
		}
		cfg = c
	}
	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			cfg.Listen = *listen
		case "auth":
			cfg.Auth = *auth
		case "exec":
			cfg.Executable = *execPath
		case "n":
			cfg.Name = *name
		}
	})

	list := rpcList(workload)
	if list == "" {
		usage()
	}
	registry, e := llamavisor.NewRegistry(strings.Split(list, ","))
	if e != nil {
		log.Fatalf("Bad worker list: %v", e)
	}
	template, e := llamavisor.NewTemplate(cfg.Executable, workload)
	if e != nil {
		log.Fatalf("Bad invocation: %v", e)
	}

	s := llamavisor.NewSupervisor(cfg.Name, template, registry,
		llamavisor.WithStallThreshold(cfg.StallThreshold()),
		llamavisor.WithPollTimeout(cfg.PollTimeout()),
		llamavisor.WithTickInterval(cfg.TickInterval()),
		llamavisor.WithProber(&llamavisor.TCPProber{
			Timeout: cfg.ProbeTimeout(),
		}),
		llamavisor.WithLogCapacity(cfg.LogRecords),
	)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		s.Terminate()
	}()

	if cfg.Listen != "" {
		h := rest.NewHandler(s)
		if cfg.Auth != "" {
			user, secret, found := strings.Cut(cfg.Auth, ":")
			if !found || user == "" {
				log.Fatalf("Bad auth value, want user:secret")
			}
			h.SetAuth(user, secret)
		}
		go func() {
			// The child is the real job; losing the control
			// socket must not take it down.
			if e := http.ListenAndServe(cfg.Listen, h); e != nil {
				s.Logger().Printf("Control API failed: %v", e)
			}
		}()
	}

	if e := s.Run(); e != nil {
		log.Fatalf("Supervisor failed: %v", e)
	}
}
