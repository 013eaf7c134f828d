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

// Command llamactl talks to a running llamavisord.  It uses
// subcommands.
//
// The flags are
//
//	-a <address>	- select the daemon address, default is
//			  http://127.0.0.1:8323
//	-u <user:pass>	- user name & password for basic auth
//
// Subcommands are
//
//	status   - show the workload status
//	workers  - list the RPC workers and their availability
//	log      - dump the buffered output
//	watch    - follow the output as it arrives
//	restart  - ask the daemon to relaunch the child
//	ui       - interactive dashboard (the default)
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/net/context"

	"github.com/llamavisor/llamavisor"
	"github.com/llamavisor/llamavisor/llamactl/ui"
	"github.com/llamavisor/llamavisor/rest"
)

var addr string = "http://127.0.0.1:8323"
var auth string = ""

func usage() {
	log.Fatalf("Usage: %s [-a <address>] [-u <user:pass>] <subcommand>",
		os.Args[0])
}

func stateLine(s *rest.Info) string {
	if s.Stalled {
		return s.State + " (stalled)"
	}
	return s.State
}

func showStatus(s *rest.Info) {
	fmt.Printf("Name:     %s\n", s.Name)
	fmt.Printf("State:    %s\n", stateLine(s))
	if s.Pid != 0 {
		fmt.Printf("Pid:      %d\n", s.Pid)
	}
	if !s.Started.IsZero() {
		up := time.Since(s.Started)
		up -= up % time.Second
		fmt.Printf("Uptime:   %v\n", up)
	}
	fmt.Printf("Restarts: %d\n", s.Restarts)
	fmt.Printf("Workers:  %d of %d in rotation\n", s.Available, s.Workers)
	fmt.Printf("Offload:  %d GPU layer(s)\n", s.Offload)
	if s.Pid != 0 {
		fmt.Printf("CPU:      %.1f%%\n", s.CPUPercent)
		fmt.Printf("RSS:      %d MiB\n", s.RSSBytes/(1024*1024))
	}
	quiet := time.Since(s.LastOutput)
	quiet -= quiet % time.Millisecond
	fmt.Printf("Quiet:    %v\n", quiet)
}

func showRecord(r llamavisor.LogRecord) {
	tag := ""
	if r.Source == llamavisor.SourceVisor {
		tag = "[visor] "
	}
	fmt.Printf("%s %s%s\n", r.Time.Format(time.StampMilli), tag, r.Text)
}

func main() {
	flag.StringVar(&addr, "a", addr, "llamavisord address")
	flag.StringVar(&auth, "u", auth, "user:pass authentication")
	flag.Parse()

	client := rest.NewClient(nil, addr)
	if auth != "" {
		a := strings.SplitN(auth, ":", 2)
		if len(a) != 2 {
			log.Fatalf("Bad user:pass supplied")
		}
		client.SetAuth(a[0], a[1])
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"ui"}
	}

	switch args[0] {
	case "status":
		if len(args) != 1 {
			usage()
		}
		s, e := client.Info()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		showStatus(s)

	case "workers":
		if len(args) != 1 {
			usage()
		}
		ws, e := client.Workers()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, w := range ws {
			st := "available"
			if !w.Available {
				st = "removed"
			}
			fmt.Printf("%-28s %-18s %5d  %s\n",
				w.Address, w.Host, w.Port, st)
		}

	case "log":
		if len(args) != 1 {
			usage()
		}
		li, e := client.GetLog()
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		if li != nil {
			for _, r := range li.Records {
				showRecord(r)
			}
		}

	case "watch":
		if len(args) != 1 {
			usage()
		}
		ctx := context.Background()
		var li *rest.LogInfo
		var lastId int64
		for {
			nli, e := client.WatchLog(ctx, li)
			if e != nil {
				log.Printf("Failed: %v", e)
				time.Sleep(2 * time.Second)
				continue
			}
			if nli == nil {
				continue
			}
			li = nli
			for _, r := range li.Records {
				if r.Id > lastId {
					showRecord(r)
					lastId = r.Id
				}
			}
		}

	case "restart":
		if len(args) != 1 {
			usage()
		}
		if e := client.Restart(); e != nil {
			log.Fatalf("Failed: %v", e)
		}

	case "ui":
		if len(args) != 1 {
			usage()
		}
		app := ui.NewApp(client, addr)
		if e := app.Run(); e != nil {
			log.Fatalf("Failed: %v", e)
		}

	default:
		usage()
	}
}
