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

// Package ui implements the llamactl dashboard.  It keeps a local
// mirror of the daemon state, refreshed by long polls on background
// goroutines, and the panels render from that mirror.
package ui

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
	"golang.org/x/net/context"

	"github.com/llamavisor/llamavisor"
	"github.com/llamavisor/llamavisor/rest"
)

type App struct {
	app     *views.Application
	client  *rest.Client
	url     string
	panel   views.Widget
	view    views.View
	main    *MainPanel
	logPnl  *LogPanel
	help    *HelpPanel
	info    *rest.Info
	workers []rest.WorkerInfo
	log     *rest.LogInfo
	err     error
	lock    sync.Mutex

	views.WidgetWatchers
}

func (a *App) GetAppName() string {
	return "Llamavisor v" + llamavisor.Version
}

func (a *App) GetURL() string {
	return a.url
}

// GetInfo returns the cached workload status and the last transport
// error, either of which may be nil.
func (a *App) GetInfo() (*rest.Info, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.info, a.err
}

func (a *App) GetWorkers() []rest.WorkerInfo {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.workers
}

func (a *App) GetLog() *rest.LogInfo {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.log
}

// Restart asks the daemon to relaunch the child.  The call runs off
// the event loop so a slow daemon cannot freeze the screen.
func (a *App) Restart() {
	go func() {
		if e := a.client.Restart(); e != nil {
			a.lock.Lock()
			a.err = e
			a.lock.Unlock()
		}
		a.app.Update()
	}()
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		if a.panel != nil {
			a.panel.SetView(nil)
		}
		a.panel = w
		if a.view != nil {
			w.SetView(a.view)
		}
	}
	a.app.Refresh()
}

func (a *App) ShowMain() {
	a.show(a.main)
}

func (a *App) ShowLog() {
	a.show(a.logPnl)
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) Quit() {
	a.app.Quit()
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}
	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

// refreshInfo long polls the status resource.  Worker availability
// changes bump the daemon serial, so the worker list is refetched
// whenever the status moves.
func (a *App) refreshInfo() {
	ctx := context.Background()
	var last *rest.Info
	for {
		info, e := a.client.WatchInfo(ctx, last)
		var workers []rest.WorkerInfo
		if e == nil {
			workers, _ = a.client.Workers()
		}
		a.lock.Lock()
		a.err = e
		if e == nil && info != nil {
			a.info = info
			last = info
		}
		if workers != nil {
			a.workers = workers
		}
		a.lock.Unlock()
		a.app.Update()
		if e != nil {
			time.Sleep(2 * time.Second)
		}
	}
}

func (a *App) refreshLog() {
	ctx := context.Background()
	var last *rest.LogInfo
	for {
		li, e := a.client.WatchLog(ctx, last)
		if e != nil {
			time.Sleep(2 * time.Second)
			continue
		}
		if li == nil {
			continue
		}
		a.lock.Lock()
		a.log = li
		a.lock.Unlock()
		last = li
		a.app.Update()
	}
}

// tick redraws once a second so uptime and quiet counters move.
func (a *App) tick() {
	for {
		time.Sleep(time.Second)
		a.app.Update()
	}
}

func (a *App) Run() error {
	go a.refreshInfo()
	go a.refreshLog()
	go a.tick()
	a.ShowMain()
	return a.app.Run()
}

func NewApp(client *rest.Client, url string) *App {
	a := &App{client: client, url: url}
	a.app = &views.Application{}
	a.main = NewMainPanel(a)
	a.logPnl = NewLogPanel(a)
	a.help = NewHelpPanel(a)
	a.app.SetRootWidget(a)
	return a
}
