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

package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
)

var (
	workerStyleHead = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorBlack).Bold(true)
	workerStyleUp = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	workerStyleDown = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack).Bold(true)
)

// mainModel feeds the worker table to a CellView.  Rows are plain
// ASCII strings with one style each; no cursor is shown.
type mainModel struct {
	lines  []string
	styles []tcell.Style
	width  int
}

func (m *mainModel) GetBounds() (int, int) {
	return m.width, len(m.lines)
}

func (m *mainModel) MoveCursor(ox, oy int) {
}

func (m *mainModel) GetCursor() (int, int, bool, bool) {
	return 0, 0, false, false
}

func (m *mainModel) SetCursor(x, y int) {
}

func (m *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	if y < 0 || y >= len(m.lines) || x < 0 {
		return 0, tcell.StyleDefault, nil, 1
	}
	line := m.lines[y]
	style := m.styles[y]
	if x >= len(line) {
		return ' ', style, nil, 1
	}
	return rune(line[x]), style, nil, 1
}

func (m *mainModel) setLines(lines []string, styles []tcell.Style) {
	m.lines = lines
	m.styles = styles
	m.width = 0
	for _, l := range lines {
		if len(l) > m.width {
			m.width = len(l)
		}
	}
}

// MainPanel shows the workload summary in the status bar and the RPC
// worker table in the body.
type MainPanel struct {
	v *views.CellView
	m *mainModel

	Panel
}

func NewMainPanel(app *App) *MainPanel {
	p := &MainPanel{}
	p.Panel.Init(app)
	p.SetTitle(app.GetURL())
	p.SetKeys([]string{"[Q] Quit", "[L] Log", "[R] Restart", "[H] Help"})

	p.m = &mainModel{}
	p.v = views.NewCellView()
	p.v.SetModel(p.m)
	p.v.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	p.SetContent(p.v)
	p.update()

	return p
}

func (p *MainPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *MainPanel) HandleEvent(ev tcell.Event) bool {
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.Quit()
				return true
			case 'L', 'l':
				app.ShowLog()
				return true
			case 'R', 'r':
				app.Restart()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

// update must be called from the event loop.
func (p *MainPanel) update() {
	info, err := p.App().GetInfo()
	workers := p.App().GetWorkers()

	if err != nil {
		p.SetStatus(fmt.Sprintf("No connection: %v", err))
		p.SetError()
		p.m.setLines([]string{""}, []tcell.Style{workerStyleHead})
		return
	}
	if info == nil {
		p.SetStatus("Loading ...")
		p.SetNormal()
		p.m.setLines([]string{""}, []tcell.Style{workerStyleHead})
		return
	}

	status := info.State
	if info.Pid != 0 {
		up := time.Since(info.Started)
		up -= up % time.Second
		status = fmt.Sprintf("%s pid %d up %v", info.State,
			info.Pid, up)
	}
	status = fmt.Sprintf("%s  restarts %d  offload %d  workers %d/%d",
		status, info.Restarts, info.Offload, info.Available,
		info.Workers)
	if info.Stalled {
		status += "  STALLED"
	}
	p.SetStatus(status)

	switch {
	case info.Stalled:
		p.SetWarn()
	case info.State == "running":
		p.SetGood()
	case info.State == "failed" || info.State == "signaled":
		p.SetError()
	case info.State == "exited":
		p.SetNormal()
	default:
		p.SetWarn()
	}

	lines := make([]string, 0, len(workers)+1)
	styles := make([]tcell.Style, 0, len(workers)+1)
	lines = append(lines, fmt.Sprintf(" %-28s %-18s %5s  %s",
		"ADDRESS", "HOST", "PORT", "STATE"))
	styles = append(styles, workerStyleHead)
	for _, w := range workers {
		st := "available"
		style := workerStyleUp
		if !w.Available {
			st = "removed"
			style = workerStyleDown
		}
		lines = append(lines, fmt.Sprintf(" %-28s %-18s %5d  %s",
			w.Address, w.Host, w.Port, st))
		styles = append(styles, style)
	}
	p.m.setLines(lines, styles)
}
