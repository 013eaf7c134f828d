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

	"github.com/llamavisor/llamavisor"
)

// LogPanel shows the buffered output, child lines verbatim and
// supervisor notices tagged.
type LogPanel struct {
	text *views.TextArea

	Panel
}

func NewLogPanel(app *App) *LogPanel {
	p := &LogPanel{}

	p.Panel.Init(app)
	p.SetTitle("Output")
	p.SetKeys([]string{"[ESC] Main", "[R] Restart", "[H] Help"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(tcell.StyleDefault.
		Foreground(tcell.ColorSilver).Background(tcell.ColorBlack))
	p.SetContent(p.text)
	p.update()

	return p
}

func (p *LogPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *LogPanel) HandleEvent(ev tcell.Event) bool {
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
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
func (p *LogPanel) update() {
	info, err := p.App().GetInfo()
	li := p.App().GetLog()

	if err != nil {
		p.SetStatus(fmt.Sprintf("No data: %v", err))
		p.SetError()
		p.text.SetLines([]string{""})
		return
	}
	if li == nil {
		p.SetStatus("Loading ...")
		p.SetNormal()
		p.text.SetLines([]string{""})
		return
	}

	p.SetStatus("")
	if info != nil {
		switch {
		case info.Stalled:
			p.SetWarn()
		case info.State == "running":
			p.SetGood()
		case info.State == "failed" || info.State == "signaled":
			p.SetError()
		default:
			p.SetNormal()
		}
	}

	lines := make([]string, 0, len(li.Records))
	for _, r := range li.Records {
		tag := ""
		if r.Source == llamavisor.SourceVisor {
			tag = "[visor] "
		}
		lines = append(lines, fmt.Sprintf("%s %s%s",
			r.Time.Format(time.StampMilli), tag, r.Text))
	}
	p.text.SetLines(lines)
}
