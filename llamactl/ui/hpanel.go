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
	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
)

var helpText = []string{
	"Supported keys (not all keys available in all contexts)",
	"",
	"  <CTRL-C>    : quit",
	"  <CTRL-L>    : refresh the screen",
	"  <ESC>       : return to the main screen",
	"  <Q>         : quit (main screen) or return to main",
	"  <L>         : show the output log",
	"  <R>         : ask the daemon to restart the child",
	"  <H> or <F1> : this screen",
	"",
	"The main screen lists the RPC workers backing the inference",
	"run.  Workers the daemon has removed after failing a probe",
	"are shown in red; they do not come back until the daemon is",
	"restarted with a fresh worker list.",
}

type HelpPanel struct {
	text *views.TextArea

	Panel
}

func NewHelpPanel(app *App) *HelpPanel {
	p := &HelpPanel{}
	p.Panel.Init(app)

	p.SetTitle("Help")
	p.SetKeys([]string{"[ESC] Main"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(tcell.StyleDefault.
		Foreground(tcell.ColorSilver).Background(tcell.ColorBlack))
	p.text.SetLines(helpText)
	p.SetContent(p.text)

	return p
}

func (p *HelpPanel) HandleEvent(ev tcell.Event) bool {
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
				return true
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}
