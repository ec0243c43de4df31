// Copyright 2025 The Embedded Redis Authors
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

package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ozimov/embedded-redis/rest"
)

var (
	styleTitle = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorSilver)
	styleNormal = tcell.StyleDefault
	styleSelect = tcell.StyleDefault.Reverse(true)
	styleGood   = tcell.StyleDefault.
			Foreground(tcell.ColorGreen)
	styleBad = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Bold(true)
	styleKeys = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorSilver)
)

// monitor is the full screen cluster view.  It polls the REST API once
// a second and redraws; there is no push channel in the API, and for a
// test cluster polling is plenty.
type monitor struct {
	client   *rest.Client
	addr     string
	screen   tcell.Screen
	infos    []*rest.InstanceInfo
	selected int
	err      error
}

type eventRefresh struct {
	tcell.EventTime
}

func (m *monitor) refresh() {
	names, e := m.client.Instances()
	if e != nil {
		m.err = e
		return
	}
	sort.Strings(names)
	infos := make([]*rest.InstanceInfo, 0, len(names))
	for _, n := range names {
		if info, e := m.client.GetInstance(n); e == nil {
			infos = append(infos, info)
		}
	}
	m.infos = infos
	m.err = nil
	if m.selected >= len(m.infos) {
		m.selected = len(m.infos) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *monitor) emitStr(x, y int, style tcell.Style, str string) {
	for _, c := range str {
		m.screen.SetContent(x, y, c, nil, style)
		x++
	}
}

func (m *monitor) emitLine(y int, style tcell.Style, str string) {
	w, _ := m.screen.Size()
	if len(str) < w {
		str = str + strings.Repeat(" ", w-len(str))
	}
	m.emitStr(0, y, style, str)
}

func (m *monitor) draw() {
	m.screen.Clear()
	_, h := m.screen.Size()

	m.emitLine(0, styleTitle, fmt.Sprintf("Redis cluster @ %s", m.addr))
	if m.err != nil {
		m.emitLine(1, styleBad, fmt.Sprintf("Error: %v", m.err))
	}
	row := 2
	for i, info := range m.infos {
		if row >= h-1 {
			break
		}
		style := styleNormal
		if i == m.selected {
			style = styleSelect
		}
		st := "active"
		sst := styleGood
		if !info.Active {
			st = "stopped"
			sst = styleBad
		}
		ports := make([]string, 0, len(info.Ports))
		for _, p := range info.Ports {
			ports = append(ports, fmt.Sprintf("%d", p))
		}
		m.emitLine(row, style, fmt.Sprintf("  %-24s %-8s %s",
			info.Name, st, strings.Join(ports, ",")))
		if i != m.selected {
			// Status cell gets its own color when not selected.
			m.emitStr(27, row, sst, fmt.Sprintf("%-8s", st))
		}
		row++
	}
	m.emitLine(h-1, styleKeys,
		"[Q] Quit  [R] Refresh  [S] Stop  [T] Start  [UP/DOWN] Select")
	m.screen.Show()
}

func (m *monitor) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		if m.selected > 0 {
			m.selected--
		}
	case tcell.KeyDown:
		if m.selected < len(m.infos)-1 {
			m.selected++
		}
	case tcell.KeyCtrlL:
		m.screen.Sync()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return false
		case 'r', 'R':
			m.refresh()
		case 's', 'S':
			if m.selected < len(m.infos) {
				m.client.StopInstance(m.infos[m.selected].Name)
				m.refresh()
			}
		case 't', 'T':
			if m.selected < len(m.infos) {
				// Start blocks on readiness, so detach it
				// and pick the result up on the next poll.
				name := m.infos[m.selected].Name
				go m.client.StartInstance(name)
			}
		}
	}
	return true
}

func doMonitor(client *rest.Client, addr string) {
	s, e := tcell.NewScreen()
	if e != nil {
		fmt.Printf("Cannot open screen: %v\n", e)
		return
	}
	if e = s.Init(); e != nil {
		fmt.Printf("Cannot init screen: %v\n", e)
		return
	}
	defer s.Fini()

	m := &monitor{client: client, addr: addr, screen: s}
	m.refresh()

	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-quit:
				return
			case <-time.After(time.Second):
			}
			ev := &eventRefresh{}
			ev.SetEventNow()
			s.PostEvent(ev)
		}
	}()
	defer close(quit)

	for {
		m.draw()
		switch ev := s.PollEvent().(type) {
		case *tcell.EventResize:
			s.Sync()
		case *eventRefresh:
			m.refresh()
		case *tcell.EventKey:
			if !m.handleKey(ev) {
				return
			}
		}
	}
}
