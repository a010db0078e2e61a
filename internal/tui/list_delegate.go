package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// rowDelegate renders one or two lines per item: the title, and for items
// with a description a muted second line. The cursor row is highlighted and
// the row the workspace has selected is bold.
type rowDelegate struct {
	lines    int
	normal   lipgloss.Style
	cursor   lipgloss.Style
	selected lipgloss.Style
	detail   lipgloss.Style
}

func newRowDelegate(lines int) rowDelegate {
	if lines < 1 {
		lines = 1
	}
	return rowDelegate{
		lines:    lines,
		normal:   lipgloss.NewStyle(),
		cursor:   lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg),
		selected: lipgloss.NewStyle().Bold(true),
		detail:   styleMuted(),
	}
}

func (d rowDelegate) Height() int                             { return d.lines }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}

	style := d.normal
	if s, ok := item.(interface{ isSelected() bool }); ok && s.isSelected() {
		style = d.selected
	}
	if index == m.Index() && m.FilterState() != list.Filtering {
		style = style.Inherit(d.cursor)
	}

	title := fmt.Sprint(item)
	if t, ok := item.(interface{ Title() string }); ok {
		title = t.Title()
	}
	out := style.Render(fit(" "+title, contentW))

	if d.lines > 1 {
		desc := ""
		if dd, ok := item.(interface{ Description() string }); ok {
			desc = dd.Description()
		}
		out += "\n" + d.detail.Render(fit("   "+desc, contentW))
	}
	fmt.Fprint(w, out)
}

// fit pads or cuts s to exactly w columns.
func fit(s string, w int) string {
	sw := xansi.StringWidth(s)
	switch {
	case sw < w:
		return s + strings.Repeat(" ", w-sw)
	case sw > w:
		return xansi.Cut(s, 0, w-1) + "…"
	}
	return s
}
