package tui

import (
	"fmt"

	"issuehub-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
)

type projectItem struct {
	project  model.Project
	selected bool
}

func (i projectItem) FilterValue() string { return i.project.Name }
func (i projectItem) isSelected() bool    { return i.selected }
func (i projectItem) Title() string {
	return fmt.Sprintf("%s  %s", i.project.Key, i.project.Name)
}

type issueItem struct {
	issue    model.Issue
	viewOnly bool
	selected bool
}

func (i issueItem) FilterValue() string { return i.issue.Title }
func (i issueItem) isSelected() bool    { return i.selected }

// Title is the issue row: title, status, the view-only marker and priority.
func (i issueItem) Title() string {
	s := fmt.Sprintf("%s  [%s]", i.issue.Title, i.issue.Status.Label())
	if i.viewOnly {
		s += " (view only)"
	}
	return s + "  " + i.issue.Priority.Label()
}

// Description is the first line of the issue description.
func (i issueItem) Description() string {
	return firstLine(model.Deref(i.issue.Description))
}

func projectItems(ps []model.Project, selected *model.Project) []list.Item {
	items := make([]list.Item, 0, len(ps))
	for _, p := range ps {
		items = append(items, projectItem{project: p, selected: selected != nil && selected.ID == p.ID})
	}
	return items
}

func issueItems(is []model.Issue, selected *model.Issue, viewOnly bool) []list.Item {
	items := make([]list.Item, 0, len(is))
	for _, i := range is {
		items = append(items, issueItem{issue: i, viewOnly: viewOnly, selected: selected != nil && selected.ID == i.ID})
	}
	return items
}

func newList(delegate list.ItemDelegate) list.Model {
	l := list.New(nil, delegate, 0, 0)
	// The app renders its own headings and footer.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	cursorUpKeys := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	l.KeyMap.CursorUp.SetKeys(append(cursorUpKeys, "ctrl+p")...)
	cursorDownKeys := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	l.KeyMap.CursorDown.SetKeys(append(cursorDownKeys, "ctrl+n")...)
	return l
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' || r == '\r' {
			return s[:i]
		}
	}
	return s
}
