package tui

import (
	"strings"

	"issuehub-cli/internal/model"
	"issuehub-cli/internal/workspace"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type modalKind int

const (
	modalProject modalKind = iota
	modalIssue
	modalComment
	modalMember
	modalStatus
)

type choice struct {
	value string
	label string
}

// formModal is a small form of textinputs plus at most one choice row that
// cycles with left/right. The choice row comes after the inputs.
type formModal struct {
	kind   modalKind
	title  string
	labels []string
	inputs []textinput.Model

	choiceLabel string
	choices     []choice
	choice      int

	focus int
	err   string
}

func newTextInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 2000
	// A static cursor keeps Focus from scheduling blink ticks.
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.SetValue(value)
	return ti
}

func projectModal(d workspace.ProjectDraft) *formModal {
	f := &formModal{
		kind:   modalProject,
		title:  "New project",
		labels: []string{"Name", "Key", "Description"},
		inputs: []textinput.Model{
			newTextInput("Apollo", d.Name),
			newTextInput("APL", d.Key),
			newTextInput("optional", d.Description),
		},
	}
	f.setFocus(0)
	return f
}

func issueModal(d workspace.IssueDraft) *formModal {
	f := &formModal{
		kind:   modalIssue,
		title:  "New issue",
		labels: []string{"Title", "Description"},
		inputs: []textinput.Model{
			newTextInput("What is wrong?", d.Title),
			newTextInput("optional, markdown", d.Description),
		},
		choiceLabel: "Priority",
	}
	for _, p := range model.Priorities {
		f.choices = append(f.choices, choice{value: string(p), label: p.Label()})
	}
	f.selectChoice(string(d.Priority))
	f.setFocus(0)
	return f
}

func commentModal(body string) *formModal {
	f := &formModal{
		kind:   modalComment,
		title:  "Comment",
		labels: []string{"Body"},
		inputs: []textinput.Model{newTextInput("markdown", body)},
	}
	f.setFocus(0)
	return f
}

func memberModal(d workspace.MemberDraft) *formModal {
	f := &formModal{
		kind:        modalMember,
		title:       "Add member",
		labels:      []string{"Email"},
		inputs:      []textinput.Model{newTextInput("user@example.com", d.Email)},
		choiceLabel: "Role",
	}
	for _, r := range model.Roles {
		f.choices = append(f.choices, choice{value: string(r), label: strings.ToUpper(string(r))})
	}
	f.selectChoice(string(d.Role))
	f.setFocus(0)
	return f
}

func statusModal(i model.Issue) *formModal {
	f := &formModal{
		kind:        modalStatus,
		title:       "Status: " + i.Title,
		choiceLabel: "Status",
	}
	for _, s := range model.IssueStatuses {
		f.choices = append(f.choices, choice{value: string(s), label: s.Label()})
	}
	f.selectChoice(string(i.Status))
	f.setFocus(0)
	return f
}

func (f *formModal) fieldCount() int {
	n := len(f.inputs)
	if len(f.choices) > 0 {
		n++
	}
	return n
}

func (f *formModal) onChoice() bool {
	return len(f.choices) > 0 && f.focus == len(f.inputs)
}

func (f *formModal) setFocus(i int) {
	n := f.fieldCount()
	if n == 0 {
		return
	}
	f.focus = (i%n + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *formModal) selectChoice(v string) {
	for i, c := range f.choices {
		if c.value == v {
			f.choice = i
			return
		}
	}
}

func (f *formModal) cycle(delta int) {
	n := len(f.choices)
	if n == 0 {
		return
	}
	f.choice = ((f.choice+delta)%n + n) % n
}

func (f *formModal) value(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	return f.inputs[i].Value()
}

func (f *formModal) choiceValue() string {
	if len(f.choices) == 0 {
		return ""
	}
	return f.choices[f.choice].value
}

// update handles navigation keys and forwards the rest to the focused input.
// It reports whether the key submitted or cancelled the form.
func (f *formModal) update(msg tea.KeyMsg) (submit, cancel bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return false, true, nil
	case "enter":
		return true, false, nil
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return false, false, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return false, false, nil
	case "left":
		if f.onChoice() {
			f.cycle(-1)
			return false, false, nil
		}
	case "right":
		if f.onChoice() {
			f.cycle(1)
			return false, false, nil
		}
	}
	if f.focus < len(f.inputs) {
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	}
	return false, false, cmd
}

func (f *formModal) view(width int) string {
	boxW := width - 10
	if boxW > 72 {
		boxW = 72
	}
	if boxW < 30 {
		boxW = 30
	}
	bodyW := boxW - 4

	var b strings.Builder
	b.WriteString(styleHeading().Render(f.title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := f.labels[i]
		if i == f.focus {
			label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(label)
		}
		b.WriteString(label + "\n")
		b.WriteString(renderInputLine(bodyW, in.View()) + "\n\n")
	}
	if len(f.choices) > 0 {
		label := f.choiceLabel
		if f.onChoice() {
			label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(label)
		}
		b.WriteString(label + "  ‹ " + f.choices[f.choice].label + " ›\n\n")
	}
	if f.err != "" {
		b.WriteString(styleError().Render(f.err) + "\n")
	}
	hint := "enter save · esc cancel · tab next"
	if len(f.choices) > 0 {
		hint += " · ←/→ change " + strings.ToLower(f.choiceLabel)
	}
	b.WriteString(styleMuted().Render(hint))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(boxW).
		Render(b.String())
}
