package tui

import (
	"strings"

	"issuehub-cli/internal/session"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type loginModel struct {
	mode     session.Mode
	name     textinput.Model
	email    textinput.Model
	password textinput.Model

	focus      int
	err        string
	submitting bool
}

func newLoginModel() loginModel {
	l := loginModel{
		mode:     session.ModeLogin,
		name:     newTextInput("Ada Lovelace", ""),
		email:    newTextInput("ada@example.com", ""),
		password: newTextInput("", ""),
	}
	l.password.EchoMode = textinput.EchoPassword
	l.password.EchoCharacter = '•'
	l.setFocus(0)
	return l
}

// fields lists the visible inputs in tab order. Name is only shown in signup
// mode.
func (l *loginModel) fields() []*textinput.Model {
	if l.mode == session.ModeSignup {
		return []*textinput.Model{&l.name, &l.email, &l.password}
	}
	return []*textinput.Model{&l.email, &l.password}
}

func (l *loginModel) setFocus(i int) {
	fs := l.fields()
	n := len(fs)
	l.focus = (i%n + n) % n
	l.name.Blur()
	l.email.Blur()
	l.password.Blur()
	fs[l.focus].Focus()
}

func (l *loginModel) toggle() {
	f := session.Form{Mode: l.mode}
	f.Toggle()
	l.mode = f.Mode
	l.err = ""
	l.setFocus(0)
}

func (l loginModel) form() session.Form {
	f := session.Form{Mode: l.mode, Email: strings.TrimSpace(l.email.Value()), Password: l.password.Value()}
	if l.mode == session.ModeSignup {
		f.Name = strings.TrimSpace(l.name.Value())
	}
	return f
}

// update moves focus and edits fields. It reports whether enter was pressed.
func (l *loginModel) update(msg tea.KeyMsg) (submit bool, cmd tea.Cmd) {
	switch msg.String() {
	case "enter":
		return true, nil
	case "tab", "down":
		l.setFocus(l.focus + 1)
		return false, nil
	case "shift+tab", "up":
		l.setFocus(l.focus - 1)
		return false, nil
	case "ctrl+t":
		l.toggle()
		return false, nil
	}
	fs := l.fields()
	*fs[l.focus], cmd = fs[l.focus].Update(msg)
	return false, cmd
}

func (l loginModel) view(width, height int) string {
	title := "IssueHub · Log in"
	other := "sign up"
	if l.mode == session.ModeSignup {
		title = "IssueHub · Sign up"
		other = "log in"
	}
	bodyW := 40

	var b strings.Builder
	b.WriteString(styleHeading().Render(title) + "\n\n")

	labels := []string{"Email", "Password"}
	if l.mode == session.ModeSignup {
		labels = []string{"Name", "Email", "Password"}
	}
	for i, in := range l.fields() {
		label := labels[i]
		if i == l.focus {
			label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(label)
		}
		b.WriteString(label + "\n")
		b.WriteString(renderInputLine(bodyW, in.View()) + "\n\n")
	}

	switch {
	case l.submitting:
		b.WriteString(styleMuted().Render("Working...") + "\n")
	case l.err != "":
		b.WriteString(styleError().Render(l.err) + "\n")
	}
	b.WriteString(styleMuted().Render("enter submit · tab next · ctrl+t " + other + " · ctrl+c quit"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1, 2).
		Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
