// Package tui is the interactive IssueHub client: a login view and a
// two-column workspace driven by the session controller and the workspace
// synchronizer. Network calls only run inside tea.Cmds; their results come
// back as messages and are merged on the program's event loop.
package tui

import (
	"context"
	"log/slog"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/session"
	"issuehub-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type Deps struct {
	Session *session.Controller
	Client  *api.Client
	Log     *slog.Logger
	Config  *store.Config
}

func Run(ctx context.Context, deps Deps) error {
	applyColorProfilePreference()
	applyThemePreference(deps.Config.Theme())

	m := newAppModel(ctx, deps)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
