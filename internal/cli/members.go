package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/format"
	"issuehub-cli/internal/model"

	"github.com/spf13/cobra"
)

func newMembersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Project membership commands",
	}
	cmd.AddCommand(newMembersListCmd(app))
	cmd.AddCommand(newMembersAddCmd(app))
	return cmd
}

func newMembersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List members of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				ms, err := c.client.Members.List(ctx, pid)
				if err != nil {
					return c.fail(cmd, err)
				}
				return writeOut(cmd, app, ms, membersTable(ms))
			})
		},
	}
}

func newMembersAddCmd(app *App) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add an existing user to a project by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			addr := strings.TrimSpace(email)
			if addr == "" {
				return writeErr(cmd, errors.New("--email is required"))
			}
			r, err := model.ParseRole(role)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				m, err := c.client.Members.Add(ctx, pid, api.MemberInput{Email: addr, Role: r})
				if err != nil {
					return c.fail(cmd, err)
				}
				return writeOut(cmd, app, m, membersTable([]model.ProjectMember{m}))
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user to add")
	cmd.Flags().StringVar(&role, "role", string(model.RoleDeveloper), "Role (viewer|developer|manager)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func membersTable(ms []model.ProjectMember) *format.Table {
	t := &format.Table{Headers: []string{"ID", "USER", "ROLE", "JOINED"}}
	for _, m := range ms {
		t.Rows = append(t.Rows, []string{fmt.Sprint(m.ID), fmt.Sprintf("User #%d", m.UserID), m.Role.Label(), m.JoinedAt.Format("2006-01-02")})
	}
	return t
}
