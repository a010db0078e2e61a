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

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsListCmd(app))
	return cmd
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var name, key, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project (you become its manager)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" || strings.TrimSpace(key) == "" {
				return writeErr(cmd, errors.New("--name and --key are required"))
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				p, err := c.client.Projects.Create(ctx, api.ProjectInput{Name: name, Key: key, Description: description})
				if err != nil {
					return c.fail(cmd, err)
				}
				return writeOut(cmd, app, p, projectsTable([]model.Project{p}))
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&key, "key", "", "Project key (unique)")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects you are a member of",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				ps, err := c.client.Projects.List(ctx)
				if err != nil {
					return c.fail(cmd, err)
				}
				return writeOut(cmd, app, ps, projectsTable(ps))
			})
		},
	}
}

func projectsTable(ps []model.Project) *format.Table {
	t := &format.Table{Headers: []string{"ID", "KEY", "NAME", "DESCRIPTION"}}
	for _, p := range ps {
		t.Rows = append(t.Rows, []string{fmt.Sprint(p.ID), p.Key, p.Name, model.Deref(p.Description)})
	}
	return t
}
