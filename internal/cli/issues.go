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

func newIssuesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Issue commands",
	}
	cmd.AddCommand(newIssuesListCmd(app))
	cmd.AddCommand(newIssuesShowCmd(app))
	cmd.AddCommand(newIssuesCreateCmd(app))
	cmd.AddCommand(newIssuesSetStatusCmd(app))
	return cmd
}

func newIssuesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List issues of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				is, err := c.client.Issues.List(ctx, pid)
				if err != nil {
					return c.fail(cmd, err)
				}
				return writeOut(cmd, app, is, issuesTable(is))
			})
		},
	}
}

func newIssuesShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				is, err := c.client.Issues.Get(ctx, id)
				if err != nil {
					return c.fail(cmd, notFoundAs(err, "issue", id))
				}
				return writeOut(cmd, app, is, issuesTable([]model.Issue{is}))
			})
		},
	}
}

func newIssuesCreateCmd(app *App) *cobra.Command {
	var title, description, priority string

	cmd := &cobra.Command{
		Use:   "create <project-id>",
		Short: "Create an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(title) == "" {
				return writeErr(cmd, errors.New("--title is required"))
			}
			prio, err := model.ParsePriority(priority)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				is, err := c.client.Issues.Create(ctx, pid, api.IssueInput{Title: title, Description: description, Priority: prio})
				if err != nil {
					return c.fail(cmd, err)
				}
				return writeOut(cmd, app, is, issuesTable([]model.Issue{is}))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Issue title")
	cmd.Flags().StringVar(&description, "description", "", "Optional description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", string(model.PriorityMedium), "Priority (low|medium|high)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newIssuesSetStatusCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "set-status <issue-id>",
		Short: "Change an issue's status (project managers only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := model.ParseIssueStatus(status)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				is, err := c.client.Issues.UpdateStatus(ctx, id, st)
				if err != nil {
					return c.fail(cmd, notFoundAs(err, "issue", id))
				}
				return writeOut(cmd, app, is, issuesTable([]model.Issue{is}))
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "New status (open|in_progress|closed)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func issuesTable(is []model.Issue) *format.Table {
	t := &format.Table{Headers: []string{"ID", "TITLE", "STATUS", "PRIORITY", "REPORTER", "ASSIGNEE"}}
	for _, i := range is {
		assignee := ""
		if i.AssigneeID != nil {
			assignee = fmt.Sprint(*i.AssigneeID)
		}
		t.Rows = append(t.Rows, []string{fmt.Sprint(i.ID), i.Title, i.Status.Label(), i.Priority.Label(), fmt.Sprint(i.ReporterID), assignee})
	}
	return t
}
