package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"issuehub-cli/internal/format"
	"issuehub-cli/internal/model"

	"github.com/spf13/cobra"
)

func newCommentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Comment commands",
	}
	cmd.AddCommand(newCommentsAddCmd(app))
	cmd.AddCommand(newCommentsListCmd(app))
	return cmd
}

func newCommentsAddCmd(app *App) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "add <issue-id>",
		Short: "Add a comment to an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			// Blank bodies never reach the backend.
			text := strings.TrimSpace(body)
			if text == "" {
				return writeErr(cmd, errors.New("comment body is empty"))
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				cm, err := c.client.Comments.Create(ctx, id, text)
				if err != nil {
					return c.fail(cmd, notFoundAs(err, "issue", id))
				}
				return writeOut(cmd, app, cm, commentsTable([]model.Comment{cm}))
			})
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Comment body (markdown)")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommentsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <issue-id>",
		Short: "List comments on an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return withSession(cmd, app, func(ctx context.Context, c *conn) error {
				cs, err := c.client.Comments.List(ctx, id)
				if err != nil {
					return c.fail(cmd, notFoundAs(err, "issue", id))
				}
				return writeOut(cmd, app, cs, commentsTable(cs))
			})
		},
	}
}

func commentsTable(cs []model.Comment) *format.Table {
	t := &format.Table{Headers: []string{"ID", "AUTHOR", "CREATED", "BODY"}}
	for _, c := range cs {
		t.Rows = append(t.Rows, []string{fmt.Sprint(c.ID), fmt.Sprintf("User #%d", c.AuthorID), c.CreatedAt.Format("2006-01-02 15:04"), c.Body})
	}
	return t
}
