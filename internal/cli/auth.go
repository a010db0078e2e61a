package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/format"
	"issuehub-cli/internal/model"
	"issuehub-cli/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthFlow(cmd, app, session.Form{Mode: session.ModeLogin, Email: email, Password: password})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCmd(app *App) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account, then log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthFlow(cmd, app, session.Form{Mode: session.ModeSignup, Name: name, Email: email, Password: password})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runAuthFlow(cmd *cobra.Command, app *App, form session.Form) error {
	ctx := commandContext(cmd)
	if form.Password == "" {
		pw, err := readPassword(cmd)
		if err != nil {
			return writeErr(cmd, err)
		}
		form.Password = pw
	}
	if err := form.Validate(); err != nil {
		return writeErr(cmd, err)
	}

	c, err := connect(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer c.Close()

	tok, err := session.Submit(ctx, c.client.Auth, form)
	if err != nil {
		c.log.Info("auth flow failed", "mode", form.Mode.String(), "err", errors.Unwrap(err))
		return writeErr(cmd, err)
	}
	u, err := settleUser(ctx, c, func() (session.Effect, error) { return c.ctrl.Authenticate(ctx, tok) })
	if err != nil {
		return c.fail(cmd, err)
	}
	return writeOut(cmd, app, u, userTable(u))
}

// settleUser runs a session transition through its user fetch and returns
// the logged-in user.
func settleUser(ctx context.Context, c *conn, begin func() (session.Effect, error)) (model.User, error) {
	eff, err := begin()
	if err != nil {
		return model.User{}, err
	}
	if eff == nil {
		return model.User{}, errNotLoggedIn
	}
	res := eff(ctx)
	c.ctrl.Apply(ctx, res)
	if u := c.ctrl.User(); u != nil && c.ctrl.Phase() == session.PhaseLoggedIn {
		return *u, nil
	}
	if res.Err != nil {
		return model.User{}, res.Err
	}
	return model.User{}, errNotLoggedIn
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			c, err := connect(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer c.Close()
			if err := c.ctrl.Logout(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"loggedOut": true}, nil)
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			c, err := connect(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer c.Close()
			u, err := settleUser(ctx, c, func() (session.Effect, error) { return c.ctrl.Start(ctx), nil })
			if err != nil {
				if api.IsUnauthorized(err) {
					// Apply already cleared the token.
					return writeErr(cmd, errSessionExpired)
				}
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, u, userTable(u))
		},
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func userTable(u model.User) *format.Table {
	return &format.Table{
		Headers: []string{"ID", "NAME", "EMAIL"},
		Rows:    [][]string{{fmt.Sprint(u.ID), u.Name, u.Email}},
	}
}
