package cli

import (
	"fmt"
	"os"
	"strings"

	"issuehub-cli/internal/format"

	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	ConfigDir  string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "issuehub",
		Short:        "IssueHub terminal client (TUI + CLI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  issuehub

  # Log in once; the token is kept in local storage
  issuehub login --email ada@example.com

  # Scriptable commands
  issuehub projects list
  issuehub issues create 3 --title "Fix crash" --priority high

  # Direct issue lookup (shortcut for: issuehub issues show <issue-id>)
  issuehub 12
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Every store lookup goes through ISSUEHUB_CONFIG_DIR.
		if dir := strings.TrimSpace(app.ConfigDir); dir != "" {
			return os.Setenv("ISSUEHUB_CONFIG_DIR", dir)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("ISSUEHUB_API", ""), "Backend base URL (default: config apiUrl, then http://127.0.0.1:8000)")
	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("ISSUEHUB_CONFIG_DIR", ""), "Config and local storage dir (default: ~/.issuehub)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("ISSUEHUB_FORMAT", "json"), "Output format (json|text)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newIssuesCmd(app))
	cmd.AddCommand(newCommentsCmd(app))
	cmd.AddCommand(newMembersCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut wraps data in the {"data": ...} envelope. tbl is the text-format
// rendering and may be nil.
func writeOut(cmd *cobra.Command, app *App, data any, tbl *format.Table) error {
	return format.Write(cmd.OutOrStdout(), format.Envelope{Data: data, Table: tbl}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
