package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"issuehub-cli/internal/format"
	"issuehub-cli/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change client configuration",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			apiURL := cfg.EffectiveAPIURL()
			if v := strings.TrimSpace(app.APIURL); v != "" {
				apiURL = v
			}
			out := map[string]any{
				"path":           path,
				"apiUrl":         apiURL,
				"timeoutSeconds": int(cfg.Timeout().Seconds()),
				"logPath":        cfg.LogPath,
				"logLevel":       cfg.LogLevel,
				"theme":          cfg.Theme(),
			}
			tbl := &format.Table{Headers: []string{"KEY", "VALUE"}}
			for _, k := range []string{"path", "apiUrl", "timeoutSeconds", "logPath", "logLevel", "theme"} {
				tbl.Rows = append(tbl.Rows, []string{k, fmt.Sprint(out[k])})
			}
			return writeOut(cmd, app, out, tbl)
		},
	}
}

func newConfigSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change a configuration value",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "api-url <url>",
		Short: "Set the backend base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return writeErr(cmd, errors.New("api url must be an absolute http(s) URL"))
			}
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg.APIURL = strings.TrimRight(raw, "/")
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"apiUrl": cfg.APIURL}, nil)
		},
	})
	return cmd
}
