package cli

import (
	"issuehub-cli/internal/tui"

	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, app *App) error {
	ctx := commandContext(cmd)
	c, err := connect(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer c.Close()

	c.log.Info("starting tui", "api", c.client.BaseURL())
	if err := tui.Run(ctx, tui.Deps{Session: c.ctrl, Client: c.client, Log: c.log, Config: c.cfg}); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
