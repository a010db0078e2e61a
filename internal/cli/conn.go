package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/logging"
	"issuehub-cli/internal/session"
	"issuehub-cli/internal/store"

	"github.com/spf13/cobra"
)

// conn is one command's wiring: config, local storage, logger, session and client.
type conn struct {
	cfg    *store.Config
	local  *store.LocalStore
	log    *slog.Logger
	ctrl   *session.Controller
	client *api.Client

	closeLog func() error
}

func connect(ctx context.Context, app *App) (*conn, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, closeLog, err := logging.New(logging.OptionsFromEnv(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel}))
	if err != nil {
		return nil, err
	}
	local, err := store.OpenDefaultLocalStore(ctx)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	baseURL := strings.TrimSpace(app.APIURL)
	if baseURL == "" {
		baseURL = cfg.EffectiveAPIURL()
	}
	ctrl := session.NewController(store.Tokens{Store: local}, log)
	client := api.New(baseURL,
		api.WithCredentials(ctrl),
		api.WithLogger(log.With("component", "api")),
		api.WithTimeout(cfg.Timeout()),
	)
	ctrl.Bind(client.Auth)

	return &conn{cfg: cfg, local: local, log: log, ctrl: ctrl, client: client, closeLog: closeLog}, nil
}

func (c *conn) Close() {
	_ = c.local.Close()
	_ = c.closeLog()
}

// authed loads the stored token for a command that needs one. The user is
// not fetched; a rejected token surfaces as a 401 on the command's own call.
func (c *conn) authed(ctx context.Context) error {
	if c.ctrl.Start(ctx) == nil {
		return errNotLoggedIn
	}
	return nil
}

// fail maps err for output. Any 401 clears the stored token first.
func (c *conn) fail(cmd *cobra.Command, err error) error {
	if api.IsUnauthorized(err) {
		_ = c.ctrl.Reject(commandContext(cmd))
		c.log.Info("cleared rejected token", "command", cmd.CommandPath())
		return writeErr(cmd, errSessionExpired)
	}
	return writeErr(cmd, err)
}

// withSession connects, loads the token and runs fn. Errors from fn are
// already written.
func withSession(cmd *cobra.Command, app *App, fn func(ctx context.Context, c *conn) error) error {
	ctx := commandContext(cmd)
	c, err := connect(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer c.Close()
	if err := c.authed(ctx); err != nil {
		return writeErr(cmd, err)
	}
	return fn(ctx, c)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, invalidIDError{arg: arg}
	}
	return id, nil
}

// notFoundAs turns a backend 404 into a typed not-found error for kind/id.
func notFoundAs(err error, kind string, id int) error {
	var se *api.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return errNotFound(kind, id)
	}
	return err
}
