// Package session owns the access token and the current user, and decides
// whether the client is logged out, loading the user, or logged in.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"issuehub-cli/internal/model"
)

type Phase int

const (
	PhaseLoggedOut Phase = iota
	// PhaseLoadingUser blocks rendering of the workspace until /auth/me settles.
	PhaseLoadingUser
	PhaseLoggedIn
)

func (p Phase) String() string {
	switch p {
	case PhaseLoadingUser:
		return "loading-user"
	case PhaseLoggedIn:
		return "logged-in"
	default:
		return "logged-out"
	}
}

// TokenStore persists the token outside process memory.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// UserFetcher resolves the user a token belongs to (GET /auth/me).
type UserFetcher interface {
	Me(ctx context.Context) (model.User, error)
}

// UserResult is the outcome of a current-user fetch for Token.
type UserResult struct {
	Token string
	User  model.User
	Err   error
}

// Effect performs the network part of a transition. It never touches
// controller state; feed its result to Apply.
type Effect func(ctx context.Context) UserResult

// Controller is the session state machine. State changes happen on the
// caller's event loop; AccessToken may be read from any goroutine.
type Controller struct {
	mu     sync.RWMutex
	phase  Phase
	token  string
	user   *model.User
	tokens TokenStore
	users  UserFetcher
	log    *slog.Logger
}

func NewController(tokens TokenStore, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{tokens: tokens, log: log.With("component", "session")}
}

// Bind sets the user fetcher. The api client takes the controller as its
// credentials, so the two are wired after construction.
func (c *Controller) Bind(users UserFetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = users
}

func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// User returns the current user, or nil unless logged in.
func (c *Controller) User() *model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// AccessToken implements api.Credentials.
func (c *Controller) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Start reads the persisted token. With a token it enters PhaseLoadingUser
// and returns the user fetch; otherwise it stays logged out and returns nil.
func (c *Controller) Start(ctx context.Context) Effect {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Warn("read token", "err", err)
		tok = ""
	}
	tok = strings.TrimSpace(tok)

	c.mu.Lock()
	defer c.mu.Unlock()
	if tok == "" {
		c.phase = PhaseLoggedOut
		c.token = ""
		c.user = nil
		return nil
	}
	c.token = tok
	c.user = nil
	c.phase = PhaseLoadingUser
	return c.fetchLocked(tok)
}

// Authenticate is the login-success transition: persist the token and load
// the user it belongs to.
func (c *Controller) Authenticate(ctx context.Context, token string) (Effect, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty access token")
	}
	if err := c.tokens.SetToken(ctx, token); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.user = nil
	c.phase = PhaseLoadingUser
	return c.fetchLocked(token), nil
}

func (c *Controller) fetchLocked(token string) Effect {
	users := c.users
	return func(ctx context.Context) UserResult {
		if users == nil {
			return UserResult{Token: token, Err: errors.New("session: no user fetcher bound")}
		}
		u, err := users.Me(ctx)
		return UserResult{Token: token, User: u, Err: err}
	}
}

// Apply settles a user fetch. Any failure clears the token: this is the only
// automatic logout path besides Reject. Results for a replaced token are ignored.
func (c *Controller) Apply(ctx context.Context, res UserResult) {
	c.mu.Lock()
	if c.phase != PhaseLoadingUser || res.Token != c.token {
		c.mu.Unlock()
		return
	}
	if res.Err == nil {
		u := res.User
		c.user = &u
		c.phase = PhaseLoggedIn
		c.mu.Unlock()
		c.log.Info("logged in", "user_id", u.ID)
		return
	}
	c.mu.Unlock()
	c.log.Info("current user fetch failed; clearing token", "err", res.Err)
	c.reset(ctx)
}

// Logout clears the session on explicit user request.
func (c *Controller) Logout(ctx context.Context) error {
	return c.reset(ctx)
}

// Reject clears the session after the backend refused the token (any 401).
func (c *Controller) Reject(ctx context.Context) error {
	c.log.Info("token rejected")
	return c.reset(ctx)
}

func (c *Controller) reset(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.phase = PhaseLoggedOut
	c.mu.Unlock()
	if err := c.tokens.ClearToken(ctx); err != nil {
		c.log.Warn("clear token", "err", err)
		return err
	}
	return nil
}
