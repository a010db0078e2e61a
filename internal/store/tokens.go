package store

import (
	"context"
	"errors"
	"strings"
)

// AccessTokenKey is the fixed local storage key of the bearer token.
const AccessTokenKey = "access_token"

// Tokens persists the access token in a LocalStore.
type Tokens struct {
	Store *LocalStore
}

// Token returns the stored token, or "" when none is stored.
func (t Tokens) Token(ctx context.Context) (string, error) {
	v, err := t.Store.Get(ctx, AccessTokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func (t Tokens) SetToken(ctx context.Context, token string) error {
	return t.Store.Set(ctx, AccessTokenKey, token)
}

func (t Tokens) ClearToken(ctx context.Context) error {
	return t.Store.Remove(ctx, AccessTokenKey)
}
