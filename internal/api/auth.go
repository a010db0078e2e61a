package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"issuehub-cli/internal/model"
)

type AuthService struct{ c *Client }

// Token is the token-issuance response of POST /auth/login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token. The body is form-encoded and
// the email travels in the "username" field.
func (s *AuthService) Login(ctx context.Context, email, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tok Token
	if err := s.c.doForm(ctx, http.MethodPost, "/auth/login", form, &tok); err != nil {
		return Token{}, err
	}
	if tok.AccessToken == "" {
		return Token{}, errors.New("login response missing access_token")
	}
	return tok, nil
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthService) Signup(ctx context.Context, name, email, password string) (model.User, error) {
	var u model.User
	err := s.c.doJSON(ctx, http.MethodPost, "/auth/signup", signupRequest{Name: name, Email: email, Password: password}, &u)
	return u, err
}

// Me returns the user the current token belongs to.
func (s *AuthService) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := s.c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &u)
	return u, err
}
