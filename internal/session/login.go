package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"issuehub-cli/internal/api"
	"issuehub-cli/internal/model"
)

type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
)

func (m Mode) String() string {
	if m == ModeSignup {
		return "signup"
	}
	return "login"
}

// Form is the single login/signup form.
type Form struct {
	Mode     Mode
	Name     string
	Email    string
	Password string
}

// Toggle flips between login and signup. Field values are kept.
func (f *Form) Toggle() {
	if f.Mode == ModeSignup {
		f.Mode = ModeLogin
		return
	}
	f.Mode = ModeSignup
}

// RequiredFieldError reports a blank required form field.
type RequiredFieldError struct {
	Field string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Validate checks presence only. Name is required in signup mode.
func (f Form) Validate() error {
	if f.Mode == ModeSignup && strings.TrimSpace(f.Name) == "" {
		return &RequiredFieldError{Field: "name"}
	}
	if strings.TrimSpace(f.Email) == "" {
		return &RequiredFieldError{Field: "email"}
	}
	if f.Password == "" {
		return &RequiredFieldError{Field: "password"}
	}
	return nil
}

// FlowError is the single generic failure of a submit. The message only
// distinguishes the mode; the cause is kept for logs.
type FlowError struct {
	Mode Mode
	Err  error
}

func (e *FlowError) Error() string {
	if e.Mode == ModeSignup {
		return "Signup or login failed"
	}
	return "Login failed"
}

func (e *FlowError) Unwrap() error { return e.Err }

// Authenticator is the auth half of the api client.
type Authenticator interface {
	Signup(ctx context.Context, name, email, password string) (model.User, error)
	Login(ctx context.Context, email, password string) (api.Token, error)
}

// Submit runs the form and returns the access token. In signup mode the
// login call happens whatever signup returned, so re-submitting for an
// existing account with the right password still succeeds.
func Submit(ctx context.Context, auth Authenticator, f Form) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	var signupErr error
	if f.Mode == ModeSignup {
		_, signupErr = auth.Signup(ctx, f.Name, f.Email, f.Password)
	}
	tok, err := auth.Login(ctx, f.Email, f.Password)
	if err == nil && strings.TrimSpace(tok.AccessToken) == "" {
		err = errors.New("empty access token")
	}
	if err != nil {
		return "", &FlowError{Mode: f.Mode, Err: errors.Join(signupErr, err)}
	}
	return tok.AccessToken, nil
}
