package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any 401 response via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	// Detail is the backend's "detail" message when present, else the raw body.
	Detail string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("api error (%d) %s %s", e.StatusCode, e.Method, e.Path)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is (or wraps) a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode returns the HTTP status of err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func newStatusError(method, path string, code int, body []byte) *StatusError {
	return &StatusError{
		StatusCode: code,
		Method:     method,
		Path:       path,
		Detail:     errorDetail(body),
	}
}

// errorDetail extracts FastAPI-style {"detail": ...}. Validation errors carry a
// list of objects with "msg" fields.
func errorDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &env) == nil && len(env.Detail) > 0 {
		var s string
		if json.Unmarshal(env.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(env.Detail, &items) == nil {
			var msgs []string
			for _, it := range items {
				if strings.TrimSpace(it.Msg) != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(env.Detail)
	}
	return strings.TrimSpace(string(body))
}
