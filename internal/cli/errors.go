package cli

import (
	"errors"
	"fmt"
)

var (
	errNotLoggedIn    = errors.New("not logged in; run `issuehub login`")
	errSessionExpired = errors.New("session expired or invalid; run `issuehub login`")
)

type notFoundError struct {
	kind string
	id   int
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.kind, e.id)
}

func errNotFound(kind string, id int) error {
	return notFoundError{kind: kind, id: id}
}

type invalidIDError struct {
	arg string
}

func (e invalidIDError) Error() string {
	return fmt.Sprintf("invalid id %q (expected a positive integer)", e.arg)
}
