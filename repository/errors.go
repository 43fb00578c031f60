package repository

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the entity an operation acts on does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvariantViolation is the base of all errors for operations a domain rule forbids.
	ErrInvariantViolation = errors.New("invariant violation")
	ErrInvalidArgument    = errors.New("invalid argument")

	ErrAlreadyInOrganization = fmt.Errorf("%w: user already belongs to an organization", ErrInvariantViolation)
	ErrNotRequestSender      = fmt.Errorf("%w: friend request was sent by someone else", ErrInvariantViolation)
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return invalidArgument("empty id")
		}
		if strings.ContainsAny(id, "/.#$[]") {
			return invalidArgument("id %q contains a reserved character", id)
		}
	}
	return nil
}
