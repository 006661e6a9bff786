package session

import "errors"

var (
	// ErrInvalidInput: malformed coordinates, unknown mode or voter role.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidPin: the join PIN does not match the session.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrInvalidVenue: the venue does not belong to the session.
	ErrInvalidVenue = errors.New("invalid venue")
)
