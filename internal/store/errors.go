package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when a user insert hits the unique email index.
var ErrEmailTaken = errors.New("email already taken")

// ErrUniqueURLTaken is returned when a card insert collides on unique_url.
// Callers regenerate the slug and retry.
var ErrUniqueURLTaken = errors.New("unique url already taken")

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation on the named constraint. An empty constraint matches any.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
