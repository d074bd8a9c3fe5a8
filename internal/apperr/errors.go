// internal/apperr/errors.go
//
// Typed business errors shared by the catalog and subscription services.
//
// Context
// -------
// Every guard in the portal fails with one of five concrete types so the
// HTTP layer (and tests) can tell a malformed input from an illegal state
// change without parsing strings:
//
//   - ValidationError         malformed input, names the offending field.
//   - InvalidTransitionError  command not legal from the current state.
//   - NotFoundError           unknown record or tool type id.
//   - AuthorizationError      actor role may not issue the command.
//   - ConflictError           optimistic-concurrency version mismatch.
//
// None of these are retried.  Match them with errors.As.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports a command that is not legal from State.
// Reason carries the guard that failed when the state alone does not explain
// the refusal (e.g. a re-request that is not currently permitted).
type InvalidTransitionError struct {
	Command string
	State   string
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s from %s: %s", e.Command, e.State, e.Reason)
	}
	return fmt.Sprintf("cannot %s from %s", e.Command, e.State)
}

// NotFoundError reports an unknown id of the given Kind.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// AuthorizationError reports an actor that may not issue Command.
type AuthorizationError struct {
	Command string
	Role    string
	Reason  string
}

func (e *AuthorizationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s may not %s: %s", e.Role, e.Command, e.Reason)
	}
	return fmt.Sprintf("%s may not %s", e.Role, e.Command)
}

// ConflictError reports a stale write.  Expected and Actual are versions
// when the conflict came from an expectedVersion check.
type ConflictError struct {
	ID       string
	Expected int64
	Actual   int64
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("conflict on %s: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("conflict on %s: expected version %d, found %d", e.ID, e.Expected, e.Actual)
}

// Validation is shorthand for &ValidationError{field, reason}.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFound is shorthand for &NotFoundError{kind, id}.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Kind returns a short machine name for err, or "internal".
func Kind(err error) string {
	var (
		ve *ValidationError
		te *InvalidTransitionError
		ne *NotFoundError
		ae *AuthorizationError
		ce *ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &te):
		return "invalid_transition"
	case errors.As(err, &ne):
		return "not_found"
	case errors.As(err, &ae):
		return "authorization"
	case errors.As(err, &ce):
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "invalid_transition":
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	case "authorization":
		return http.StatusForbidden
	case "conflict":
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
