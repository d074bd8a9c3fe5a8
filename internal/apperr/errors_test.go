package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		kind   string
		status int
	}{
		{Validation("slug", "bad"), "validation", http.StatusBadRequest},
		{&InvalidTransitionError{Command: "stop", State: "pending"}, "invalid_transition", http.StatusConflict},
		{NotFound("subscription", "r1"), "not_found", http.StatusNotFound},
		{&AuthorizationError{Command: "approve", Role: "client"}, "authorization", http.StatusForbidden},
		{&ConflictError{ID: "r1", Expected: 2, Actual: 3}, "conflict", http.StatusPreconditionFailed},
		{fmt.Errorf("boom"), "internal", http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, Kind(c.err), c.err.Error())
		assert.Equal(t, c.status, HTTPStatus(c.err), c.err.Error())
	}
}

func TestWrappedErrorsStillMatch(t *testing.T) {
	err := fmt.Errorf("update r1: %w", NotFound("subscription", "r1"))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestMessagesNameTheGuard(t *testing.T) {
	err := &InvalidTransitionError{Command: "reopen", State: "rejected", Reason: "client may not request again"}
	assert.Equal(t, "cannot reopen from rejected: client may not request again", err.Error())

	ae := &AuthorizationError{Command: "approve", Role: "client"}
	assert.Equal(t, "client may not approve", ae.Error())
}
