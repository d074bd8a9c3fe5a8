package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/auth"
)

func TestWriteError_Envelope(t *testing.T) {
	cases := []struct {
		err    error
		status int
		check  func(t *testing.T, b ErrorBody)
	}{
		{apperr.Validation("grant_url", "is required"), 400, func(t *testing.T, b ErrorBody) {
			assert.Equal(t, "validation", b.Kind)
			assert.Equal(t, "grant_url", b.Field)
		}},
		{&apperr.InvalidTransitionError{Command: "approve", State: "active"}, 409, func(t *testing.T, b ErrorBody) {
			assert.Equal(t, "invalid_transition", b.Kind)
			assert.Equal(t, "approve", b.Command)
			assert.Equal(t, "active", b.State)
		}},
		{&apperr.AuthorizationError{Command: "stop", Role: "client"}, 403, func(t *testing.T, b ErrorBody) {
			assert.Equal(t, "stop", b.Command)
		}},
		{apperr.NotFound("subscription", "x"), 404, nil},
		{&apperr.ConflictError{ID: "x", Expected: 1, Actual: 2}, 412, nil},
		{errors.New("db down"), 500, func(t *testing.T, b ErrorBody) {
			assert.Equal(t, "Internal Server Error", b.Error, "no internal detail leaks")
		}},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		WriteError(rr, httptest.NewRequest(http.MethodGet, "/", nil), c.err)
		require.Equal(t, c.status, rr.Code, c.err.Error())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var b ErrorBody
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &b))
		if c.check != nil {
			c.check(t, b)
		}
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var p payload
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, Decode(httptest.NewRecorder(), r, &p))
	assert.Equal(t, "x", p.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	assert.ErrorAs(t, Decode(httptest.NewRecorder(), r, &p), new(*apperr.ValidationError))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.Error(t, Decode(httptest.NewRecorder(), r, &p))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.NoError(t, DecodeOptional(httptest.NewRecorder(), r, &p))
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?from=2025-04-01&at=2025-04-01T10:00:00Z&v=3&bad=x", nil)

	from, err := QueryTime(r, "from")
	require.NoError(t, err)
	assert.Equal(t, 2025, from.Year())

	at, err := QueryTime(r, "at")
	require.NoError(t, err)
	assert.Equal(t, 10, at.Hour())

	missing, err := QueryTime(r, "missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = QueryTime(r, "bad")
	assert.Error(t, err)

	v, err := QueryInt64(r, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *v)

	_, err = QueryInt64(r, "bad")
	assert.Error(t, err)
}

func TestQueryTimeEnd(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?to=2025-04-01&at=2025-04-01T10:00:00Z&bad=x", nil)

	to, err := QueryTimeEnd(r, "to")
	require.NoError(t, err)
	assert.True(t, to.Equal(time.Date(2025, 4, 1, 23, 59, 59, 999999999, time.UTC)), to.String())
	assert.False(t, to.Before(time.Date(2025, 4, 1, 18, 30, 0, 0, time.UTC)))

	at, err := QueryTimeEnd(r, "at")
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)), at.String())

	missing, err := QueryTimeEnd(r, "missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = QueryTimeEnd(r, "bad")
	assert.Error(t, err)
}

func TestActor(t *testing.T) {
	rr := httptest.NewRecorder()
	_, ok := Actor(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(auth.WithActor(r.Context(), auth.Actor{ID: "u1", Role: auth.RoleClient}))
	rr = httptest.NewRecorder()
	a, ok := Actor(rr, r)
	require.True(t, ok)
	assert.Equal(t, "u1", a.ID)
}
