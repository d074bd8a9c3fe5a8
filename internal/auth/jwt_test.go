package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier(testSecret, "portal-test")
	tok, err := v.Issue(Actor{ID: "u-1", Role: RoleAdmin}, time.Minute)
	require.NoError(t, err)

	got, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "u-1", Role: RoleAdmin}, got)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	v := NewVerifier(testSecret, "")
	tok, err := v.Issue(Actor{ID: "u-1", Role: Role("owner")}, time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongIssuerAndSecret(t *testing.T) {
	issuerA := NewVerifier(testSecret, "a")
	tok, _ := issuerA.Issue(Actor{ID: "u-1", Role: RoleClient}, time.Minute)

	_, err := NewVerifier(testSecret, "b").Verify(tok)
	assert.Error(t, err)

	_, err = NewVerifier("another-secret-another-secret-xx", "a").Verify(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewVerifier(testSecret, "").Verify(tok)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret, "")
	tok, _ := v.Issue(Actor{ID: "u-7", Role: RoleClient}, time.Minute)

	var seen Actor
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u-7", seen.ID)

	req = httptest.NewRequest(http.MethodGet, "/feed?access_token="+tok, nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
