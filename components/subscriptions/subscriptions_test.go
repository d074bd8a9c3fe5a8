// components/subscriptions/subscriptions_test.go
//
// HTTP round-trips through the lifecycle routes against in-memory stores.
//
// Run: go test ./components/subscriptions -v

package subscriptions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/portal/internal/auth"
	"github.com/yanizio/portal/internal/catalog"
	"github.com/yanizio/portal/internal/component"
	"github.com/yanizio/portal/internal/feed"
	"github.com/yanizio/portal/internal/httpx"
	"github.com/yanizio/portal/internal/subscription"
)

var (
	admin = auth.Actor{ID: "admin-1", Role: auth.RoleAdmin}
	alice = auth.Actor{ID: "alice", Role: auth.RoleClient}
	bob   = auth.Actor{ID: "bob", Role: auth.RoleClient}
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	hub := feed.NewHub()
	cat := catalog.NewService(catalog.NewMemoryStore(hub))
	_, err := cat.CreateType(context.Background(), auth.System, catalog.CreateInput{
		Name: "CRM", Description: "Contacts", Slug: "crm", IconCategory: catalog.IconCRM,
	})
	require.NoError(t, err)

	svc := subscription.NewService(subscription.NewMemoryStore(hub), cat,
		subscription.Config{Chronology: subscription.ChronologySoft})

	c := &Component{}
	require.NoError(t, c.Init(component.Deps{Catalog: cat, Subscriptions: svc, Feed: hub}))
	r := chi.NewRouter()
	c.Routes(r)
	return r
}

func do(r http.Handler, actor auth.Actor, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeRecord(t *testing.T, rr *httptest.ResponseRecorder) subscription.Record {
	t.Helper()
	var rec subscription.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec), rr.Body.String())
	return rec
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httpx.ErrorBody {
	t.Helper()
	var b httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &b), rr.Body.String())
	return b
}

func TestFullLifecycle(t *testing.T) {
	r := newRouter(t)

	rr := do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rec := decodeRecord(t, rr)
	assert.Equal(t, "alice", rec.UserID)
	assert.Equal(t, subscription.StatusPending, rec.Status)
	assert.Equal(t, "CRM", rec.ToolName)
	id := rec.ID

	rr = do(r, admin, http.MethodPost, "/subscriptions/"+id+"/approve",
		`{"grant_url":"https://crm.example.com/a"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rec = decodeRecord(t, rr)
	assert.Equal(t, subscription.StatusActive, rec.Status)
	require.NotNil(t, rec.ActivatedAt)

	rr = do(r, admin, http.MethodPut, "/subscriptions/"+id+"/window",
		`{"start_date":"2099-01-01T00:00:00Z","end_date":"2099-02-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res subscription.WindowResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Empty(t, res.Warnings)
	assert.Equal(t, subscription.StatusActive, res.Record.Status)
	require.NotNil(t, res.Record.ExpiresAt)

	rr = do(r, admin, http.MethodPost, "/subscriptions/"+id+"/stop", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rec = decodeRecord(t, rr)
	assert.Equal(t, subscription.StatusInactive, rec.Status)
	assert.True(t, rec.StoppedByAdmin)

	rr = do(r, alice, http.MethodPost, "/subscriptions/"+id+"/reopen", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, subscription.StatusPending, decodeRecord(t, rr).Status)

	rr = do(r, alice, http.MethodGet, "/users/alice/subscriptions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var mine []subscription.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, id, mine[0].ID)
}

func TestDuplicateRequestRefused(t *testing.T) {
	r := newRouter(t)
	require.Equal(t, http.StatusCreated, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`).Code)

	rr := do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	b := decodeError(t, rr)
	assert.Equal(t, "invalid_transition", b.Kind)
	assert.Equal(t, "pending", b.State)
}

func TestRequestAfterRejectReopens(t *testing.T) {
	r := newRouter(t)
	id := decodeRecord(t, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)).ID
	require.Equal(t, http.StatusOK, do(r, admin, http.MethodPost, "/subscriptions/"+id+"/reject", "").Code)

	rr := do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rec := decodeRecord(t, rr)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, subscription.StatusPending, rec.Status)
}

func TestClientCannotApprove(t *testing.T) {
	r := newRouter(t)
	id := decodeRecord(t, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)).ID

	rr := do(r, alice, http.MethodPost, "/subscriptions/"+id+"/approve", `{"grant_url":"https://x.example.com"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestOtherClientCannotRead(t *testing.T) {
	r := newRouter(t)
	id := decodeRecord(t, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)).ID

	assert.Equal(t, http.StatusForbidden, do(r, bob, http.MethodGet, "/subscriptions/"+id, "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, bob, http.MethodGet, "/users/alice/subscriptions", "").Code)
	assert.Equal(t, http.StatusOK, do(r, alice, http.MethodGet, "/subscriptions/"+id, "").Code)
}

func TestStaleVersionConflict(t *testing.T) {
	r := newRouter(t)
	id := decodeRecord(t, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)).ID

	rr := do(r, admin, http.MethodPost, "/subscriptions/"+id+"/reject", `{"expected_version":7}`)
	require.Equal(t, http.StatusPreconditionFailed, rr.Code)
	assert.Equal(t, "conflict", decodeError(t, rr).Kind)
}

func TestWindowValidation(t *testing.T) {
	r := newRouter(t)
	id := decodeRecord(t, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)).ID

	// Never active: the editor refuses.
	rr := do(r, admin, http.MethodPut, "/subscriptions/"+id+"/window", `{"start_date":"2099-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	require.Equal(t, http.StatusOK, do(r, admin, http.MethodPost, "/subscriptions/"+id+"/approve",
		`{"grant_url":"https://crm.example.com/a"}`).Code)

	rr = do(r, admin, http.MethodPut, "/subscriptions/"+id+"/window",
		`{"start_date":"2099-02-01T00:00:00Z","end_date":"2099-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation", decodeError(t, rr).Kind)
}

func TestListAllFilters(t *testing.T) {
	r := newRouter(t)
	require.Equal(t, http.StatusCreated, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`).Code)
	require.Equal(t, http.StatusCreated, do(r, bob, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`).Code)

	assert.Equal(t, http.StatusForbidden, do(r, alice, http.MethodGet, "/subscriptions", "").Code)

	rr := do(r, admin, http.MethodGet, "/subscriptions?status=pending&user_id=bob", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out []subscription.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0].UserID)

	rr = do(r, admin, http.MethodGet, "/subscriptions?requested_from=yesterday", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "requested_from", decodeError(t, rr).Field)

	rr = do(r, admin, http.MethodGet, "/subscriptions?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListAllDateOnlyBoundsCoverWholeDay(t *testing.T) {
	r := newRouter(t)
	rec := decodeRecord(t, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`))
	day := rec.RequestedAt.UTC().Format(time.DateOnly)
	prev := rec.RequestedAt.UTC().AddDate(0, 0, -1).Format(time.DateOnly)

	list := func(query string) []subscription.Record {
		t.Helper()
		rr := do(r, admin, http.MethodGet, "/subscriptions?"+query, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var out []subscription.Record
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		return out
	}

	assert.Len(t, list("requested_to="+day), 1)
	assert.Len(t, list("requested_from="+day+"&requested_to="+day), 1)
	assert.Empty(t, list("requested_to="+prev))
}

func TestExpectedVersionFromQuery(t *testing.T) {
	r := newRouter(t)
	id := decodeRecord(t, do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"crm"}`)).ID

	rr := do(r, admin, http.MethodPost, "/subscriptions/"+id+"/reject?expected_version=7", "")
	require.Equal(t, http.StatusPreconditionFailed, rr.Code)

	rr = do(r, admin, http.MethodPost, "/subscriptions/"+id+"/reject?expected_version=x", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "expected_version", decodeError(t, rr).Field)

	rr = do(r, admin, http.MethodPost, "/subscriptions/"+id+"/reject?expected_version=1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, subscription.StatusRejected, decodeRecord(t, rr).Status)
}

func TestUnknownToolRejected(t *testing.T) {
	r := newRouter(t)
	rr := do(r, alice, http.MethodPost, "/subscriptions", `{"tool_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
