// components/subscriptions/subscriptions.go
//
// Subscription lifecycle API.
//
/*
Routes
------
	POST /api/subscriptions                         request
	GET  /api/subscriptions                         listAll (admin)
	GET  /api/subscriptions/{id}                    get
	GET  /api/users/{userID}/subscriptions          listByUser
	POST /api/subscriptions/{id}/approve            admin
	POST /api/subscriptions/{id}/reactivate         admin
	POST /api/subscriptions/{id}/reject             admin
	POST /api/subscriptions/{id}/stop               admin
	POST /api/subscriptions/{id}/reopen             owner or admin
	PUT  /api/subscriptions/{id}/window             admin

listAll filters: status, q, user_id (repeatable), requested_from,
requested_to, activated_from, and activated_to.  Dates accept RFC 3339 or
YYYY-MM-DD; a bare date in a *_to bound covers that whole day.

Notes
-----
  • A client's request body may omit user_id; it defaults to the caller.
  • reject, stop, and reopen accept an optional {"expected_version": n},
    or ?expected_version=n when the body is empty.
  • Oxford commas, two spaces after periods.
*/
package subscriptions

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/portal/internal/acl"
	"github.com/yanizio/portal/internal/auth"
	"github.com/yanizio/portal/internal/component"
	"github.com/yanizio/portal/internal/httpx"
	"github.com/yanizio/portal/internal/subscription"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the lifecycle commands and queries.
type Component struct {
	svc *subscription.Service
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "subscriptions" }

// Init captures the subscription service.
func (c *Component) Init(d component.Deps) error {
	c.svc = d.Subscriptions
	return nil
}

// Routes registers the subscription endpoints.
func (c *Component) Routes(r chi.Router) {
	gate := func(action subscription.Command) func(http.Handler) http.Handler {
		return acl.RequirePermission(acl.Subscription, string(action))
	}
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", c.request)
		r.With(acl.RequirePermission(acl.Subscription, "list_all")).Get("/", c.listAll)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", c.get)
			r.With(gate(subscription.CmdApprove)).Post("/approve", c.grant(c.svc.Approve))
			r.With(gate(subscription.CmdReactivate)).Post("/reactivate", c.grant(c.svc.Reactivate))
			r.With(gate(subscription.CmdReject)).Post("/reject", c.simple(c.svc.Reject))
			r.With(gate(subscription.CmdStop)).Post("/stop", c.simple(c.svc.Stop))
			r.Post("/reopen", c.simple(c.svc.Reopen))
			r.With(gate(subscription.CmdSetGrantWindow)).Put("/window", c.window)
		})
	})
	r.Get("/users/{userID}/subscriptions", c.listByUser)
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Commands ─────────────────────────────────────*/

func (c *Component) request(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var in subscription.RequestInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if in.UserID == "" {
		in.UserID = actor.ID
	}
	rec, err := c.svc.Request(r.Context(), actor, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	status := http.StatusCreated
	if rec.Version > 1 {
		status = http.StatusOK // reopened in place
	}
	httpx.WriteJSON(w, status, rec)
}

type grantFunc func(context.Context, auth.Actor, string, subscription.ApproveInput) (subscription.Record, error)

func (c *Component) grant(fn grantFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := httpx.Actor(w, r)
		if !ok {
			return
		}
		var in subscription.ApproveInput
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		rec, err := fn(r.Context(), actor, chi.URLParam(r, "id"), in)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, rec)
	}
}

type simpleFunc func(context.Context, auth.Actor, string, *int64) (subscription.Record, error)

// versionBody is the optional payload of reject, stop, and reopen.
type versionBody struct {
	ExpectedVersion *int64 `json:"expected_version"`
}

func (c *Component) simple(fn simpleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := httpx.Actor(w, r)
		if !ok {
			return
		}
		var in versionBody
		if err := httpx.DecodeOptional(w, r, &in); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if in.ExpectedVersion == nil {
			v, err := httpx.QueryInt64(r, "expected_version")
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			in.ExpectedVersion = v
		}
		rec, err := fn(r.Context(), actor, chi.URLParam(r, "id"), in.ExpectedVersion)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, rec)
	}
}

func (c *Component) window(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var in subscription.WindowInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := c.svc.SetGrantWindow(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

/*──────────────────────────── Queries ──────────────────────────────────────*/

func (c *Component) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	rec, err := c.svc.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (c *Component) listByUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	out, err := c.svc.ListByUser(r.Context(), actor, chi.URLParam(r, "userID"))
	writeList(w, r, out, err)
}

func (c *Component) listAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out, err := c.svc.ListAll(r.Context(), actor, f)
	writeList(w, r, out, err)
}

func writeList(w http.ResponseWriter, r *http.Request, out []subscription.Record, err error) {
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if out == nil {
		out = []subscription.Record{}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func parseFilter(r *http.Request) (subscription.Filter, error) {
	q := r.URL.Query()
	f := subscription.Filter{
		Status:  subscription.Status(q.Get("status")),
		Search:  q.Get("q"),
		UserIDs: q["user_id"],
	}
	var err error
	if f.RequestedFrom, err = httpx.QueryTime(r, "requested_from"); err != nil {
		return f, err
	}
	if f.RequestedTo, err = httpx.QueryTimeEnd(r, "requested_to"); err != nil {
		return f, err
	}
	if f.ActivatedFrom, err = httpx.QueryTime(r, "activated_from"); err != nil {
		return f, err
	}
	if f.ActivatedTo, err = httpx.QueryTimeEnd(r, "activated_to"); err != nil {
		return f, err
	}
	return f, nil
}
