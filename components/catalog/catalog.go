// components/catalog/catalog.go
//
// Tool catalog API.
//
//	GET    /api/tools          list (?status=active|inactive)
//	POST   /api/tools          create                       admin
//	GET    /api/tools/{id}     fetch one
//	PATCH  /api/tools/{id}     partial update                admin
//	DELETE /api/tools/{id}     delete                        admin
//
// Write routes are gated by acl before the body is decoded; catalog.Service
// repeats the role check, so the handlers only decode, call, and render.
//------------------------------------------------------------------------------

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/portal/internal/acl"
	"github.com/yanizio/portal/internal/catalog"
	"github.com/yanizio/portal/internal/component"
	"github.com/yanizio/portal/internal/httpx"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the tool catalog.
type Component struct {
	svc *catalog.Service
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "catalog" }

// Init captures the catalog service.
func (c *Component) Init(d component.Deps) error {
	c.svc = d.Catalog
	return nil
}

// Routes registers the /tools endpoints.
func (c *Component) Routes(r chi.Router) {
	r.Route("/tools", func(r chi.Router) {
		r.Get("/", c.list)
		r.Get("/{id}", c.get)
		r.With(acl.RequirePermission(acl.Catalog, "create")).Post("/", c.create)
		r.With(acl.RequirePermission(acl.Catalog, "update")).Patch("/{id}", c.update)
		r.With(acl.RequirePermission(acl.Catalog, "delete")).Delete("/{id}", c.delete)
	})
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	f := catalog.Filter{Status: catalog.Status(r.URL.Query().Get("status"))}
	out, err := c.svc.ListTypes(r.Context(), actor, f)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if out == nil {
		out = []catalog.ToolType{}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (c *Component) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var in catalog.CreateInput
	if err := httpx.Decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	t, err := c.svc.CreateType(r.Context(), actor, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, t)
}

func (c *Component) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpx.Actor(w, r); !ok {
		return
	}
	t, err := c.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (c *Component) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var p catalog.Patch
	if err := httpx.Decode(w, r, &p); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	t, err := c.svc.UpdateType(r.Context(), actor, chi.URLParam(r, "id"), p)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (c *Component) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	if err := c.svc.DeleteType(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
