// internal/catalog/service.go
//
// ToolCatalog: createType, updateType, deleteType, and listTypes.
//
// Context
// -------
// The service owns validation and authorization; the store owns uniqueness
// and persistence.  Every operation takes the acting principal explicitly
// and checks it against the acl policy before touching the store.
//
// Workflow
// --------
//   1. Authorize actor.role for catalog/<op>.
//   2. Normalise and validate input (trimmed name and description, slug
//      pattern, icon category).
//   3. Call the store; it enforces slug uniqueness and publishes the change.
//   4. Purge the slug cache and record the outcome metric.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.

package catalog

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/acl"
	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/auth"
	"github.com/yanizio/portal/internal/feed"
	"github.com/yanizio/portal/internal/metrics"
	"github.com/yanizio/portal/internal/validate"
)

// Service implements the tool catalog.
type Service struct {
	store Store
	cache *slugCache
	now   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCache sets the slug cache capacity and entry lifetime.  Zero values
// keep the defaults.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) { s.cache = newSlugCache(size, ttl) }
}

// NewService returns a catalog backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		cache: newSlugCache(defaultCacheSize, defaultCacheTTL),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	s.cache.now = s.now
	return s
}

// Watch purges the slug cache on every tool type change published to h.
// Writes that bypass this Service, such as a second Service sharing the
// store, are covered this way.  The returned func stops watching.
func (s *Service) Watch(h *feed.Hub) (stop func()) {
	return h.Subscribe(func(feed.Event) { s.cache.purge() }, feed.ToolTypes)
}

func authorize(actor auth.Actor, op string) error {
	if !actor.Role.Valid() {
		return &apperr.AuthorizationError{Command: op, Role: string(actor.Role), Reason: "unknown role"}
	}
	if !acl.Allowed(actor.Role, acl.Catalog, op) {
		return &apperr.AuthorizationError{Command: op, Role: string(actor.Role)}
	}
	return nil
}

func observe(op string, err error) {
	metrics.CatalogOperations.WithLabelValues(op, metrics.Result(err)).Inc()
}

// CreateType adds a new, active tool type.
func (s *Service) CreateType(ctx context.Context, actor auth.Actor, in CreateInput) (t ToolType, err error) {
	defer func() { observe("create", err) }()

	if err = authorize(actor, "create"); err != nil {
		return ToolType{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err = validate.Struct(in); err != nil {
		return ToolType{}, err
	}

	now := s.now()
	t, err = s.store.Create(ctx, ToolType{
		Name:         in.Name,
		Description:  in.Description,
		Slug:         in.Slug,
		IconCategory: in.IconCategory,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return ToolType{}, err
	}
	s.cache.purge()

	zap.L().Info("tool type created",
		zap.String("id", t.ID),
		zap.String("slug", t.Slug),
		zap.String("actor", actor.ID))
	return t, nil
}

// UpdateType applies p to the tool type id.  Slugs may change and are
// validated exactly as on create.
func (s *Service) UpdateType(ctx context.Context, actor auth.Actor, id string, p Patch) (t ToolType, err error) {
	defer func() { observe("update", err) }()

	if err = authorize(actor, "update"); err != nil {
		return ToolType{}, err
	}
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		p.Name = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		p.Description = &v
	}
	if err = validate.Struct(p); err != nil {
		return ToolType{}, err
	}

	t, err = s.store.Update(ctx, id, func(cur *ToolType) error {
		p.apply(cur)
		cur.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return ToolType{}, err
	}
	s.cache.purge()

	zap.L().Info("tool type updated",
		zap.String("id", t.ID),
		zap.String("slug", t.Slug),
		zap.String("actor", actor.ID))
	return t, nil
}

// DeleteType removes the catalog entry.  Subscription records keep their
// own tool snapshot and are not touched.
func (s *Service) DeleteType(ctx context.Context, actor auth.Actor, id string) (err error) {
	defer func() { observe("delete", err) }()

	if err = authorize(actor, "delete"); err != nil {
		return err
	}
	if err = s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.purge()

	zap.L().Info("tool type deleted", zap.String("id", id), zap.String("actor", actor.ID))
	return nil
}

// ListTypes returns catalog entries matching f, ordered by name.
func (s *Service) ListTypes(ctx context.Context, actor auth.Actor, f Filter) (out []ToolType, err error) {
	defer func() { observe("list", err) }()

	if err = authorize(actor, "list"); err != nil {
		return nil, err
	}
	if f.Status != "" {
		if err = validate.Var("status", string(f.Status), "oneof=active inactive"); err != nil {
			return nil, err
		}
	}
	return s.store.List(ctx, f)
}

// Get returns one tool type by id.
func (s *Service) Get(ctx context.Context, id string) (ToolType, error) {
	return s.store.Get(ctx, id)
}

// Lookup resolves a slug through the cache.  Used by subscription requests;
// not an actor-facing operation.
func (s *Service) Lookup(ctx context.Context, slug string) (ToolType, error) {
	return s.cache.get(ctx, slug, s.store.GetBySlug)
}
