// internal/subscription/service.go
//
// SubscriptionLifecycle command and query surface.
//
// Context
// -------
// Each command is one atomic Store.Update.  Inside the update closure the
// service checks ownership, the optional expected version, and the
// lifecycle guard, in that order; any failure aborts the write.  Role
// checks run before the record is read so an unauthorised caller learns
// nothing about which ids exist.
//
// Logging
// -------
//   - INFO  one line per successful command: record, command, actor, state.
//   - WARN  one line per refused command naming the failed guard.
//   - ERROR infrastructure failures (store, invariant).
//
// Notes
// -----
//   - expected_version is optional.  Without it writes are last-write-wins.
//   - Oxford commas, two spaces after periods.

package subscription

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/auth"
	"github.com/yanizio/portal/internal/catalog"
	"github.com/yanizio/portal/internal/metrics"
	"github.com/yanizio/portal/internal/validate"
)

// ToolResolver resolves a tool slug; satisfied by *catalog.Service.
type ToolResolver interface {
	Lookup(ctx context.Context, slug string) (catalog.ToolType, error)
}

// Config carries the policy switches read from configuration.
type Config struct {
	Chronology         Chronology
	AllowAdminOnBehalf bool
}

// Service implements the lifecycle.
type Service struct {
	store Store
	tools ToolResolver
	cfg   Config
	now   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the lifecycle to its store and tool catalog.
func NewService(store Store, tools ToolResolver, cfg Config, opts ...Option) *Service {
	if cfg.Chronology == "" {
		cfg.Chronology = ChronologySoft
	}
	s := &Service{
		store: store,
		tools: tools,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// -----------------------------------------------------------------------------
// Inputs
// -----------------------------------------------------------------------------

// RequestInput is the payload of request.
type RequestInput struct {
	UserID       string `json:"user_id"        validate:"required,max=64"`
	ToolID       string `json:"tool_id"        validate:"required,max=100,slug"`
	GrantURLHint string `json:"grant_url_hint" validate:"omitempty,url"`
}

// ApproveInput is the payload of approve and reactivate.
type ApproveInput struct {
	GrantURL        string `json:"grant_url"        validate:"required,url,max=2048"`
	DemoVideoURL    string `json:"demo_video_url"   validate:"omitempty,url,max=2048"`
	ExpectedVersion *int64 `json:"expected_version"`
}

// WindowInput is the payload of setGrantWindow.
type WindowInput struct {
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	ExpectedVersion *int64     `json:"expected_version"`
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// Request creates a pending record for (in.UserID, in.ToolID).  When the
// pair already has a record, a pending or active one refuses the request
// and a rejected or inactive one is reopened.
func (s *Service) Request(ctx context.Context, actor auth.Actor, in RequestInput) (rec Record, err error) {
	defer func() { s.observe(CmdRequest, actor, rec.ID, rec.Status, err) }()

	in.UserID = strings.TrimSpace(in.UserID)
	if err = validate.Struct(in); err != nil {
		return Record{}, err
	}
	if err = authorizeRole(actor, string(CmdRequest)); err != nil {
		return Record{}, err
	}
	if err = authorizeOwner(actor, string(CmdRequest), in.UserID, s.cfg.AllowAdminOnBehalf); err != nil {
		return Record{}, err
	}

	tool, err := s.tools.Lookup(ctx, in.ToolID)
	if err != nil {
		return Record{}, err
	}
	if tool.Status != catalog.StatusActive {
		return Record{}, apperr.Validation("tool_id", "tool is not active")
	}

	existing, err := s.store.FindByUserTool(ctx, in.UserID, in.ToolID)
	switch {
	case err == nil:
		if existing.Status == StatusPending || existing.Status == StatusActive {
			return Record{}, &apperr.InvalidTransitionError{
				Command: string(CmdRequest),
				State:   string(existing.Status),
			}
		}
		return s.store.Update(ctx, existing.ID, func(cur *Record) error {
			next, err := Apply(*cur, Transition{Command: CmdReopen, Actor: actor.ID, At: s.now()})
			if err != nil {
				return err
			}
			*cur = next
			return nil
		})
	case !apperr.IsNotFound(err):
		return Record{}, err
	}

	now := s.now()
	return s.store.Create(ctx, NewRequest(in.UserID, in.ToolID, tool.Name, in.GrantURLHint, actor.ID, now))
}

// Approve activates a pending, rejected, or inactive record.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, id string, in ApproveInput) (Record, error) {
	return s.grant(ctx, actor, id, CmdApprove, in)
}

// Reactivate activates a rejected or inactive record directly, bypassing a
// new client request.
func (s *Service) Reactivate(ctx context.Context, actor auth.Actor, id string, in ApproveInput) (Record, error) {
	return s.grant(ctx, actor, id, CmdReactivate, in)
}

func (s *Service) grant(ctx context.Context, actor auth.Actor, id string, cmd Command, in ApproveInput) (rec Record, err error) {
	defer func() { s.observe(cmd, actor, id, rec.Status, err) }()

	in.GrantURL = strings.TrimSpace(in.GrantURL)
	in.DemoVideoURL = strings.TrimSpace(in.DemoVideoURL)
	if err = authorizeRole(actor, string(cmd)); err != nil {
		return Record{}, err
	}
	if err = validate.Struct(in); err != nil {
		return Record{}, err
	}
	return s.transition(ctx, actor, id, in.ExpectedVersion, Transition{
		Command:      cmd,
		GrantURL:     in.GrantURL,
		DemoVideoURL: in.DemoVideoURL,
	})
}

// Reject refuses a pending record.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, id string, expectedVersion *int64) (Record, error) {
	return s.simple(ctx, actor, id, CmdReject, expectedVersion)
}

// Stop revokes an active grant.
func (s *Service) Stop(ctx context.Context, actor auth.Actor, id string, expectedVersion *int64) (Record, error) {
	return s.simple(ctx, actor, id, CmdStop, expectedVersion)
}

// Reopen is the client re-request from rejected or inactive.
func (s *Service) Reopen(ctx context.Context, actor auth.Actor, id string, expectedVersion *int64) (Record, error) {
	return s.simple(ctx, actor, id, CmdReopen, expectedVersion)
}

func (s *Service) simple(ctx context.Context, actor auth.Actor, id string, cmd Command, expectedVersion *int64) (rec Record, err error) {
	defer func() { s.observe(cmd, actor, id, rec.Status, err) }()

	if err = authorizeRole(actor, string(cmd)); err != nil {
		return Record{}, err
	}
	return s.transition(ctx, actor, id, expectedVersion, Transition{Command: cmd})
}

// transition runs t inside one atomic store update.
func (s *Service) transition(ctx context.Context, actor auth.Actor, id string, expected *int64, t Transition) (Record, error) {
	t.Actor = actor.ID
	return s.store.Update(ctx, id, func(cur *Record) error {
		if err := authorizeOwner(actor, string(t.Command), cur.UserID, s.cfg.AllowAdminOnBehalf); err != nil {
			return err
		}
		if err := checkVersion(cur, expected); err != nil {
			return err
		}
		t.At = s.now()
		next, err := Apply(*cur, t)
		if err != nil {
			return err
		}
		*cur = next
		return nil
	})
}

// SetGrantWindow sets [start, end) on a record that is or was active.
// Status is unchanged.
func (s *Service) SetGrantWindow(ctx context.Context, actor auth.Actor, id string, in WindowInput) (res WindowResult, err error) {
	defer func() { s.observe(CmdSetGrantWindow, actor, id, res.Record.Status, err) }()

	if err = authorizeRole(actor, string(CmdSetGrantWindow)); err != nil {
		return WindowResult{}, err
	}

	var warnings []Warning
	rec, err := s.store.Update(ctx, id, func(cur *Record) error {
		if err := checkVersion(cur, in.ExpectedVersion); err != nil {
			return err
		}
		next, w, err := ApplyWindow(*cur, Window{Start: in.StartDate, End: in.EndDate}, actor.ID, s.now(), s.cfg.Chronology)
		if err != nil {
			return err
		}
		*cur = next
		warnings = w
		return nil
	})
	if err != nil {
		return WindowResult{}, err
	}
	if len(warnings) > 0 {
		zap.L().Warn("grant window committed with warnings",
			zap.String("record_id", id),
			zap.Any("warnings", warnings))
	}
	return WindowResult{Record: rec, Warnings: warnings}, nil
}

func checkVersion(cur *Record, expected *int64) error {
	if expected != nil && *expected != cur.Version {
		return &apperr.ConflictError{ID: cur.ID, Expected: *expected, Actual: cur.Version}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Get returns one record.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Record, error) {
	if err := authorizeRole(actor, actionGet); err != nil {
		return Record{}, err
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := authorizeOwner(actor, actionGet, rec.UserID, s.cfg.AllowAdminOnBehalf); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListByUser returns every record owned by userID, newest request first.
func (s *Service) ListByUser(ctx context.Context, actor auth.Actor, userID string) ([]Record, error) {
	if err := authorizeRole(actor, actionListByUser); err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, actionListByUser, userID, s.cfg.AllowAdminOnBehalf); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, userID)
}

// ListAll returns records matching f.  Admin only.
func (s *Service) ListAll(ctx context.Context, actor auth.Actor, f Filter) ([]Record, error) {
	if err := authorizeRole(actor, actionListAll); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("status", "must be one of pending active rejected inactive")
	}
	if f.RequestedFrom != nil && f.RequestedTo != nil && f.RequestedTo.Before(*f.RequestedFrom) {
		return nil, apperr.Validation("requested_to", "must not be before requested_from")
	}
	if f.ActivatedFrom != nil && f.ActivatedTo != nil && f.ActivatedTo.Before(*f.ActivatedFrom) {
		return nil, apperr.Validation("activated_to", "must not be before activated_from")
	}
	return s.store.ListAll(ctx, f)
}

// -----------------------------------------------------------------------------
// Observability
// -----------------------------------------------------------------------------

func (s *Service) observe(cmd Command, actor auth.Actor, id string, state Status, err error) {
	metrics.Transitions.WithLabelValues(string(cmd), metrics.Result(err)).Inc()

	fields := []zap.Field{
		zap.String("command", string(cmd)),
		zap.String("record_id", id),
		zap.String("actor", actor.ID),
		zap.String("role", string(actor.Role)),
	}
	switch kind := apperr.Kind(err); {
	case err == nil:
		zap.L().Info("subscription command", append(fields, zap.String("state", string(state)))...)
	case kind == "internal":
		zap.L().Error("subscription command failed", append(fields, zap.Error(err))...)
	default:
		zap.L().Warn("subscription command refused",
			append(fields, zap.String("guard", kind), zap.Error(err))...)
	}
}
