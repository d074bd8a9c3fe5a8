// internal/subscription/model.go
//
// SubscriptionRecord: one client's request for, or grant of, one tool.
//
// Context
// -------
// A record is created pending by a client request and then moves between
// pending, active, rejected, and inactive through lifecycle commands.  No
// state is terminal.  The grant window [activated_at, expires_at) is
// informational; nothing expires a grant automatically.
//
// Invariants
// ----------
// Checked by Validate before every store write.
//
//   - active ⇒ activated_at set and grant_url non-empty.
//   - active ⇒ stopped_by_admin false.
//   - pending ⇒ client_can_request_again false.
//   - expires_at set ⇒ activated_at set and expires_at after activated_at.
//
// Notes
// -----
//   - tool_id is a slug snapshot, not a foreign key.  tool_name is the
//     display name at request time.
//   - Oxford commas, two spaces after periods.
package subscription

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusInactive:
		return true
	}
	return false
}

// Record mirrors one row in `subscription_record`.
type Record struct {
	ID                    string     `db:"id"                       json:"id"`
	UserID                string     `db:"user_id"                  json:"user_id"`
	ToolID                string     `db:"tool_id"                  json:"tool_id"`
	ToolName              string     `db:"tool_name"                json:"tool_name"`
	Status                Status     `db:"status"                   json:"status"`
	GrantURL              string     `db:"grant_url"                json:"grant_url"`
	DemoVideoURL          string     `db:"demo_video_url"           json:"demo_video_url,omitempty"`
	RequestedAt           time.Time  `db:"requested_at"             json:"requested_at"`
	ActivatedAt           *time.Time `db:"activated_at"             json:"activated_at"`
	ExpiresAt             *time.Time `db:"expires_at"               json:"expires_at"`
	UpdatedAt             time.Time  `db:"updated_at"               json:"updated_at"`
	UpdatedBy             string     `db:"updated_by"               json:"updated_by"`
	StoppedByAdmin        bool       `db:"stopped_by_admin"         json:"stopped_by_admin"`
	ClientCanRequestAgain bool       `db:"client_can_request_again" json:"client_can_request_again"`
	LastRequestDate       time.Time  `db:"last_request_date"        json:"last_request_date"`
	Version               int64      `db:"version"                  json:"version"`
}

// ErrInvariant marks a record whose fields contradict its status.
var ErrInvariant = errors.New("subscription invariant violated")

// Validate checks the status-field invariants.
func (r Record) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: record %s: %s", ErrInvariant, r.ID, fmt.Sprintf(format, args...))
	}

	if !r.Status.Valid() {
		return bad("unknown status %q", r.Status)
	}
	switch r.Status {
	case StatusActive:
		if r.ActivatedAt == nil {
			return bad("active without activated_at")
		}
		if strings.TrimSpace(r.GrantURL) == "" {
			return bad("active without grant_url")
		}
		if r.StoppedByAdmin {
			return bad("active with stopped_by_admin")
		}
	case StatusPending:
		if r.ClientCanRequestAgain {
			return bad("pending with client_can_request_again")
		}
	}
	if r.ExpiresAt != nil {
		if r.ActivatedAt == nil {
			return bad("expires_at without activated_at")
		}
		if !r.ExpiresAt.After(*r.ActivatedAt) {
			return bad("expires_at %s not after activated_at %s",
				r.ExpiresAt.Format(time.RFC3339), r.ActivatedAt.Format(time.RFC3339))
		}
	}
	return nil
}

// GrantValid reports whether the grant is active and now lies inside
// [activated_at, expires_at).  Informational only.
func (r Record) GrantValid(now time.Time) bool {
	if r.Status != StatusActive || r.ActivatedAt == nil {
		return false
	}
	if now.Before(*r.ActivatedAt) {
		return false
	}
	return r.ExpiresAt == nil || now.Before(*r.ExpiresAt)
}

// Filter narrows listAll.  Zero fields match everything.
type Filter struct {
	Status Status
	// Search is a case-insensitive substring match on tool_name, tool_id,
	// and user_id.  Matching on user names is left to the caller, which
	// resolves names to UserIDs.
	Search        string
	UserIDs       []string
	RequestedFrom *time.Time
	RequestedTo   *time.Time
	ActivatedFrom *time.Time
	ActivatedTo   *time.Time
}

func (f Filter) match(r Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(r.ToolName), q) &&
			!strings.Contains(strings.ToLower(r.ToolID), q) &&
			!strings.Contains(strings.ToLower(r.UserID), q) {
			return false
		}
	}
	if len(f.UserIDs) > 0 {
		found := false
		for _, id := range f.UserIDs {
			if id == r.UserID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !inRange(&r.RequestedAt, f.RequestedFrom, f.RequestedTo) {
		return false
	}
	if (f.ActivatedFrom != nil || f.ActivatedTo != nil) && !inRange(r.ActivatedAt, f.ActivatedFrom, f.ActivatedTo) {
		return false
	}
	return true
}

// inRange reports from <= t <= to; nil bounds are open.
func inRange(t, from, to *time.Time) bool {
	if t == nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

// clone returns r with its own copies of the nullable timestamps.
func (r Record) clone() Record {
	if r.ActivatedAt != nil {
		t := *r.ActivatedAt
		r.ActivatedAt = &t
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		r.ExpiresAt = &t
	}
	return r
}
