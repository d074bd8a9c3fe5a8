// internal/subscription/window.go
//
// Grant-window editing: set or adjust [activated_at, expires_at) on a record
// that is, or once was, active.  Status is never changed here.
//
// Chronology
// ----------
// "start not in the past, end in the future" is a convention, not a store
// invariant; backdating is a legitimate administrative correction.  The
// policy decides how it is enforced:
//
//   - soft (default): the edit commits and the result carries warnings.
//   - hard: the edit fails with a ValidationError.
//
// Start is compared by calendar day (UTC), so "today at 00:00" is not in
// the past.  End is compared to the instant of the edit.

package subscription

import (
	"fmt"
	"time"

	"github.com/yanizio/portal/internal/apperr"
)

// Chronology selects how the past/future convention is enforced.
type Chronology string

const (
	ChronologySoft Chronology = "soft"
	ChronologyHard Chronology = "hard"
)

// ParseChronology maps a config value onto a Chronology.  Empty means soft.
func ParseChronology(s string) (Chronology, error) {
	switch Chronology(s) {
	case "", ChronologySoft:
		return ChronologySoft, nil
	case ChronologyHard:
		return ChronologyHard, nil
	}
	return "", fmt.Errorf("grant_window.chronology: unknown policy %q", s)
}

// Warning is a soft-validation finding attached to a committed edit.
type Warning string

const (
	WarnStartInPast    Warning = "start_in_past"
	WarnEndNotInFuture Warning = "end_not_in_future"
)

// Window is the setGrantWindow input.
type Window struct {
	Start time.Time
	End   *time.Time
}

// WindowResult is the committed record plus any soft warnings.
type WindowResult struct {
	Record   Record    `json:"record"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// ApplyWindow validates w against rec and returns the edited record.  rec is
// never modified.
func ApplyWindow(rec Record, w Window, actor string, now time.Time, policy Chronology) (Record, []Warning, error) {
	if rec.Status != StatusActive && rec.ActivatedAt == nil {
		return rec, nil, &apperr.InvalidTransitionError{
			Command: string(CmdSetGrantWindow),
			State:   string(rec.Status),
			Reason:  "record was never active",
		}
	}
	if w.Start.IsZero() {
		return rec, nil, apperr.Validation("start_date", "is required")
	}
	if w.End != nil && !w.End.After(w.Start) {
		return rec, nil, apperr.Validation("end_date", "must be after start_date")
	}

	var warnings []Warning
	if startDay(w.Start).Before(startDay(now)) {
		if policy == ChronologyHard {
			return rec, nil, apperr.Validation("start_date", "must not be in the past")
		}
		warnings = append(warnings, WarnStartInPast)
	}
	if w.End != nil && !w.End.After(now) {
		if policy == ChronologyHard {
			return rec, nil, apperr.Validation("end_date", "must be in the future")
		}
		warnings = append(warnings, WarnEndNotInFuture)
	}

	next := rec
	start := w.Start
	next.ActivatedAt = &start
	next.ExpiresAt = nil
	if w.End != nil {
		end := *w.End
		next.ExpiresAt = &end
	}
	next.UpdatedAt = now
	next.UpdatedBy = actor

	if err := next.Validate(); err != nil {
		return rec, nil, err
	}
	return next, warnings, nil
}

func startDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
