// internal/subscription/window_test.go
//
// Grant-window guards, chronology policy, and the model helpers that read
// the window.
//
// Run: go test ./internal/subscription -run 'Window|GrantValid|Validate|Filter' -v

package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/portal/internal/apperr"
)

func ptr(t time.Time) *time.Time { return &t }

func TestApplyWindow_SetsDatesKeepsStatus(t *testing.T) {
	rec := inState(t, StatusActive)
	now := t2
	start := now.Add(24 * time.Hour)
	end := start.Add(30 * 24 * time.Hour)

	got, warnings, err := ApplyWindow(rec, Window{Start: start, End: &end}, "admin", now, ChronologyHard)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, start, *got.ActivatedAt)
	assert.Equal(t, end, *got.ExpiresAt)
	assert.Equal(t, now, got.UpdatedAt)
	assert.Equal(t, "admin", got.UpdatedBy)

	// Omitting end clears the expiry.
	got, _, err = ApplyWindow(got, Window{Start: start}, "admin", now, ChronologyHard)
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)
}

func TestApplyWindow_FormerlyActive(t *testing.T) {
	rec := inState(t, StatusInactive)
	got, _, err := ApplyWindow(rec, Window{Start: t3}, "admin", t3, ChronologySoft)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, got.Status)
	assert.Equal(t, t3, *got.ActivatedAt)
}

func TestApplyWindow_NeverActive(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusRejected} {
		rec := inState(t, s)
		_, _, err := ApplyWindow(rec, Window{Start: t3}, "admin", t3, ChronologySoft)
		var te *apperr.InvalidTransitionError
		require.ErrorAs(t, err, &te, s)
		assert.Equal(t, "set_grant_window", te.Command)
	}
}

func TestApplyWindow_Guards(t *testing.T) {
	rec := inState(t, StatusActive)

	_, _, err := ApplyWindow(rec, Window{}, "admin", t2, ChronologySoft)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "start_date", ve.Field)

	same := t3
	_, _, err = ApplyWindow(rec, Window{Start: t3, End: &same}, "admin", t2, ChronologySoft)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "end_date", ve.Field)

	before := t3.Add(-time.Minute)
	_, _, err = ApplyWindow(rec, Window{Start: t3, End: &before}, "admin", t2, ChronologySoft)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "end_date", ve.Field)
}

func TestApplyWindow_Chronology(t *testing.T) {
	rec := inState(t, StatusActive)
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	earlyToday := time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC)
	endPast := now.Add(-time.Hour)

	// Soft: commits with warnings.
	got, warnings, err := ApplyWindow(rec, Window{Start: yesterday.Add(-time.Hour), End: &endPast}, "admin", now, ChronologySoft)
	require.NoError(t, err)
	assert.Equal(t, []Warning{WarnStartInPast, WarnEndNotInFuture}, warnings)
	assert.Equal(t, endPast, *got.ExpiresAt)

	// Same calendar day is not "in the past".
	_, warnings, err = ApplyWindow(rec, Window{Start: earlyToday}, "admin", now, ChronologySoft)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// Hard: refuses.
	var ve *apperr.ValidationError
	_, _, err = ApplyWindow(rec, Window{Start: yesterday}, "admin", now, ChronologyHard)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "start_date", ve.Field)

	_, _, err = ApplyWindow(rec, Window{Start: earlyToday, End: &endPast}, "admin", now, ChronologyHard)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "end_date", ve.Field)
}

func TestParseChronology(t *testing.T) {
	c, err := ParseChronology("")
	require.NoError(t, err)
	assert.Equal(t, ChronologySoft, c)
	c, err = ParseChronology("hard")
	require.NoError(t, err)
	assert.Equal(t, ChronologyHard, c)
	_, err = ParseChronology("strict")
	assert.Error(t, err)
}

func TestRecordValidate(t *testing.T) {
	ok := inState(t, StatusActive)
	require.NoError(t, ok.Validate())

	cases := map[string]func(r *Record){
		"unknown status":        func(r *Record) { r.Status = "archived" },
		"active no activatedAt": func(r *Record) { r.ActivatedAt = nil },
		"active no grant":       func(r *Record) { r.GrantURL = "" },
		"active but stopped":    func(r *Record) { r.StoppedByAdmin = true },
		"expiry before start":   func(r *Record) { r.ExpiresAt = ptr(r.ActivatedAt.Add(-time.Second)) },
		"expiry equals start":   func(r *Record) { r.ExpiresAt = ptr(*r.ActivatedAt) },
		"pending can re-request": func(r *Record) {
			r.Status = StatusPending
			r.ClientCanRequestAgain = true
		},
	}
	for name, mutate := range cases {
		r := ok.clone()
		mutate(&r)
		assert.ErrorIs(t, r.Validate(), ErrInvariant, name)
	}
}

func TestGrantValid(t *testing.T) {
	rec := inState(t, StatusActive) // activated at t1
	assert.False(t, rec.GrantValid(t0))
	assert.True(t, rec.GrantValid(t1))
	assert.True(t, rec.GrantValid(t1.Add(1000*time.Hour)))

	rec.ExpiresAt = ptr(t3)
	assert.True(t, rec.GrantValid(t2))
	assert.False(t, rec.GrantValid(t3))

	stopped := inState(t, StatusInactive)
	assert.False(t, stopped.GrantValid(t2))
}

func TestFilterMatch(t *testing.T) {
	a := inState(t, StatusActive)
	a.UserID, a.ToolName = "alice", "Team Calendar"
	p := pending()
	p.UserID, p.ToolName, p.RequestedAt = "bob", "CRM Suite", t2

	assert.True(t, Filter{}.match(a))
	assert.True(t, Filter{Status: StatusActive}.match(a))
	assert.False(t, Filter{Status: StatusActive}.match(p))
	assert.True(t, Filter{Search: "calendar"}.match(a))
	assert.True(t, Filter{Search: "ALI"}.match(a))
	assert.False(t, Filter{Search: "calendar"}.match(p))
	assert.True(t, Filter{UserIDs: []string{"carol", "bob"}}.match(p))
	assert.False(t, Filter{UserIDs: []string{"carol"}}.match(p))
	assert.True(t, Filter{RequestedFrom: ptr(t1)}.match(p))
	assert.False(t, Filter{RequestedTo: ptr(t1)}.match(p))
	assert.True(t, Filter{ActivatedFrom: ptr(t0), ActivatedTo: ptr(t2)}.match(a))
	assert.False(t, Filter{ActivatedFrom: ptr(t0)}.match(p), "never activated")
}
