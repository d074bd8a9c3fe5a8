// internal/subscription/lifecycle_test.go
//
// State-machine tests: the full transition table, guard failures, field
// effects, and the status invariants after every legal step.
//
// Run: go test ./internal/subscription -run 'Apply|Next|Invariant' -v

package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/portal/internal/apperr"
)

var (
	t0 = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(1 * time.Hour)
	t2 = t0.Add(2 * time.Hour)
	t3 = t0.Add(3 * time.Hour)
)

const grant = "https://tool.example/r1"

func pending() Record {
	r := NewRequest("u1", "crm", "CRM", "", "u1", t0)
	r.ID = "r1"
	r.Version = 1
	return r
}

func inState(t *testing.T, s Status) Record {
	t.Helper()
	r := pending()
	var err error
	switch s {
	case StatusPending:
	case StatusActive:
		r, err = Apply(r, Transition{Command: CmdApprove, Actor: "admin", At: t1, GrantURL: grant})
	case StatusRejected:
		r, err = Apply(r, Transition{Command: CmdReject, Actor: "admin", At: t1})
	case StatusInactive:
		r, err = Apply(r, Transition{Command: CmdApprove, Actor: "admin", At: t1, GrantURL: grant})
		require.NoError(t, err)
		r, err = Apply(r, Transition{Command: CmdStop, Actor: "admin", At: t1})
	}
	require.NoError(t, err)
	require.Equal(t, s, r.Status)
	return r
}

func TestNewRequest(t *testing.T) {
	r := pending()
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, t0, r.RequestedAt)
	assert.Equal(t, t0, r.LastRequestDate)
	assert.False(t, r.ClientCanRequestAgain)
	assert.Nil(t, r.ActivatedAt)
	assert.NoError(t, r.Validate())
}

func TestNext_Table(t *testing.T) {
	all := []Status{StatusPending, StatusActive, StatusRejected, StatusInactive}
	want := map[Command]map[Status]Status{
		CmdApprove:    {StatusPending: StatusActive, StatusRejected: StatusActive, StatusInactive: StatusActive},
		CmdReactivate: {StatusRejected: StatusActive, StatusInactive: StatusActive},
		CmdReject:     {StatusPending: StatusRejected},
		CmdStop:       {StatusActive: StatusInactive},
		CmdReopen:     {StatusRejected: StatusPending, StatusInactive: StatusPending},
	}
	for cmd, legal := range want {
		for _, from := range all {
			to, ok := Next(from, cmd)
			exp, expOK := legal[from]
			assert.Equal(t, expOK, ok, "%s from %s", cmd, from)
			assert.Equal(t, exp, to, "%s from %s", cmd, from)
		}
	}
	_, ok := Next(StatusPending, CmdRequest)
	assert.False(t, ok, "request is not a table transition")
}

func TestApply_IllegalTransitionsDoNotMutate(t *testing.T) {
	cases := []struct {
		from Status
		cmd  Command
	}{
		{StatusActive, CmdApprove},
		{StatusActive, CmdReject},
		{StatusActive, CmdReactivate},
		{StatusPending, CmdStop},
		{StatusRejected, CmdStop},
		{StatusInactive, CmdStop},
		{StatusRejected, CmdReject},
		{StatusInactive, CmdReject},
		{StatusPending, CmdReactivate},
	}
	for _, c := range cases {
		rec := inState(t, c.from)
		before := rec
		got, err := Apply(rec, Transition{Command: c.cmd, Actor: "admin", At: t2, GrantURL: grant})

		var te *apperr.InvalidTransitionError
		require.ErrorAs(t, err, &te, "%s from %s", c.cmd, c.from)
		assert.Equal(t, string(c.cmd), te.Command)
		assert.Equal(t, string(c.from), te.State)
		assert.Equal(t, before, got)
		assert.Equal(t, before, rec)
	}
}

func TestApply_ApproveEffects(t *testing.T) {
	got, err := Apply(pending(), Transition{
		Command: CmdApprove, Actor: "admin", At: t1,
		GrantURL: "  " + grant + " ", DemoVideoURL: "https://video.example/demo",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	require.NotNil(t, got.ActivatedAt)
	assert.Equal(t, t1, *got.ActivatedAt)
	assert.Equal(t, grant, got.GrantURL)
	assert.Equal(t, "https://video.example/demo", got.DemoVideoURL)
	assert.False(t, got.StoppedByAdmin)
	assert.False(t, got.ClientCanRequestAgain)
	assert.Equal(t, t1, got.UpdatedAt)
	assert.Equal(t, "admin", got.UpdatedBy)
}

func TestApply_ApproveRequiresGrantURL(t *testing.T) {
	rec := pending()
	got, err := Apply(rec, Transition{Command: CmdApprove, Actor: "admin", At: t1, GrantURL: "   "})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "grant_url", ve.Field)
	assert.Equal(t, rec, got)
}

func TestApply_ApproveClearsStaleExpiry(t *testing.T) {
	rec := inState(t, StatusInactive)
	old := t1.Add(30 * time.Minute)
	rec.ExpiresAt = &old

	got, err := Apply(rec, Transition{Command: CmdApprove, Actor: "admin", At: t3, GrantURL: grant})
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)

	future := t3.Add(24 * time.Hour)
	rec.ExpiresAt = &future
	got, err = Apply(rec, Transition{Command: CmdReactivate, Actor: "admin", At: t3, GrantURL: grant})
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, future, *got.ExpiresAt)
}

func TestApply_RejectStopEffects(t *testing.T) {
	rej := inState(t, StatusRejected)
	assert.True(t, rej.ClientCanRequestAgain)
	assert.False(t, rej.StoppedByAdmin)

	stopped := inState(t, StatusInactive)
	assert.True(t, stopped.StoppedByAdmin)
	assert.True(t, stopped.ClientCanRequestAgain)
}

func TestApply_ReopenRequiresPermission(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusActive, StatusRejected, StatusInactive} {
		rec := inState(t, s)
		rec.ClientCanRequestAgain = false

		_, err := Apply(rec, Transition{Command: CmdReopen, Actor: "u1", At: t2})
		var te *apperr.InvalidTransitionError
		require.ErrorAs(t, err, &te, "reopen from %s", s)
		assert.Equal(t, "reopen", te.Command)
		assert.NotEmpty(t, te.Reason)
	}
}

func TestApply_ReopenEffects(t *testing.T) {
	got, err := Apply(inState(t, StatusRejected), Transition{Command: CmdReopen, Actor: "u1", At: t3})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, t3, got.LastRequestDate)
	assert.Equal(t, t0, got.RequestedAt)
	assert.False(t, got.ClientCanRequestAgain)
}

func TestApply_RoundTrip(t *testing.T) {
	r := pending()
	steps := []Transition{
		{Command: CmdReject, Actor: "admin", At: t1},
		{Command: CmdReopen, Actor: "u1", At: t2},
		{Command: CmdApprove, Actor: "admin", At: t3, GrantURL: grant},
	}
	for _, s := range steps {
		var err error
		r, err = Apply(r, s)
		require.NoError(t, err, s.Command)
		require.NoError(t, r.Validate())
	}
	assert.Equal(t, StatusActive, r.Status)
	assert.False(t, r.ClientCanRequestAgain)
	assert.False(t, r.StoppedByAdmin)
}

func TestApply_Scenario(t *testing.T) {
	r := pending()

	r, err := Apply(r, Transition{Command: CmdApprove, Actor: "admin", At: t1, GrantURL: grant})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, t1, *r.ActivatedAt)

	r, err = Apply(r, Transition{Command: CmdStop, Actor: "admin", At: t2})
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, r.Status)
	assert.True(t, r.StoppedByAdmin)
	assert.True(t, r.ClientCanRequestAgain)

	r, err = Apply(r, Transition{Command: CmdReopen, Actor: "u1", At: t3})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, t3, r.LastRequestDate)
	assert.False(t, r.ClientCanRequestAgain)

	r, err = Apply(r, Transition{Command: CmdReject, Actor: "admin", At: t3})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, r.Status)
	assert.True(t, r.ClientCanRequestAgain)
}

// TestInvariant_HoldAfterEverySequence walks every command sequence up to
// length four from a fresh request and checks Validate after each legal
// step.
func TestInvariant_HoldAfterEverySequence(t *testing.T) {
	cmds := []Command{CmdApprove, CmdReactivate, CmdReject, CmdStop, CmdReopen}
	var walk func(r Record, depth int)
	walk = func(r Record, depth int) {
		if depth == 0 {
			return
		}
		for _, c := range cmds {
			next, err := Apply(r, Transition{Command: c, Actor: "x", At: t1, GrantURL: grant})
			if err != nil {
				assert.Equal(t, r, next)
				continue
			}
			require.NoError(t, next.Validate(), "%s from %s", c, r.Status)
			if next.Status == StatusActive {
				assert.False(t, next.StoppedByAdmin)
				assert.NotNil(t, next.ActivatedAt)
				assert.NotEmpty(t, next.GrantURL)
			}
			walk(next, depth-1)
		}
	}
	walk(pending(), 4)
}
