// internal/subscription/lifecycle.go
//
// The subscription state machine.
//
// Context
// -------
// Apply is a pure function: it takes a record and a command and returns the
// next record, or a typed error and the untouched input.  Stores call it
// inside their atomic update, so a transition either fully commits or
// leaves nothing behind.
//
// Transition table
// ----------------
//
//	from                 command     guard                      to
//	pending              approve     grant_url valid            active
//	rejected, inactive   approve     grant_url valid            active
//	rejected, inactive   reactivate  grant_url valid            active
//	pending              reject      none                       rejected
//	active               stop        none                       inactive
//	rejected, inactive   reopen      client_can_request_again   pending
//
// Everything else fails with InvalidTransitionError.  Creation (request) is
// handled by NewRequest; a request against an existing record is routed by
// the service.
//
// Notes
// -----
//   - Every transition stamps updated_at and updated_by.
//   - Oxford commas, two spaces after periods.

package subscription

import (
	"strings"
	"time"

	"github.com/yanizio/portal/internal/apperr"
)

// Command names a lifecycle operation.  Values double as acl actions and
// metric labels.
type Command string

const (
	CmdRequest        Command = "request"
	CmdApprove        Command = "approve"
	CmdReject         Command = "reject"
	CmdStop           Command = "stop"
	CmdReactivate     Command = "reactivate"
	CmdReopen         Command = "reopen"
	CmdSetGrantWindow Command = "set_grant_window"
)

var transitions = map[Command]map[Status]Status{
	CmdApprove: {
		StatusPending:  StatusActive,
		StatusRejected: StatusActive,
		StatusInactive: StatusActive,
	},
	CmdReactivate: {
		StatusRejected: StatusActive,
		StatusInactive: StatusActive,
	},
	CmdReject: {
		StatusPending: StatusRejected,
	},
	CmdStop: {
		StatusActive: StatusInactive,
	},
	CmdReopen: {
		StatusRejected: StatusPending,
		StatusInactive: StatusPending,
	},
}

// Next returns the state cmd leads to from, and whether it is legal.
func Next(from Status, cmd Command) (Status, bool) {
	to, ok := transitions[cmd][from]
	return to, ok
}

// Transition is one command invocation.
type Transition struct {
	Command      Command
	Actor        string
	At           time.Time
	GrantURL     string // approve, reactivate
	DemoVideoURL string // approve, reactivate; optional
}

// Apply runs t against rec and returns the resulting record.  rec is never
// modified.
func Apply(rec Record, t Transition) (Record, error) {
	if t.Command == CmdReopen && !rec.ClientCanRequestAgain {
		return rec, &apperr.InvalidTransitionError{
			Command: string(t.Command),
			State:   string(rec.Status),
			Reason:  "client may not request again",
		}
	}

	to, ok := Next(rec.Status, t.Command)
	if !ok {
		return rec, &apperr.InvalidTransitionError{
			Command: string(t.Command),
			State:   string(rec.Status),
		}
	}

	next := rec
	switch t.Command {
	case CmdApprove, CmdReactivate:
		grant := strings.TrimSpace(t.GrantURL)
		if grant == "" {
			return rec, apperr.Validation("grant_url", "is required")
		}
		at := t.At
		next.ActivatedAt = &at
		next.GrantURL = grant
		if t.DemoVideoURL != "" {
			next.DemoVideoURL = t.DemoVideoURL
		}
		next.StoppedByAdmin = false
		next.ClientCanRequestAgain = false
		if next.ExpiresAt != nil && !next.ExpiresAt.After(at) {
			next.ExpiresAt = nil
		}
	case CmdReject:
		next.ClientCanRequestAgain = true
	case CmdStop:
		next.StoppedByAdmin = true
		next.ClientCanRequestAgain = true
	case CmdReopen:
		next.LastRequestDate = t.At
		next.ClientCanRequestAgain = false
	}
	next.Status = to
	next.UpdatedAt = t.At
	next.UpdatedBy = t.Actor

	if err := next.Validate(); err != nil {
		return rec, err
	}
	return next, nil
}

// NewRequest builds the pending record a client request creates.  The store
// assigns ID and Version.
func NewRequest(userID, toolID, toolName, grantURLHint, actor string, at time.Time) Record {
	return Record{
		UserID:                userID,
		ToolID:                toolID,
		ToolName:              toolName,
		Status:                StatusPending,
		GrantURL:              strings.TrimSpace(grantURLHint),
		RequestedAt:           at,
		LastRequestDate:       at,
		UpdatedAt:             at,
		UpdatedBy:             actor,
		ClientCanRequestAgain: false,
	}
}
