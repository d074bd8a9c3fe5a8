// internal/subscription/store.go
//
// Persistence contract for subscription records, plus the change feed.
//
// Context
// -------
// Every successful Create, Update, or Delete publishes exactly one
// feed.Subscriptions event after it commits, and events leave a store in
// commit order.  Events carry only the record id and change kind;
// observers re-read.
//
// Update is the only mutation path for lifecycle commands.  It loads the
// current row, hands a copy to fn, validates the invariants on the result,
// bumps Version, and writes it, all atomically.  When fn (or validation)
// fails nothing is written and nothing is published.

package subscription

import (
	"context"

	"github.com/yanizio/portal/internal/apperr"
)

// Store persists subscription records.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	FindByUserTool(ctx context.Context, userID, toolID string) (Record, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	ListAll(ctx context.Context, f Filter) ([]Record, error)
	// Create assigns ID when empty, sets Version to 1, and inserts.
	Create(ctx context.Context, r Record) (Record, error)
	Update(ctx context.Context, id string, fn func(*Record) error) (Record, error)
	Delete(ctx context.Context, id string) error
}

const kindRecord = "subscription"

func errDuplicatePair(userID, toolID string) error {
	return &apperr.ConflictError{ID: userID + "/" + toolID, Reason: "a record for this user and tool already exists"}
}
