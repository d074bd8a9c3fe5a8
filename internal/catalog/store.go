// internal/catalog/store.go
//
// Persistence contract for tool types.  Two implementations ship: MySQL
// (sqlx) for production and an in-memory map for tests and the `memory`
// database driver.
//
// Every successful Create, Update, or Delete publishes exactly one
// feed.ToolTypes event after commit.  Slug uniqueness is enforced by the
// store and reported as a ValidationError on field "slug".

package catalog

import (
	"context"

	"github.com/yanizio/portal/internal/apperr"
)

// Store persists ToolType rows.
type Store interface {
	// Create assigns t.ID when empty and inserts the row.
	Create(ctx context.Context, t ToolType) (ToolType, error)
	Get(ctx context.Context, id string) (ToolType, error)
	GetBySlug(ctx context.Context, slug string) (ToolType, error)
	// Update loads the row, applies fn, and writes the result atomically.
	// An error from fn aborts without writing.
	Update(ctx context.Context, id string, fn func(*ToolType) error) (ToolType, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]ToolType, error)
}

const kindToolType = "tool_type"

func errSlugTaken() error {
	return apperr.Validation("slug", "already exists")
}
