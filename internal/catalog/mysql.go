// internal/catalog/mysql.go
//
// MySQLStore persists tool types in `tool_type` through sqlx.
//
// Context
// -------
// Update runs read-modify-write inside one transaction with the row locked
// (SELECT … FOR UPDATE), so a concurrent edit waits instead of interleaving.
// Commit and publish happen under mu, which keeps feed order equal to
// commit order for this process.
//
// Notes
// -----
//   - A duplicate slug surfaces as MySQL 1062 on uq_tool_type_slug and is
//     mapped to a ValidationError on "slug".
//   - Oxford commas, two spaces after periods.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/database"
	"github.com/yanizio/portal/internal/feed"
)

const toolTypeColumns = `id, name, description, slug, icon_category, status, created_at, updated_at`

// MySQLStore is a Store backed by MySQL.
type MySQLStore struct {
	db  *sqlx.DB
	pub feed.Publisher
	mu  sync.Mutex
}

// NewMySQLStore wraps db.  pub may be nil.
func NewMySQLStore(db *sqlx.DB, pub feed.Publisher) *MySQLStore {
	if pub == nil {
		pub = feed.Discard
	}
	return &MySQLStore{db: db, pub: pub}
}

func (s *MySQLStore) Create(ctx context.Context, t ToolType) (ToolType, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	const q = `
        INSERT INTO tool_type (` + toolTypeColumns + `)
        VALUES (:id, :name, :description, :slug, :icon_category, :status,
                :created_at, :updated_at)`

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.NamedExecContext(ctx, q, t); err != nil {
		if database.IsDuplicate(err) {
			return ToolType{}, errSlugTaken()
		}
		return ToolType{}, fmt.Errorf("insert tool_type: %w", err)
	}
	s.pub.Publish(feed.Event{Collection: feed.ToolTypes, RecordID: t.ID, Kind: feed.Insert})
	return t, nil
}

func (s *MySQLStore) Get(ctx context.Context, id string) (ToolType, error) {
	const q = `SELECT ` + toolTypeColumns + ` FROM tool_type WHERE id = ? LIMIT 1`
	return s.getOne(ctx, s.db, q, id)
}

func (s *MySQLStore) GetBySlug(ctx context.Context, slug string) (ToolType, error) {
	const q = `SELECT ` + toolTypeColumns + ` FROM tool_type WHERE slug = ? LIMIT 1`
	return s.getOne(ctx, s.db, q, slug)
}

func (s *MySQLStore) getOne(ctx context.Context, q sqlx.QueryerContext, query, key string) (ToolType, error) {
	var t ToolType
	if err := sqlx.GetContext(ctx, q, &t, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ToolType{}, apperr.NotFound(kindToolType, key)
		}
		return ToolType{}, fmt.Errorf("select tool_type: %w", err)
	}
	return t, nil
}

func (s *MySQLStore) Update(ctx context.Context, id string, fn func(*ToolType) error) (ToolType, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ToolType{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	const sel = `SELECT ` + toolTypeColumns + ` FROM tool_type WHERE id = ? FOR UPDATE`
	next, err := s.getOne(ctx, tx, sel, id)
	if err != nil {
		return ToolType{}, err
	}
	if err := fn(&next); err != nil {
		return ToolType{}, err
	}
	next.ID = id

	const upd = `
        UPDATE tool_type
        SET    name = :name, description = :description, slug = :slug,
               icon_category = :icon_category, status = :status,
               updated_at = :updated_at
        WHERE  id = :id`
	if _, err := tx.NamedExecContext(ctx, upd, next); err != nil {
		if database.IsDuplicate(err) {
			return ToolType{}, errSlugTaken()
		}
		return ToolType{}, fmt.Errorf("update tool_type: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := tx.Commit(); err != nil {
		return ToolType{}, fmt.Errorf("commit tool_type: %w", err)
	}
	s.pub.Publish(feed.Event{Collection: feed.ToolTypes, RecordID: id, Kind: feed.Update})
	return next, nil
}

func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM tool_type WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tool_type: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(kindToolType, id)
	}
	s.pub.Publish(feed.Event{Collection: feed.ToolTypes, RecordID: id, Kind: feed.Delete})
	return nil
}

func (s *MySQLStore) List(ctx context.Context, f Filter) ([]ToolType, error) {
	q := `SELECT ` + toolTypeColumns + ` FROM tool_type`
	var args []any
	if f.Status != "" {
		q += ` WHERE status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY name, id`

	rows := []ToolType{}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list tool_type: %w", err)
	}
	return rows, nil
}
