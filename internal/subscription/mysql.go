// internal/subscription/mysql.go
//
// MySQLStore persists records in `subscription_record` through sqlx.
//
// Context
// -------
// Update is one transaction: SELECT … FOR UPDATE, apply fn to a copy,
// validate, and write with version = version + 1.  Two administrators
// racing on the same record serialize on the row lock; the later one sees
// the earlier one's result and its guard is evaluated against it.
//
// Commit and publish run under mu so the feed sees events in commit order
// for this process.
//
// Notes
// -----
//   - uq_subscription_user_tool turns a duplicate (user_id, tool_id) insert
//     into MySQL 1062, mapped to ConflictError.
//   - Oxford commas, two spaces after periods.

package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/database"
	"github.com/yanizio/portal/internal/feed"
)

const recordColumns = `id, user_id, tool_id, tool_name, status, grant_url, demo_video_url,
       requested_at, activated_at, expires_at, updated_at, updated_by,
       stopped_by_admin, client_can_request_again, last_request_date, version`

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

func (s *MySQLStore) getOne(ctx context.Context, q sqlx.QueryerContext, key, query string, args ...any) (Record, error) {
	var r Record
	if err := sqlx.GetContext(ctx, q, &r, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, apperr.NotFound(kindRecord, key)
		}
		return Record{}, fmt.Errorf("select subscription_record: %w", err)
	}
	return r, nil
}

func (s *MySQLStore) Get(ctx context.Context, id string) (Record, error) {
	const q = `SELECT ` + recordColumns + ` FROM subscription_record WHERE id = ? LIMIT 1`
	return s.getOne(ctx, s.db, id, q, id)
}

func (s *MySQLStore) FindByUserTool(ctx context.Context, userID, toolID string) (Record, error) {
	const q = `SELECT ` + recordColumns + ` FROM subscription_record
        WHERE user_id = ? AND tool_id = ? LIMIT 1`
	return s.getOne(ctx, s.db, userID+"/"+toolID, q, userID, toolID)
}

func (s *MySQLStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	const q = `SELECT ` + recordColumns + ` FROM subscription_record
        WHERE user_id = ? ORDER BY requested_at DESC, id`
	rows := []Record{}
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("list subscription_record: %w", err)
	}
	return rows, nil
}

// buildListQuery renders f as a SELECT with positional args.
func buildListQuery(f Filter) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + escapeLike(q) + "%"
		where = append(where, "(tool_name LIKE ? OR tool_id LIKE ? OR user_id LIKE ?)")
		args = append(args, like, like, like)
	}
	if len(f.UserIDs) > 0 {
		clause, inArgs, err := sqlx.In("user_id IN (?)", f.UserIDs)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
		args = append(args, inArgs...)
	}
	if f.RequestedFrom != nil {
		where = append(where, "requested_at >= ?")
		args = append(args, *f.RequestedFrom)
	}
	if f.RequestedTo != nil {
		where = append(where, "requested_at <= ?")
		args = append(args, *f.RequestedTo)
	}
	if f.ActivatedFrom != nil {
		where = append(where, "activated_at >= ?")
		args = append(args, *f.ActivatedFrom)
	}
	if f.ActivatedTo != nil {
		where = append(where, "activated_at <= ?")
		args = append(args, *f.ActivatedTo)
	}

	q := `SELECT ` + recordColumns + ` FROM subscription_record`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY requested_at DESC, id`
	return q, args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (s *MySQLStore) ListAll(ctx context.Context, f Filter) ([]Record, error) {
	q, args, err := buildListQuery(f)
	if err != nil {
		return nil, err
	}
	rows := []Record{}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list subscription_record: %w", err)
	}
	return rows, nil
}

func (s *MySQLStore) Create(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Version = 1
	if err := r.Validate(); err != nil {
		return Record{}, err
	}

	const q = `
        INSERT INTO subscription_record (
            id, user_id, tool_id, tool_name, status, grant_url, demo_video_url,
            requested_at, activated_at, expires_at, updated_at, updated_by,
            stopped_by_admin, client_can_request_again, last_request_date, version)
        VALUES (
            :id, :user_id, :tool_id, :tool_name, :status, :grant_url, :demo_video_url,
            :requested_at, :activated_at, :expires_at, :updated_at, :updated_by,
            :stopped_by_admin, :client_can_request_again, :last_request_date, :version)`

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.NamedExecContext(ctx, q, r); err != nil {
		if database.IsDuplicate(err) {
			return Record{}, errDuplicatePair(r.UserID, r.ToolID)
		}
		return Record{}, fmt.Errorf("insert subscription_record: %w", err)
	}
	s.pub.Publish(feed.Event{Collection: feed.Subscriptions, RecordID: r.ID, Kind: feed.Insert})
	return r, nil
}

func (s *MySQLStore) Update(ctx context.Context, id string, fn func(*Record) error) (Record, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	const sel = `SELECT ` + recordColumns + ` FROM subscription_record WHERE id = ? FOR UPDATE`
	cur, err := s.getOne(ctx, tx, id, sel, id)
	if err != nil {
		return Record{}, err
	}
	next := cur.clone()
	if err := fn(&next); err != nil {
		return Record{}, err
	}
	next.ID = id
	next.Version = cur.Version + 1
	if err := next.Validate(); err != nil {
		return Record{}, err
	}

	const upd = `
        UPDATE subscription_record
        SET    status = :status, grant_url = :grant_url, demo_video_url = :demo_video_url,
               tool_name = :tool_name, activated_at = :activated_at, expires_at = :expires_at,
               updated_at = :updated_at, updated_by = :updated_by,
               stopped_by_admin = :stopped_by_admin,
               client_can_request_again = :client_can_request_again,
               last_request_date = :last_request_date, version = :version
        WHERE  id = :id`
	if _, err := tx.NamedExecContext(ctx, upd, next); err != nil {
		return Record{}, fmt.Errorf("update subscription_record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit subscription_record: %w", err)
	}
	s.pub.Publish(feed.Event{Collection: feed.Subscriptions, RecordID: id, Kind: feed.Update})
	return next, nil
}

func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM subscription_record WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription_record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(kindRecord, id)
	}
	s.pub.Publish(feed.Event{Collection: feed.Subscriptions, RecordID: id, Kind: feed.Delete})
	return nil
}
