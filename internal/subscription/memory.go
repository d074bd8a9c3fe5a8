// internal/subscription/memory.go
//
// MemoryStore keeps records in a map behind one mutex.  Publishing happens
// while the lock is held, so feed order equals commit order.

package subscription

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/feed"
)

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Record
	pub  feed.Publisher
}

// NewMemoryStore returns an empty store publishing to pub (nil = discard).
func NewMemoryStore(pub feed.Publisher) *MemoryStore {
	if pub == nil {
		pub = feed.Discard
	}
	return &MemoryStore{rows: make(map[string]Record), pub: pub}
}

func (m *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return Record{}, apperr.NotFound(kindRecord, id)
	}
	return r.clone(), nil
}

func (m *MemoryStore) FindByUserTool(_ context.Context, userID, toolID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && r.ToolID == toolID {
			return r.clone(), nil
		}
	}
	return Record{}, apperr.NotFound(kindRecord, userID+"/"+toolID)
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return m.ListAll(ctx, Filter{UserIDs: []string{userID}})
}

func (m *MemoryStore) ListAll(_ context.Context, f Filter) ([]Record, error) {
	m.mu.Lock()
	out := make([]Record, 0, len(m.rows))
	for _, r := range m.rows {
		if f.match(r) {
			out = append(out, r.clone())
		}
	}
	m.mu.Unlock()

	sortRecords(out)
	return out, nil
}

// sortRecords orders newest request first, id as tie-break.
func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].RequestedAt.Equal(rs[j].RequestedAt) {
			return rs[i].RequestedAt.After(rs[j].RequestedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

func (m *MemoryStore) Create(_ context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Version = 1
	if err := r.Validate(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.rows[r.ID]; dup {
		return Record{}, &apperr.ConflictError{ID: r.ID, Reason: "id already exists"}
	}
	for _, cur := range m.rows {
		if cur.UserID == r.UserID && cur.ToolID == r.ToolID {
			return Record{}, errDuplicatePair(r.UserID, r.ToolID)
		}
	}
	m.rows[r.ID] = r.clone()
	m.pub.Publish(feed.Event{Collection: feed.Subscriptions, RecordID: r.ID, Kind: feed.Insert})
	return r, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Record) error) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.rows[id]
	if !ok {
		return Record{}, apperr.NotFound(kindRecord, id)
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
	m.rows[id] = next.clone()
	m.pub.Publish(feed.Event{Collection: feed.Subscriptions, RecordID: id, Kind: feed.Update})
	return next, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperr.NotFound(kindRecord, id)
	}
	delete(m.rows, id)
	m.pub.Publish(feed.Event{Collection: feed.Subscriptions, RecordID: id, Kind: feed.Delete})
	return nil
}
