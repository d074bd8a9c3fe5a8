// internal/catalog/memory.go
//
// MemoryStore keeps tool types in a map guarded by one mutex.  Events are
// published while the lock is held so observers see commit order.

package catalog

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
	rows map[string]ToolType
	pub  feed.Publisher
}

// NewMemoryStore returns an empty store publishing to pub (nil = discard).
func NewMemoryStore(pub feed.Publisher) *MemoryStore {
	if pub == nil {
		pub = feed.Discard
	}
	return &MemoryStore{rows: make(map[string]ToolType), pub: pub}
}

func (m *MemoryStore) slugTaken(slug, exceptID string) bool {
	for id, t := range m.rows {
		if id != exceptID && t.Slug == slug {
			return true
		}
	}
	return false
}

func (m *MemoryStore) Create(_ context.Context, t ToolType) (ToolType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, dup := m.rows[t.ID]; dup {
		return ToolType{}, &apperr.ConflictError{ID: t.ID, Reason: "id already exists"}
	}
	if m.slugTaken(t.Slug, "") {
		return ToolType{}, errSlugTaken()
	}
	m.rows[t.ID] = t
	m.pub.Publish(feed.Event{Collection: feed.ToolTypes, RecordID: t.ID, Kind: feed.Insert})
	return t, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (ToolType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return ToolType{}, apperr.NotFound(kindToolType, id)
	}
	return t, nil
}

func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (ToolType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.Slug == slug {
			return t, nil
		}
	}
	return ToolType{}, apperr.NotFound(kindToolType, slug)
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*ToolType) error) (ToolType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.rows[id]
	if !ok {
		return ToolType{}, apperr.NotFound(kindToolType, id)
	}
	next := cur
	if err := fn(&next); err != nil {
		return ToolType{}, err
	}
	next.ID = id
	if next.Slug != cur.Slug && m.slugTaken(next.Slug, id) {
		return ToolType{}, errSlugTaken()
	}
	m.rows[id] = next
	m.pub.Publish(feed.Event{Collection: feed.ToolTypes, RecordID: id, Kind: feed.Update})
	return next, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperr.NotFound(kindToolType, id)
	}
	delete(m.rows, id)
	m.pub.Publish(feed.Event{Collection: feed.ToolTypes, RecordID: id, Kind: feed.Delete})
	return nil
}

func (m *MemoryStore) List(_ context.Context, f Filter) ([]ToolType, error) {
	m.mu.Lock()
	out := make([]ToolType, 0, len(m.rows))
	for _, t := range m.rows {
		if f.match(t) {
			out = append(out, t)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
