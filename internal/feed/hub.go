// internal/feed/hub.go
//
// In-process change feed.
//
// Context
// -------
// Stores publish one Event per committed create, update, or delete.  The
// Hub fans each event out to every subscribed observer.  Events carry only
// the record id and the change kind; observers treat them as a "something
// changed, re-read" signal and re-query the store.
//
// Delivery
// --------
//   - Publish assigns a sequence number and appends the event to every
//     observer's queue while holding the hub lock, so each observer sees
//     events in publish (commit) order.
//   - Each observer has its own goroutine and unbounded queue; a slow
//     observer delays only itself and never loses events.
//   - Unsubscribe is immediate: once it returns no new callback starts for
//     that observer.  A callback already running is allowed to finish.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package feed

import (
	"sync"
	"time"

	"github.com/yanizio/portal/internal/apperr"
	"github.com/yanizio/portal/internal/metrics"
)

// ChangeKind describes what happened to a record.
type ChangeKind string

const (
	Insert ChangeKind = "insert"
	Update ChangeKind = "update"
	Delete ChangeKind = "delete"
)

// Collection names the record collection an event belongs to.
type Collection string

const (
	Subscriptions Collection = "subscriptions"
	ToolTypes     Collection = "tool_types"
)

// ParseCollection accepts only the collections stores publish.
func ParseCollection(s string) (Collection, error) {
	switch c := Collection(s); c {
	case Subscriptions, ToolTypes:
		return c, nil
	}
	return "", apperr.Validation("collection", "must be one of subscriptions tool_types")
}

// Event is a change notification.  It never carries the diff.
type Event struct {
	Seq        uint64     `json:"seq"`
	Collection Collection `json:"collection"`
	RecordID   string     `json:"record_id"`
	Kind       ChangeKind `json:"change_kind"`
	At         time.Time  `json:"at"`
}

// Publisher is what stores depend on.
type Publisher interface {
	Publish(ev Event)
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Hub is a fan-out Publisher.  The zero value is not usable; call NewHub.
type Hub struct {
	mu   sync.Mutex
	seq  uint64
	next uint64
	subs map[uint64]*observer
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*observer)}
}

// Publish stamps ev with the next sequence number and queues it for every
// current observer.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.Lock()
	h.seq++
	ev.Seq = h.seq
	for _, o := range h.subs {
		o.enqueue(ev)
	}
	h.mu.Unlock()

	metrics.FeedEvents.WithLabelValues(string(ev.Kind)).Inc()
}

// Subscribe registers fn as an observer.  Only events from the listed
// collections are delivered; none means all.  The returned func
// unsubscribes and is safe to call more than once.
func (h *Hub) Subscribe(fn func(Event), only ...Collection) (unsubscribe func()) {
	o := &observer{
		fn:     fn,
		only:   only,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.next++
	id := h.next
	h.subs[id] = o
	h.mu.Unlock()

	metrics.FeedSubscribers.Inc()
	go o.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			o.close()
			metrics.FeedSubscribers.Dec()
		})
	}
}

// Len reports the number of current observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// observer holds one subscriber's pending events.
type observer struct {
	fn   func(Event)
	only []Collection

	mu     sync.Mutex
	queue  []Event
	closed bool

	notify chan struct{}
	done   chan struct{}
}

func (o *observer) wants(c Collection) bool {
	if len(o.only) == 0 {
		return true
	}
	for _, x := range o.only {
		if x == c {
			return true
		}
	}
	return false
}

func (o *observer) enqueue(ev Event) {
	if !o.wants(ev.Collection) {
		return
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.queue = append(o.queue, ev)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

func (o *observer) close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		o.queue = nil
		close(o.done)
	}
	o.mu.Unlock()
}

// pop returns the next event, or false when the queue is empty or closed.
func (o *observer) pop() (Event, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || len(o.queue) == 0 {
		return Event{}, false
	}
	ev := o.queue[0]
	o.queue[0] = Event{}
	o.queue = o.queue[1:]
	return ev, true
}

func (o *observer) run() {
	for {
		select {
		case <-o.done:
			return
		case <-o.notify:
		}
		for {
			ev, ok := o.pop()
			if !ok {
				break
			}
			o.fn(ev)
		}
	}
}
