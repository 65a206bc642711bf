// Package realtime is the change feed: every committed write to a watched
// table becomes an Event, delivered to the subscriptions whose filter
// matches it.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

type Table string

const (
	TableOrders    Table = "orders"
	TableMenuItems Table = "menu_items"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type Event struct {
	Table        Table           `json:"table"`
	Type         EventType       `json:"type"`
	RestaurantID string          `json:"restaurant_id"`
	Record       json.RawMessage `json:"record,omitempty"`
	OldID        string          `json:"old_id,omitempty"`
	CommittedAt  time.Time       `json:"commit_timestamp"`
}

// NewEvent builds an insert or update event carrying record as its new row.
func NewEvent(table Table, typ EventType, restaurantID string, record interface{}) (Event, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Table:        table,
		Type:         typ,
		RestaurantID: restaurantID,
		Record:       data,
		CommittedAt:  time.Now().UTC(),
	}, nil
}

func NewDeleteEvent(table Table, restaurantID, id string) Event {
	return Event{
		Table:        table,
		Type:         EventDelete,
		RestaurantID: restaurantID,
		OldID:        id,
		CommittedAt:  time.Now().UTC(),
	}
}

// Filter selects events of one table, optionally scoped to a restaurant.
type Filter struct {
	Table        Table
	RestaurantID string
}

func (f Filter) Matches(e Event) bool {
	if f.Table != e.Table {
		return false
	}
	return f.RestaurantID == "" || f.RestaurantID == e.RestaurantID
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
	}
}

type Subscription struct {
	C      <-chan Event
	Filter Filter

	ch   chan Event
	hub  *Hub
	id   uint64
	once sync.Once
}

// Subscribe registers a listener. The caller owns the subscription and must
// Close it when the view it feeds goes away.
func (h *Hub) Subscribe(f Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, Filter: f, ch: ch, hub: h, id: h.nextID}
	h.subs[sub.id] = sub
	return sub
}

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Publish delivers e to local subscribers.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.Dispatch(e)
	return nil
}

// Dispatch hands e to every matching subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (h *Hub) Dispatch(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.Filter.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			log.Printf("Dropping %s %s event for slow subscriber %d", e.Table, e.Type, sub.id)
		}
	}
}

// Count is the number of open subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
