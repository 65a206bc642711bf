package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"food-ordering/api/models"
	"food-ordering/api/realtime"
)

type OrderSource interface {
	Orders(ctx context.Context, restaurantID string) ([]*models.Order, error)
	SubscribeOrders(ctx context.Context, restaurantID string) (Feed, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

// Alerter is told about orders that arrive while the board is open.
type Alerter interface {
	NewOrder(order models.Order) error
}

type Tab string

const (
	TabPending   Tab = "pending"
	TabPreparing Tab = "preparing"
	TabReady     Tab = "ready"
	TabCompleted Tab = "completed"
	TabAll       Tab = "all"
)

var Tabs = []Tab{TabPending, TabPreparing, TabReady, TabCompleted, TabAll}

type OrderBoard struct {
	source       OrderSource
	alerter      Alerter
	restaurantID string

	mu     sync.Mutex
	orders []models.Order

	// OnChange, when set, runs after every change to the board.
	OnChange func()

	follower follower
}

func NewOrderBoard(source OrderSource, restaurantID string, alerter Alerter) *OrderBoard {
	return &OrderBoard{source: source, restaurantID: restaurantID, alerter: alerter}
}

// Start subscribes to the restaurant's order changes, loads the current
// orders and then applies changes until ctx ends or Stop is called.
// Changes that race the snapshot are buffered by the subscription and
// applied after it.
func (b *OrderBoard) Start(ctx context.Context) error {
	feed, err := b.source.SubscribeOrders(ctx, b.restaurantID)
	if err != nil {
		return fmt.Errorf("subscribe to orders: %w", err)
	}
	snapshot, err := b.source.Orders(ctx, b.restaurantID)
	if err != nil {
		feed.Close()
		return fmt.Errorf("load orders: %w", err)
	}

	b.mu.Lock()
	b.orders = make([]models.Order, 0, len(snapshot))
	for _, o := range snapshot {
		b.orders = append(b.orders, *o)
	}
	sort.SliceStable(b.orders, func(i, j int) bool {
		return b.orders[i].CreatedAt.After(b.orders[j].CreatedAt)
	})
	b.mu.Unlock()
	b.changed()

	b.follower.start(ctx, feed, b.Apply)
	return nil
}

func (b *OrderBoard) Stop() {
	b.follower.stop()
}

// Apply folds one change into the board.
func (b *OrderBoard) Apply(e realtime.Event) {
	if e.Table != realtime.TableOrders {
		return
	}
	switch e.Type {
	case realtime.EventInsert:
		var o models.Order
		if err := json.Unmarshal(e.Record, &o); err != nil {
			logDecodeError(e.Table, err)
			return
		}
		if b.insert(o) {
			b.alert(o)
			b.changed()
		}
	case realtime.EventUpdate:
		var patch models.OrderPatch
		if err := json.Unmarshal(e.Record, &patch); err != nil {
			logDecodeError(e.Table, err)
			return
		}
		if b.patch(patch) {
			b.changed()
		}
	case realtime.EventDelete:
		if b.remove(e.OldID) {
			b.changed()
		}
	}
}

// insert keeps the board newest first. Known ids are ignored.
func (b *OrderBoard) insert(o models.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexOf(o.ID) >= 0 {
		return false
	}
	i := sort.Search(len(b.orders), func(i int) bool {
		return !b.orders[i].CreatedAt.After(o.CreatedAt)
	})
	b.orders = append(b.orders, models.Order{})
	copy(b.orders[i+1:], b.orders[i:])
	b.orders[i] = o
	return true
}

// patch changes only the status fields of a known order.
func (b *OrderBoard) patch(p models.OrderPatch) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(p.ID)
	if i < 0 {
		return false
	}
	if p.Status != "" {
		b.orders[i].Status = p.Status
	}
	if p.PaymentStatus != "" {
		b.orders[i].PaymentStatus = p.PaymentStatus
	}
	return true
}

func (b *OrderBoard) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.orders = append(b.orders[:i], b.orders[i+1:]...)
	return true
}

func (b *OrderBoard) indexOf(id string) int {
	for i := range b.orders {
		if b.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *OrderBoard) alert(o models.Order) {
	if b.alerter == nil {
		return
	}
	if err := b.alerter.NewOrder(o); err != nil {
		log.Printf("Failed to alert on order %s: %v", o.ID, err)
	}
}

func (b *OrderBoard) changed() {
	if b.OnChange != nil {
		b.OnChange()
	}
}

// Orders returns every order on the board, newest first.
func (b *OrderBoard) Orders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Visible filters the board to a tab. TabAll shows everything, the other
// tabs show orders in the status of the same name.
func (b *OrderBoard) Visible(tab Tab) []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Order, 0, len(b.orders))
	for _, o := range b.orders {
		if tab == TabAll || string(o.Status) == string(tab) {
			out = append(out, o)
		}
	}
	return out
}

// Transition performs action on an order. The board shows the new status
// right away and puts the old one back if the write fails.
func (b *OrderBoard) Transition(ctx context.Context, id string, action models.OrderAction) error {
	b.mu.Lock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.Unlock()
		return models.ErrNotFound
	}
	previous := b.orders[i].Status
	next, err := previous.Apply(action)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.orders[i].Status = next
	b.mu.Unlock()
	b.changed()

	if _, err := b.source.UpdateOrderStatus(ctx, id, next); err != nil {
		b.mu.Lock()
		if i := b.indexOf(id); i >= 0 && b.orders[i].Status == next {
			b.orders[i].Status = previous
		}
		b.mu.Unlock()
		b.changed()
		return fmt.Errorf("update order %s: %w", id, err)
	}
	return nil
}
