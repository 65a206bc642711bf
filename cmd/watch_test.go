package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-ordering/api/dashboard"
	"food-ordering/api/models"
	"food-ordering/api/realtime"
)

type hubSource struct {
	hub    *realtime.Hub
	orders []*models.Order
}

func (s *hubSource) Orders(context.Context, string) ([]*models.Order, error) { return s.orders, nil }

func (s *hubSource) SubscribeOrders(_ context.Context, restaurantID string) (dashboard.Feed, error) {
	return dashboard.HubFeed{Sub: s.hub.Subscribe(realtime.Filter{Table: realtime.TableOrders, RestaurantID: restaurantID})}, nil
}

func (s *hubSource) UpdateOrderStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return &models.Order{ID: id, Status: status}, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRingsBellAndRunsCommands(t *testing.T) {
	src := &hubSource{
		hub: realtime.NewHub(8),
		orders: []*models.Order{{
			ID: "o1", RestaurantID: "r1", UserName: "Asha", Type: models.OrderTypePickup,
			Status: models.OrderStatusPending, TotalAmount: decimal.NewFromInt(210),
		}},
	}
	in, inWriter := io.Pipe()
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- watch(ctx, src, "r1", dashboard.TabPending, in, out) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "o1") }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return src.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	e, err := realtime.NewEvent(realtime.TableOrders, realtime.EventInsert, "r1", &models.Order{
		ID: "o2", RestaurantID: "r1", UserName: "Ravi", Type: models.OrderTypeDelivery,
		Status: models.OrderStatusPending, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, src.hub.Publish(ctx, e))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "\a>> New delivery order from Ravi")
	}, time.Second, 5*time.Millisecond)

	_, err = inWriter.Write([]byte("start_preparing o1\ntab preparing\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "== preparing (1) ==") }, time.Second, 5*time.Millisecond)

	_, err = inWriter.Write([]byte("complete o2\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "error:") }, time.Second, 5*time.Millisecond)

	cancel()
	_ = inWriter.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, 0, src.hub.Count())
}

func TestWatchRejectsUnknownTab(t *testing.T) {
	err := watch(context.Background(), &hubSource{hub: realtime.NewHub(1)}, "r1", "archived", strings.NewReader(""), io.Discard)
	assert.Error(t, err)
}
