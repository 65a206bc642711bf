package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-ordering/api/cart"
	"food-ordering/api/events"
	"food-ordering/api/models"
	"food-ordering/api/realtime"
	"food-ordering/api/session"
)

type fakeOrders struct {
	mu     sync.Mutex
	orders []*models.Order
	err    error
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fixture struct {
	svc    *Service
	orders *fakeOrders
	hub    *realtime.Hub
	audit  *events.MemoryLogger
	cart   *cart.Cart
	sess   *session.Session
	now    time.Time
}

func newFixture(t *testing.T, orderType models.OrderType) *fixture {
	t.Helper()
	f := &fixture{
		orders: &fakeOrders{},
		hub:    realtime.NewHub(8),
		audit:  &events.MemoryLogger{},
		cart:   cart.New(cart.NewMemoryStore(), cart.Key("u1")),
		sess:   &session.Session{UserID: "u1", FullName: "Asha", Role: models.RoleCustomer},
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	pricing := Pricing{DeliveryFee: decimal.NewFromInt(40), TaxRate: decimal.RequireFromString("0.05")}
	f.svc = NewService(f.orders, f.hub, f.audit, pricing, 30*time.Minute)
	f.svc.now = func() time.Time { return f.now }
	f.svc.newID = func() string { return "order-1" }

	ctx := context.Background()
	// 2 x 50 + 1 x 100 = 200
	require.NoError(t, f.cart.Add(ctx, line("m1", 50, orderType), false))
	require.NoError(t, f.cart.Increase(ctx, "m1"))
	require.NoError(t, f.cart.Add(ctx, line("m2", 100, orderType), false))
	return f
}

func line(id string, price int64, orderType models.OrderType) models.CartLine {
	return models.CartLine{
		ID:             id,
		Name:           "Item " + id,
		Price:          decimal.NewFromInt(price),
		RestaurantID:   "r1",
		RestaurantName: "Spice Hub",
		IsAvailable:    true,
		OrderType:      orderType,
	}
}

func TestQuoteDelivery(t *testing.T) {
	p := Pricing{DeliveryFee: decimal.NewFromInt(40), TaxRate: decimal.RequireFromString("0.05")}

	q := p.Quote(decimal.NewFromInt(200), models.OrderTypeDelivery)
	assert.True(t, q.DeliveryFee.Equal(decimal.NewFromInt(40)))
	assert.True(t, q.Tax.Equal(decimal.NewFromInt(10)))
	assert.True(t, q.Total.Equal(decimal.NewFromInt(250)), q.Total.String())

	q = p.Quote(decimal.NewFromInt(200), models.OrderTypePickup)
	assert.True(t, q.DeliveryFee.IsZero())
	assert.True(t, q.Total.Equal(decimal.NewFromInt(210)), q.Total.String())
}

func TestSubmitCashOnDeliveryPlacesOrder(t *testing.T) {
	f := newFixture(t, models.OrderTypeDelivery)
	sub := f.hub.Subscribe(realtime.Filter{Table: realtime.TableOrders, RestaurantID: "r1"})
	defer sub.Close()

	flow := NewFlow()
	order, err := f.svc.Submit(context.Background(), flow, f.sess, f.cart, Form{
		DeliveryAddress: "12 MG Road",
		Phone:           "9876543210",
		PaymentMethod:   models.PaymentCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, StateDone, flow.State)
	assert.Equal(t, 1, f.orders.count())
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(250)), order.TotalAmount.String())
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "r1", order.RestaurantID)
	assert.Equal(t, "Asha", order.UserName)
	assert.Equal(t, "12 MG Road", order.DeliveryAddress)
	assert.Equal(t, f.now.Add(30*time.Minute), order.ScheduledTime)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, f.cart.IsEmpty())

	select {
	case e := <-sub.C:
		assert.Equal(t, realtime.EventInsert, e.Type)
	default:
		t.Fatal("expected a change event for the new order")
	}
	assert.Equal(t, []string{events.OrderPlaced}, f.audit.Names())
}

func TestSubmitValidationOrder(t *testing.T) {
	tests := []struct {
		name      string
		orderType models.OrderType
		sess      bool
		form      Form
		want      error
	}{
		{"no session", models.OrderTypeDelivery, false, Form{}, ErrAuthRequired},
		{"delivery without address", models.OrderTypeDelivery, true, Form{}, ErrAddressRequired},
		{"missing phone", models.OrderTypeDelivery, true, Form{DeliveryAddress: "x"}, ErrPhoneRequired},
		{"blank phone", models.OrderTypePickup, true, Form{Phone: "   "}, ErrPhoneRequired},
		{"dine-in without table", models.OrderTypeDineIn, true, Form{Phone: "1"}, ErrTableRequired},
		{"upi without id", models.OrderTypePickup, true, Form{Phone: "1", PaymentMethod: models.PaymentUPI}, ErrUPIIDRequired},
		{"unknown payment", models.OrderTypePickup, true, Form{Phone: "1", PaymentMethod: "card"}, ErrInvalidPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.orderType)
			var sess *session.Session
			if tt.sess {
				sess = f.sess
			}
			flow := NewFlow()
			_, err := f.svc.Submit(context.Background(), flow, sess, f.cart, tt.form)
			assert.ErrorIs(t, err, tt.want)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.Equal(t, 0, f.orders.count())
			assert.Equal(t, StateCollectingDetails, flow.State)
			assert.False(t, f.cart.IsEmpty())
		})
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newFixture(t, models.OrderTypePickup)
	require.NoError(t, f.cart.Clear(context.Background()))

	_, err := f.svc.Submit(context.Background(), NewFlow(), f.sess, f.cart, Form{Phone: "1"})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, f.orders.count())
}

func TestSubmitUPIRequiresVerificationOnce(t *testing.T) {
	f := newFixture(t, models.OrderTypePickup)
	ctx := context.Background()
	flow := NewFlow()
	form := Form{Phone: "1", PaymentMethod: models.PaymentUPI, UPIID: "asha@upi"}

	_, err := f.svc.Submit(ctx, flow, f.sess, f.cart, form)
	require.ErrorIs(t, err, ErrVerificationRequired)
	assert.Equal(t, StateAwaitingVerification, flow.State)
	assert.Equal(t, 0, f.orders.count())

	form.TransactionID = "12345"
	_, err = f.svc.Submit(ctx, flow, f.sess, f.cart, form)
	require.ErrorIs(t, err, ErrInvalidTransactionID)
	assert.Equal(t, StateAwaitingVerification, flow.State)
	assert.Equal(t, 0, f.orders.count())

	form.TransactionID = "TXN123456"
	order, err := f.svc.Submit(ctx, flow, f.sess, f.cart, form)
	require.NoError(t, err)
	assert.Equal(t, StateDone, flow.State)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "asha@upi", order.UPIID)
	assert.Equal(t, "TXN123456", order.UPITransactionID)
}

func TestSubmitVerificationRearmsOnMethodChange(t *testing.T) {
	f := newFixture(t, models.OrderTypePickup)
	ctx := context.Background()
	flow := NewFlow()

	_, err := f.svc.Submit(ctx, flow, f.sess, f.cart, Form{Phone: "1", PaymentMethod: models.PaymentUPI, UPIID: "a@upi"})
	require.ErrorIs(t, err, ErrVerificationRequired)

	_, err = f.svc.Submit(ctx, flow, f.sess, f.cart, Form{Phone: "1", PaymentMethod: models.PaymentQR, TransactionID: "QR998877"})
	require.ErrorIs(t, err, ErrVerificationRequired)
	assert.Equal(t, models.PaymentQR, flow.VerificationShownFor)

	order, err := f.svc.Submit(ctx, flow, f.sess, f.cart, Form{Phone: "1", PaymentMethod: models.PaymentQR, TransactionID: "QR998877"})
	require.NoError(t, err)
	assert.Empty(t, order.UPIID)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
}

func TestSubmitWriteFailureIsRetryable(t *testing.T) {
	f := newFixture(t, models.OrderTypeDineIn)
	f.orders.err = errors.New("connection reset")
	ctx := context.Background()
	flow := NewFlow()
	form := Form{Phone: "1", TableNumber: "7"}

	_, err := f.svc.Submit(ctx, flow, f.sess, f.cart, form)
	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, StateCollectingDetails, flow.State)
	assert.False(t, f.cart.IsEmpty())
	assert.Empty(t, f.audit.Names())

	f.orders.err = nil
	order, err := f.svc.Submit(ctx, flow, f.sess, f.cart, form)
	require.NoError(t, err)
	assert.Equal(t, "7", order.TableNumber)
	assert.Empty(t, order.DeliveryAddress)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(210)), order.TotalAmount.String())
}

func TestSubmitWriteFailureAfterVerification(t *testing.T) {
	f := newFixture(t, models.OrderTypePickup)
	ctx := context.Background()
	flow := NewFlow()
	form := Form{Phone: "1", PaymentMethod: models.PaymentQR, TransactionID: "QR998877"}

	_, err := f.svc.Submit(ctx, flow, f.sess, f.cart, form)
	require.ErrorIs(t, err, ErrVerificationRequired)

	f.orders.err = errors.New("timeout")
	_, err = f.svc.Submit(ctx, flow, f.sess, f.cart, form)
	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, StateAwaitingVerification, flow.State)
}

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore()

	flow, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateCollectingDetails, flow.State)

	flow.State = StateAwaitingVerification
	flow.VerificationShownFor = models.PaymentUPI
	require.NoError(t, s.Save(ctx, "u1", flow))

	got, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, *flow, *got)

	require.NoError(t, s.Delete(ctx, "u1"))
	got, err = s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateCollectingDetails, got.State)
}
