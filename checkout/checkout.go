// Package checkout turns a cart into a single order record.
//
// Submission is a small state machine per customer:
//
//	collecting_details -> (UPI/QR) awaiting_verification -> submitting -> done
//
// Form problems are reported in a fixed order before anything is written.
// Transfers (UPI, QR) first move the flow to awaiting_verification; the
// next submit must carry a transaction id of at least six characters.
package checkout

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"food-ordering/api/cart"
	"food-ordering/api/events"
	"food-ordering/api/models"
	"food-ordering/api/realtime"
	"food-ordering/api/session"
)

type State string

const (
	StateCollectingDetails    State = "collecting_details"
	StateAwaitingVerification State = "awaiting_verification"
	StateSubmitting           State = "submitting"
	StateDone                 State = "done"
)

const minTransactionIDLength = 6

type Form struct {
	// OrderType overrides the type carried by the cart lines when set.
	OrderType       models.OrderType     `json:"type,omitempty"`
	DeliveryAddress string               `json:"delivery_address"`
	Phone           string               `json:"mobile_number"`
	TableNumber     string               `json:"table_number"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	UPIID           string               `json:"upi_id"`
	TransactionID   string               `json:"upi_transaction_id"`
	Notes           string               `json:"notes"`
}

func (f *Form) normalize() {
	f.DeliveryAddress = strings.TrimSpace(f.DeliveryAddress)
	f.Phone = strings.TrimSpace(f.Phone)
	f.TableNumber = strings.TrimSpace(f.TableNumber)
	f.UPIID = strings.TrimSpace(f.UPIID)
	f.TransactionID = strings.TrimSpace(f.TransactionID)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.PaymentMethod == "" {
		f.PaymentMethod = models.PaymentCOD
	}
}

// Flow is one customer's position in the checkout state machine.
type Flow struct {
	State State `json:"state"`
	// VerificationShownFor is the payment method the verification step was
	// last shown for. Choosing a different transfer method shows it again.
	VerificationShownFor models.PaymentMethod `json:"verification_shown_for,omitempty"`
}

func NewFlow() *Flow {
	return &Flow{State: StateCollectingDetails}
}

type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

type Pricing struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// Quote prices an order: the flat delivery fee applies to delivery orders
// only and tax is a fixed share of the subtotal.
func (p Pricing) Quote(subtotal decimal.Decimal, orderType models.OrderType) Quote {
	fee := decimal.Zero
	if orderType == models.OrderTypeDelivery {
		fee = p.DeliveryFee
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       subtotal.Add(fee).Add(tax),
	}
}

type OrderWriter interface {
	Create(ctx context.Context, order *models.Order) error
}

type Service struct {
	orders        OrderWriter
	publisher     realtime.Publisher
	events        events.Logger
	pricing       Pricing
	scheduleDelay time.Duration

	now   func() time.Time
	newID func() string
}

// NewService builds the checkout service. A nil logger disables the audit
// trail.
func NewService(orders OrderWriter, publisher realtime.Publisher, logger events.Logger, pricing Pricing, scheduleDelay time.Duration) *Service {
	if logger == nil {
		logger = events.NopLogger{}
	}
	return &Service{
		orders:        orders,
		publisher:     publisher,
		events:        logger,
		pricing:       pricing,
		scheduleDelay: scheduleDelay,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (s *Service) Quote(c *cart.Cart) Quote {
	return s.pricing.Quote(c.Subtotal(), c.OrderType())
}

// Submit advances flow with form. It returns the placed order once the flow
// reaches done, ErrVerificationRequired when the verification step has just
// been entered, a *ValidationError for form problems, or a *SubmitError when
// the write failed.
func (s *Service) Submit(ctx context.Context, flow *Flow, sess *session.Session, c *cart.Cart, form Form) (*models.Order, error) {
	form.normalize()

	if sess == nil {
		return nil, ErrAuthRequired
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	orderType := form.OrderType
	if orderType == "" {
		orderType = c.OrderType()
	}
	if !orderType.Valid() {
		return nil, ErrInvalidOrderType
	}
	if !form.PaymentMethod.Valid() {
		return nil, ErrInvalidPayment
	}
	if orderType == models.OrderTypeDelivery && form.DeliveryAddress == "" {
		return nil, ErrAddressRequired
	}
	if form.Phone == "" {
		return nil, ErrPhoneRequired
	}
	if orderType == models.OrderTypeDineIn && form.TableNumber == "" {
		return nil, ErrTableRequired
	}
	if form.PaymentMethod == models.PaymentUPI && form.UPIID == "" {
		return nil, ErrUPIIDRequired
	}

	if form.PaymentMethod.NeedsVerification() {
		if flow.VerificationShownFor != form.PaymentMethod {
			flow.VerificationShownFor = form.PaymentMethod
			flow.State = StateAwaitingVerification
			return nil, ErrVerificationRequired
		}
		if len(form.TransactionID) < minTransactionIDLength {
			flow.State = StateAwaitingVerification
			return nil, ErrInvalidTransactionID
		}
	}

	previous := flow.State
	flow.State = StateSubmitting

	order := s.buildOrder(sess, c, form, orderType)
	if err := s.orders.Create(ctx, order); err != nil {
		flow.State = previous
		if flow.State == StateSubmitting || flow.State == StateDone {
			flow.State = StateCollectingDetails
		}
		return nil, &SubmitError{Err: err}
	}

	s.announce(ctx, order)

	if err := c.Clear(ctx); err != nil {
		log.Printf("Order %s placed but cart not cleared: %v", order.ID, err)
	}
	flow.State = StateDone
	return order, nil
}

func (s *Service) buildOrder(sess *session.Session, c *cart.Cart, form Form, orderType models.OrderType) *models.Order {
	lines := c.Lines()
	items := make(models.OrderItems, len(lines))
	for i, l := range lines {
		items[i] = l.OrderItem()
	}

	quote := s.pricing.Quote(c.Subtotal(), orderType)
	paymentStatus := models.PaymentStatusPending
	if form.PaymentMethod.NeedsVerification() {
		paymentStatus = models.PaymentStatusPaid
	}

	order := &models.Order{
		ID:            s.newID(),
		RestaurantID:  c.RestaurantID(),
		UserID:        sess.UserID,
		UserName:      sess.DisplayName(),
		MobileNumber:  form.Phone,
		Items:         items,
		TotalAmount:   quote.Total,
		Type:          orderType,
		Status:        models.OrderStatusPending,
		PaymentMethod: form.PaymentMethod,
		PaymentStatus: paymentStatus,
		ScheduledTime: s.now().Add(s.scheduleDelay).UTC(),
		Notes:         form.Notes,
	}
	if form.PaymentMethod == models.PaymentUPI {
		order.UPIID = form.UPIID
	}
	if form.PaymentMethod.NeedsVerification() {
		order.UPITransactionID = form.TransactionID
	}
	switch orderType {
	case models.OrderTypeDelivery:
		order.DeliveryAddress = form.DeliveryAddress
	case models.OrderTypeDineIn:
		order.TableNumber = form.TableNumber
	}
	return order
}

func (s *Service) announce(ctx context.Context, order *models.Order) {
	e, err := realtime.NewEvent(realtime.TableOrders, realtime.EventInsert, order.RestaurantID, order)
	if err == nil {
		err = s.publisher.Publish(ctx, e)
	}
	if err != nil {
		log.Printf("Failed to publish new order %s: %v", order.ID, err)
	}

	events.Emit(ctx, s.events, events.OrderPlaced, map[string]interface{}{
		"order_id":       order.ID,
		"restaurant_id":  order.RestaurantID,
		"user_id":        order.UserID,
		"type":           order.Type,
		"payment_method": order.PaymentMethod,
		"total_amount":   order.TotalAmount.String(),
	})
}
