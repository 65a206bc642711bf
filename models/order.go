package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderAction is an owner-side command that moves an order to its next status.
type OrderAction string

const (
	ActionStartPreparing OrderAction = "start_preparing"
	ActionMarkReady      OrderAction = "mark_ready"
	ActionComplete       OrderAction = "complete"
	ActionCancel         OrderAction = "cancel"
)

var ErrIllegalTransition = errors.New("illegal order status transition")

type transition struct {
	action OrderAction
	next   OrderStatus
}

// Order of entries is the order actions are offered in.
var transitions = map[OrderStatus][]transition{
	OrderStatusPending: {
		{ActionCancel, OrderStatusCancelled},
		{ActionStartPreparing, OrderStatusPreparing},
	},
	OrderStatusPreparing: {{ActionMarkReady, OrderStatusReady}},
	OrderStatusReady:     {{ActionComplete, OrderStatusCompleted}},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Actions lists what an owner may do with an order in this status.
// Terminal statuses offer nothing.
func (s OrderStatus) Actions() []OrderAction {
	var actions []OrderAction
	for _, t := range transitions[s] {
		actions = append(actions, t.action)
	}
	return actions
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t.next == next {
			return true
		}
	}
	return false
}

// Apply returns the status reached by performing action from s.
func (s OrderStatus) Apply(action OrderAction) (OrderStatus, error) {
	for _, t := range transitions[s] {
		if t.action == action {
			return t.next, nil
		}
	}
	return s, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, action, s)
}

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDineIn   OrderType = "dine-in"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDelivery || t == OrderTypePickup || t == OrderTypeDineIn
}

type PaymentMethod string

const (
	PaymentCOD PaymentMethod = "COD"
	PaymentUPI PaymentMethod = "UPI"
	PaymentQR  PaymentMethod = "QR"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentUPI || m == PaymentQR
}

// NeedsVerification reports whether the method is a transfer that has to be
// confirmed with a transaction id before the order is placed.
func (m PaymentMethod) NeedsVerification() bool {
	return m == PaymentUPI || m == PaymentQR
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type Order struct {
	ID               string          `json:"id"`
	RestaurantID     string          `json:"restaurant_id"`
	UserID           string          `json:"user_id"`
	UserName         string          `json:"user_name"`
	MobileNumber     string          `json:"mobile_number"`
	Items            OrderItems      `json:"items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Type             OrderType       `json:"type"`
	Status           OrderStatus     `json:"status"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	UPIID            string          `json:"upi_id,omitempty"`
	UPITransactionID string          `json:"upi_transaction_id,omitempty"`
	ScheduledTime    time.Time       `json:"scheduled_time"`
	DeliveryAddress  string          `json:"delivery_address,omitempty"`
	TableNumber      string          `json:"table_number,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	IsAvailable bool            `json:"is_available"`
}

type OrderItems []OrderItem

// ParseOrderItems decodes stored line items. Anything unreadable yields an
// empty list so a single bad row never breaks an order listing.
func ParseOrderItems(raw []byte) OrderItems {
	if len(raw) == 0 {
		return OrderItems{}
	}
	var items OrderItems
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return OrderItems{}
	}
	return items
}

// OrderPatch carries the fields an update notification is allowed to change
// on a locally held order.
type OrderPatch struct {
	ID            string        `json:"id"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}
