package models

import "github.com/shopspring/decimal"

// CartLine is one menu item in a customer's cart. Name, price and
// restaurant are copied from the menu when the item is added.
type CartLine struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	RestaurantID   string          `json:"restaurant_id"`
	RestaurantName string          `json:"restaurant_name"`
	IsAvailable    bool            `json:"is_available"`
	OrderType      OrderType       `json:"order_type,omitempty"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) OrderItem() OrderItem {
	return OrderItem{
		ID:          l.ID,
		Name:        l.Name,
		Price:       l.Price,
		Quantity:    l.Quantity,
		IsAvailable: l.IsAvailable,
	}
}
