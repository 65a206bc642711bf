// Package cart holds a customer's pending order contents. A cart only ever
// contains lines from one restaurant and is persisted on every mutation so
// it survives reloads and restarts.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"food-ordering/api/models"
)

var ErrDifferentRestaurant = errors.New("cart contains items from a different restaurant")

type Cart struct {
	mu    sync.Mutex
	store Store
	key   string
	lines []models.CartLine
}

func New(store Store, key string) *Cart {
	return &Cart{store: store, key: key}
}

// Load rehydrates the cart from its store. A missing or unreadable snapshot
// leaves the cart empty.
func (c *Cart) Load(ctx context.Context) error {
	data, err := c.store.Load(ctx, c.key)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	if len(data) == 0 {
		return nil
	}
	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Printf("Discarding unreadable cart %s: %v", c.key, err)
		return nil
	}
	c.lines = lines
	return nil
}

// Add puts one unit of line into the cart. When the cart already holds
// another restaurant's items the call fails with ErrDifferentRestaurant
// unless confirmReplace is set, in which case the cart is replaced by the
// new line alone.
func (c *Cart) Add(ctx context.Context, line models.CartLine, confirmReplace bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line.Quantity = 1

	if len(c.lines) > 0 && c.lines[0].RestaurantID != line.RestaurantID {
		if !confirmReplace {
			return ErrDifferentRestaurant
		}
		c.lines = []models.CartLine{line}
		return c.persist(ctx)
	}

	if i := c.indexOf(line.ID); i >= 0 {
		c.lines[i].Quantity++
		if line.OrderType != "" {
			c.lines[i].OrderType = line.OrderType
		}
	} else {
		c.lines = append(c.lines, line)
	}
	return c.persist(ctx)
}

func (c *Cart) Increase(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil
	}
	c.lines[i].Quantity++
	return c.persist(ctx)
}

// Decrease never drops a line; at quantity 1 it does nothing.
func (c *Cart) Decrease(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 || c.lines[i].Quantity <= 1 {
		return nil
	}
	c.lines[i].Quantity--
	return c.persist(ctx)
}

func (c *Cart) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return c.persist(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	return c.persist(ctx)
}

func (c *Cart) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// TotalItems is the sum of line quantities.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// Subtotal is the sum of price times quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

func (c *Cart) RestaurantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[0].RestaurantID
}

func (c *Cart) RestaurantName() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[0].RestaurantName
}

// OrderType is the fulfillment type chosen on the first line, delivery if
// none was chosen.
func (c *Cart) OrderType() models.OrderType {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.lines) == 0 || c.lines[0].OrderType == "" {
		return models.OrderTypeDelivery
	}
	return c.lines[0].OrderType
}

func (c *Cart) indexOf(id string) int {
	for i, l := range c.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) persist(ctx context.Context) error {
	lines := c.lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.key, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
