package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"food-ordering/api/realtime"
	"food-ordering/api/store"
)

const filterKey = "feed_filter"

// authorizeFeed checks a change feed request before the upgrade. Menu
// feeds are public; order feeds need the owner of the restaurant.
func (h *Handler) authorizeFeed(c *fiber.Ctx) error {
	f := realtime.Filter{
		Table:        realtime.Table(c.Query("table")),
		RestaurantID: c.Query("restaurant_id"),
	}
	switch f.Table {
	case realtime.TableMenuItems:
	case realtime.TableOrders:
		if f.RestaurantID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "restaurant_id is required for order feeds")
		}
		token := bearerToken(c)
		if token == "" {
			return fiber.ErrUnauthorized
		}
		sess, err := h.Sessions.Parse(c.UserContext(), token)
		if err != nil {
			return err
		}
		if !sess.IsOwner() {
			return errOwnerOnly
		}
		r, err := h.Restaurants.GetByOwnerID(c.UserContext(), sess.UserID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && r.ID != f.RestaurantID) {
			return errNotYourRestaurant
		}
		if err != nil {
			return err
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "table must be orders or menu_items")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(filterKey, f)
	return c.Next()
}

// streamChanges writes matching change events to the socket until the
// client goes away.
func (h *Handler) streamChanges(c *websocket.Conn) {
	f, _ := c.Locals(filterKey).(realtime.Filter)
	sub := h.Hub.Subscribe(f)
	defer sub.Close()

	feedSubscribers.Inc()
	defer feedSubscribers.Dec()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if err := c.WriteJSON(e); err != nil {
				log.Printf("Failed to write %s event to subscriber: %v", e.Table, err)
				return
			}
		}
	}
}
