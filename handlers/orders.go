package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"food-ordering/api/events"
	"food-ordering/api/models"
	"food-ordering/api/realtime"
)

func (h *Handler) myOrders(c *fiber.Ctx) error {
	orders, err := h.Orders.GetByUserID(c.UserContext(), currentSession(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// restaurantOrders godoc
// @Summary List a restaurant's orders, newest first
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Restaurant ID"
// @Success 200 {array} models.Order
// @Router /restaurants/{id}/orders [get]
func (h *Handler) restaurantOrders(c *fiber.Ctx) error {
	if ownedRestaurant(c).ID != c.Params("id") {
		return errNotYourRestaurant
	}
	orders, err := h.Orders.GetByRestaurantID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// getOrder shows an order to the customer who placed it or the owner of
// the restaurant it was placed with.
func (h *Handler) getOrder(c *fiber.Ctx) error {
	ctx := c.UserContext()
	order, err := h.Orders.GetByID(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	sess := currentSession(c)
	if order.UserID == sess.UserID {
		return c.JSON(order)
	}
	if sess.IsOwner() {
		if r, err := h.Restaurants.GetByOwnerID(ctx, sess.UserID); err == nil && r.ID == order.RestaurantID {
			return c.JSON(order)
		}
	}
	return fiber.ErrNotFound
}

// ownedOrder loads the order in the path and checks it belongs to the
// caller's restaurant.
func (h *Handler) ownedOrder(c *fiber.Ctx) (*models.Order, error) {
	order, err := h.Orders.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if order.RestaurantID != ownedRestaurant(c).ID {
		return nil, errNotYourRestaurant
	}
	return order, nil
}

// updateOrderStatus godoc
// @Summary Move an order to its next status
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [patch]
func (h *Handler) updateOrderStatus(c *fiber.Ctx) error {
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil || !req.Status.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "unknown order status")
	}

	order, err := h.ownedOrder(c)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(req.Status) {
		return models.ErrIllegalTransition
	}

	ctx := c.UserContext()
	updated, err := h.Orders.UpdateStatus(ctx, order.ID, req.Status)
	if err != nil {
		return err
	}

	orderTransitions.WithLabelValues(string(updated.Status)).Inc()
	h.publishOrder(ctx, updated)
	events.Emit(ctx, h.Events, events.OrderStatusChanged, map[string]interface{}{
		"order_id":      updated.ID,
		"restaurant_id": updated.RestaurantID,
		"from":          order.Status,
		"to":            updated.Status,
	})
	return c.JSON(updated)
}

func (h *Handler) updatePaymentStatus(c *fiber.Ctx) error {
	var req struct {
		PaymentStatus models.PaymentStatus `json:"payment_status"`
	}
	err := c.BodyParser(&req)
	if err != nil || (req.PaymentStatus != models.PaymentStatusPaid && req.PaymentStatus != models.PaymentStatusPending) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown payment status")
	}

	order, err := h.ownedOrder(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	updated, err := h.Orders.UpdatePaymentStatus(ctx, order.ID, req.PaymentStatus)
	if err != nil {
		return err
	}

	h.publishOrder(ctx, updated)
	events.Emit(ctx, h.Events, events.PaymentStatusChanged, map[string]interface{}{
		"order_id":       updated.ID,
		"restaurant_id":  updated.RestaurantID,
		"payment_status": updated.PaymentStatus,
	})
	return c.JSON(updated)
}

func (h *Handler) publishOrder(ctx context.Context, order *models.Order) {
	e, err := realtime.NewEvent(realtime.TableOrders, realtime.EventUpdate, order.RestaurantID, order)
	if err == nil {
		err = h.Publisher.Publish(ctx, e)
	}
	if err != nil {
		log.Printf("Failed to publish order %s update: %v", order.ID, err)
	}
}
