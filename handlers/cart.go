package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"food-ordering/api/cart"
	"food-ordering/api/models"
)

type cartView struct {
	Items          []models.CartLine `json:"items"`
	TotalItems     int               `json:"total_items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	RestaurantID   string            `json:"restaurant_id,omitempty"`
	RestaurantName string            `json:"restaurant_name,omitempty"`
	OrderType      models.OrderType  `json:"order_type"`
}

func viewCart(ct *cart.Cart) cartView {
	return cartView{
		Items:          ct.Lines(),
		TotalItems:     ct.TotalItems(),
		Subtotal:       ct.Subtotal(),
		RestaurantID:   ct.RestaurantID(),
		RestaurantName: ct.RestaurantName(),
		OrderType:      ct.OrderType(),
	}
}

func (h *Handler) loadCart(c *fiber.Ctx) (*cart.Cart, error) {
	ct := cart.New(h.Carts, cart.Key(currentSession(c).UserID))
	if err := ct.Load(c.UserContext()); err != nil {
		return nil, err
	}
	return ct, nil
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	ct, err := h.loadCart(c)
	if err != nil {
		return err
	}
	return c.JSON(viewCart(ct))
}

type addCartItemRequest struct {
	MenuItemID     string           `json:"menu_item_id"`
	OrderType      models.OrderType `json:"order_type"`
	ConfirmReplace bool             `json:"confirm_replace"`
}

// addCartItem godoc
// @Summary Add one unit of a menu item to the cart
// @Description Items from a different restaurant are refused with 409 unless confirm_replace is set.
// @Tags Cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} cartView
// @Failure 409 {object} map[string]string
// @Router /cart/items [post]
func (h *Handler) addCartItem(c *fiber.Ctx) error {
	var req addCartItemRequest
	if err := c.BodyParser(&req); err != nil || req.MenuItemID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "menu_item_id is required")
	}
	if req.OrderType != "" && !req.OrderType.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "unknown order type")
	}

	ctx := c.UserContext()
	item, err := h.MenuItems.GetByID(ctx, req.MenuItemID)
	if err != nil {
		return err
	}
	if !item.IsAvailable {
		return fiber.NewError(fiber.StatusConflict, "this item is currently unavailable")
	}
	restaurant, err := h.Restaurants.GetByID(ctx, item.RestaurantID)
	if err != nil {
		return err
	}

	ct, err := h.loadCart(c)
	if err != nil {
		return err
	}
	line := models.CartLine{
		ID:             item.ID,
		Name:           item.Name,
		Price:          item.Price,
		RestaurantID:   item.RestaurantID,
		RestaurantName: restaurant.Name,
		IsAvailable:    item.IsAvailable,
		OrderType:      req.OrderType,
	}
	if err := ct.Add(ctx, line, req.ConfirmReplace); err != nil {
		return err
	}
	return c.JSON(viewCart(ct))
}

func (h *Handler) increaseCartItem(c *fiber.Ctx) error {
	return h.mutateCart(c, func(ct *cart.Cart) error { return ct.Increase(c.UserContext(), c.Params("id")) })
}

func (h *Handler) decreaseCartItem(c *fiber.Ctx) error {
	return h.mutateCart(c, func(ct *cart.Cart) error { return ct.Decrease(c.UserContext(), c.Params("id")) })
}

func (h *Handler) removeCartItem(c *fiber.Ctx) error {
	return h.mutateCart(c, func(ct *cart.Cart) error { return ct.Remove(c.UserContext(), c.Params("id")) })
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	return h.mutateCart(c, func(ct *cart.Cart) error { return ct.Clear(c.UserContext()) })
}

func (h *Handler) mutateCart(c *fiber.Ctx, mutate func(*cart.Cart) error) error {
	ct, err := h.loadCart(c)
	if err != nil {
		return err
	}
	if err := mutate(ct); err != nil {
		return err
	}
	return c.JSON(viewCart(ct))
}
