package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"food-ordering/api/checkout"
)

type checkoutView struct {
	State checkout.State `json:"state"`
	Quote checkout.Quote `json:"quote"`
	Cart  cartView       `json:"cart"`
}

func (h *Handler) getCheckout(c *fiber.Ctx) error {
	ct, err := h.loadCart(c)
	if err != nil {
		return err
	}
	flow, err := h.Flows.Load(c.UserContext(), currentSession(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(checkoutView{State: flow.State, Quote: h.Checkout.Quote(ct), Cart: viewCart(ct)})
}

// submitCheckout godoc
// @Summary Place the cart as an order
// @Description UPI and QR payments answer 202 the first time so the transaction id can be collected.
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param form body checkout.Form true "Checkout details"
// @Success 201 {object} models.Order
// @Success 202 {object} checkoutView
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /checkout [post]
func (h *Handler) submitCheckout(c *fiber.Ctx) error {
	var form checkout.Form
	if err := c.BodyParser(&form); err != nil {
		return fiber.ErrBadRequest
	}

	ctx := c.UserContext()
	sess := currentSession(c)
	ct, err := h.loadCart(c)
	if err != nil {
		return err
	}
	flow, err := h.Flows.Load(ctx, sess.UserID)
	if err != nil {
		return err
	}

	order, err := h.Checkout.Submit(ctx, flow, sess, ct, form)
	if errors.Is(err, checkout.ErrVerificationRequired) {
		if err := h.Flows.Save(ctx, sess.UserID, flow); err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(checkoutView{
			State: flow.State,
			Quote: h.Checkout.Quote(ct),
			Cart:  viewCart(ct),
		})
	}
	if err != nil {
		if saveErr := h.Flows.Save(ctx, sess.UserID, flow); saveErr != nil {
			log.Printf("Failed to save checkout state for %s: %v", sess.UserID, saveErr)
		}
		return err
	}

	if err := h.Flows.Delete(ctx, sess.UserID); err != nil {
		log.Printf("Failed to reset checkout state for %s: %v", sess.UserID, err)
	}
	ordersPlaced.WithLabelValues(string(order.Type), string(order.PaymentMethod)).Inc()
	return c.Status(fiber.StatusCreated).JSON(order)
}
