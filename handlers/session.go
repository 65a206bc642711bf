package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"food-ordering/api/models"
	"food-ordering/api/session"
	"food-ordering/api/store"
)

const (
	sessionKey    = "session"
	restaurantKey = "restaurant"
)

func bearerToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// RequireSession rejects requests without a valid session token, taken
// from the Authorization header or, for websockets, the token query param.
func (h *Handler) RequireSession(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "please login to continue")
	}
	sess, err := h.Sessions.Parse(c.UserContext(), token)
	if err != nil {
		return err
	}
	c.Locals(sessionKey, sess)
	return c.Next()
}

// RequireOwner admits owners that have a restaurant and stores it on the
// request.
func (h *Handler) RequireOwner(c *fiber.Ctx) error {
	sess := currentSession(c)
	if !sess.IsOwner() {
		return errOwnerOnly
	}
	r, err := h.Restaurants.GetByOwnerID(c.UserContext(), sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return errNoRestaurant
	}
	if err != nil {
		return err
	}
	c.Locals(restaurantKey, r)
	return c.Next()
}

func currentSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(sessionKey).(*session.Session)
	return sess
}

func ownedRestaurant(c *fiber.Ctx) *models.Restaurant {
	r, _ := c.Locals(restaurantKey).(*models.Restaurant)
	return r
}

func (h *Handler) me(c *fiber.Ctx) error {
	return c.JSON(currentSession(c))
}

func (h *Handler) myRestaurant(c *fiber.Ctx) error {
	return c.JSON(ownedRestaurant(c))
}
