package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"food-ordering/api/auth"
	"food-ordering/api/cart"
	"food-ordering/api/checkout"
	"food-ordering/api/media"
	"food-ordering/api/models"
	"food-ordering/api/session"
	"food-ordering/api/store"
)

var (
	errOwnerOnly         = fiber.NewError(fiber.StatusForbidden, "only restaurant owners can do this")
	errNotYourRestaurant = fiber.NewError(fiber.StatusForbidden, "this restaurant belongs to another owner")
	errNoRestaurant      = fiber.NewError(fiber.StatusNotFound, "no restaurant is registered for this owner")
	errUploadsDisabled   = fiber.NewError(fiber.StatusServiceUnavailable, "image uploads are not configured")
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var fe *fiber.Error
	var verr *checkout.ValidationError
	var serr *checkout.SubmitError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, checkout.ErrAuthRequired):
		return fiber.StatusUnauthorized
	case errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.As(err, &serr):
		return fiber.StatusBadGateway
	case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrRevoked),
		errors.Is(err, auth.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		return fiber.StatusForbidden
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole), errors.Is(err, auth.ErrInvalidConfirmation),
		errors.Is(err, models.ErrMenuItemIncomplete),
		errors.Is(err, media.ErrNotImage), errors.Is(err, media.ErrImageTooBig):
		return fiber.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, store.ErrDuplicate),
		errors.Is(err, models.ErrIllegalTransition), errors.Is(err, cart.ErrDifferentRestaurant):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as {"error": message}. Unexpected errors
// are logged and hidden behind a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		msg = "internal server error"
	}

	body := fiber.Map{"error": msg}
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	return c.Status(code).JSON(body)
}
