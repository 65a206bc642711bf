package handlers

import (
	"github.com/gofiber/fiber/v2"

	"food-ordering/api/models"
)

type signUpRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signUp godoc
// @Summary Create an account
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} auth.SignUpResult
// @Router /auth/signup [post]
func (h *Handler) signUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	res, err := h.Auth.SignUp(c.UserContext(), req.Email, req.Password, req.Role, req.FullName)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) confirmEmail(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := h.Auth.ConfirmEmail(c.UserContext(), req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"confirmed": true})
}

// signIn godoc
// @Summary Sign in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /auth/signin [post]
func (h *Handler) signIn(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return fiber.ErrBadRequest
	}
	token, sess, err := h.Auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": token, "session": sess})
}

func (h *Handler) signOut(c *fiber.Ctx) error {
	if err := h.Auth.SignOut(c.UserContext(), bearerToken(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
