// Package handlers is the HTTP and websocket surface of the API.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"food-ordering/api/auth"
	"food-ordering/api/cart"
	"food-ordering/api/checkout"
	"food-ordering/api/events"
	"food-ordering/api/media"
	"food-ordering/api/realtime"
	"food-ordering/api/session"
	"food-ordering/api/store"
)

// Deps are the services the handlers run on. Images may be nil, which
// disables uploads.
type Deps struct {
	Sessions    *session.Manager
	Auth        *auth.Service
	Restaurants store.RestaurantRepository
	MenuItems   store.MenuItemRepository
	Orders      store.OrderRepository
	Carts       cart.Store
	Checkout    *checkout.Service
	Flows       checkout.StateStore
	Hub         *realtime.Hub
	Publisher   realtime.Publisher
	Events      events.Logger
	Images      media.Store
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Publisher == nil {
		d.Publisher = d.Hub
	}
	if d.Events == nil {
		d.Events = events.NopLogger{}
	}
	return &Handler{Deps: d}
}

func (h *Handler) Register(app *fiber.App) {
	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/signup", h.signUp)
	authGroup.Post("/confirm", h.confirmEmail)
	authGroup.Post("/signin", h.signIn)
	authGroup.Post("/signout", h.RequireSession, h.signOut)

	v1.Get("/me", h.RequireSession, h.me)
	v1.Get("/me/restaurant", h.RequireSession, h.RequireOwner, h.myRestaurant)

	v1.Get("/restaurants", h.listRestaurants)
	v1.Get("/restaurants/:id", h.getRestaurant)
	v1.Get("/restaurants/:id/menu", h.restaurantMenu)
	v1.Get("/restaurants/:id/orders", h.RequireSession, h.RequireOwner, h.restaurantOrders)

	cartGroup := v1.Group("/cart", h.RequireSession)
	cartGroup.Get("/", h.getCart)
	cartGroup.Delete("/", h.clearCart)
	cartGroup.Post("/items", h.addCartItem)
	cartGroup.Post("/items/:id/increase", h.increaseCartItem)
	cartGroup.Post("/items/:id/decrease", h.decreaseCartItem)
	cartGroup.Delete("/items/:id", h.removeCartItem)

	v1.Get("/checkout", h.RequireSession, h.getCheckout)
	v1.Post("/checkout", h.RequireSession, h.submitCheckout)

	orders := v1.Group("/orders", h.RequireSession)
	orders.Get("/mine", h.myOrders)
	orders.Get("/:id", h.getOrder)
	orders.Patch("/:id/status", h.RequireOwner, h.updateOrderStatus)
	orders.Patch("/:id/payment", h.RequireOwner, h.updatePaymentStatus)

	v1.Get("/menu/categories", h.menuCategories)
	menu := v1.Group("/menu", h.RequireSession, h.RequireOwner)
	menu.Post("/", h.createMenuItem)
	menu.Put("/:id", h.updateMenuItem)
	menu.Delete("/:id", h.deleteMenuItem)
	menu.Post("/:id/toggle", h.toggleMenuItem)
	menu.Post("/:id/image", h.uploadMenuImage)

	app.Get("/ws/changes", h.authorizeFeed, websocket.New(h.streamChanges))
}
