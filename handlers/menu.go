package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"food-ordering/api/events"
	"food-ordering/api/media"
	"food-ordering/api/models"
	"food-ordering/api/realtime"
)

func (h *Handler) restaurantMenu(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if _, err := h.Restaurants.GetByID(ctx, c.Params("id")); err != nil {
		return err
	}
	items, err := h.MenuItems.GetByRestaurantID(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (h *Handler) menuCategories(c *fiber.Ctx) error {
	return c.JSON(models.MenuCategories)
}

// createMenuItem godoc
// @Summary Add an item to the owner's menu
// @Tags Menu
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.MenuItem
// @Failure 400 {object} map[string]string
// @Router /menu [post]
func (h *Handler) createMenuItem(c *fiber.Ctx) error {
	var in models.MenuItemInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	item := &models.MenuItem{
		ID:           uuid.NewString(),
		RestaurantID: ownedRestaurant(c).ID,
		ImageURL:     models.DefaultMenuImage,
		IsAvailable:  true,
	}
	in.ApplyTo(item)
	if err := item.Validate(); err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.MenuItems.Create(ctx, item); err != nil {
		return err
	}
	h.publishMenuItem(ctx, realtime.EventInsert, item)
	h.auditMenuItem(ctx, events.MenuItemCreated, item)
	return c.Status(fiber.StatusCreated).JSON(item)
}

// ownedMenuItem loads the item in the path and checks it is on the
// caller's menu.
func (h *Handler) ownedMenuItem(c *fiber.Ctx) (*models.MenuItem, error) {
	item, err := h.MenuItems.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if item.RestaurantID != ownedRestaurant(c).ID {
		return nil, errNotYourRestaurant
	}
	return item, nil
}

func (h *Handler) updateMenuItem(c *fiber.Ctx) error {
	var in models.MenuItemInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	item, err := h.ownedMenuItem(c)
	if err != nil {
		return err
	}
	in.ApplyTo(item)
	if err := item.Validate(); err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.MenuItems.Update(ctx, item); err != nil {
		return err
	}
	h.publishMenuItem(ctx, realtime.EventUpdate, item)
	h.auditMenuItem(ctx, events.MenuItemUpdated, item)
	return c.JSON(item)
}

func (h *Handler) deleteMenuItem(c *fiber.Ctx) error {
	item, err := h.ownedMenuItem(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.MenuItems.Delete(ctx, item.ID); err != nil {
		return err
	}
	if err := h.Publisher.Publish(ctx, realtime.NewDeleteEvent(realtime.TableMenuItems, item.RestaurantID, item.ID)); err != nil {
		log.Printf("Failed to publish menu item %s deletion: %v", item.ID, err)
	}
	h.auditMenuItem(ctx, events.MenuItemDeleted, item)
	return c.SendStatus(fiber.StatusNoContent)
}

// toggleMenuItem flips availability, or sets it when the body names a
// value. Nothing else on the item changes.
func (h *Handler) toggleMenuItem(c *fiber.Ctx) error {
	var req struct {
		IsAvailable *bool `json:"is_available"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.ErrBadRequest
		}
	}
	item, err := h.ownedMenuItem(c)
	if err != nil {
		return err
	}
	available := !item.IsAvailable
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	ctx := c.UserContext()
	updated, err := h.MenuItems.SetAvailability(ctx, item.ID, available)
	if err != nil {
		return err
	}
	h.publishMenuItem(ctx, realtime.EventUpdate, updated)
	h.auditMenuItem(ctx, events.MenuItemToggled, updated)
	return c.JSON(updated)
}

func (h *Handler) uploadMenuImage(c *fiber.Ctx) error {
	if h.Images == nil {
		return errUploadsDisabled
	}
	item, err := h.ownedMenuItem(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := c.UserContext()
	url, err := h.Images.Put(ctx, media.Image{
		RestaurantID: item.RestaurantID,
		Filename:     fh.Filename,
		ContentType:  fh.Header.Get(fiber.HeaderContentType),
		Body:         f,
	})
	if err != nil {
		return err
	}

	item.ImageURL = url
	if err := h.MenuItems.Update(ctx, item); err != nil {
		return err
	}
	h.publishMenuItem(ctx, realtime.EventUpdate, item)
	h.auditMenuItem(ctx, events.MenuItemUpdated, item)
	return c.JSON(item)
}

func (h *Handler) publishMenuItem(ctx context.Context, typ realtime.EventType, item *models.MenuItem) {
	e, err := realtime.NewEvent(realtime.TableMenuItems, typ, item.RestaurantID, item)
	if err == nil {
		err = h.Publisher.Publish(ctx, e)
	}
	if err != nil {
		log.Printf("Failed to publish menu item %s change: %v", item.ID, err)
	}
}

func (h *Handler) auditMenuItem(ctx context.Context, event string, item *models.MenuItem) {
	events.Emit(ctx, h.Events, event, map[string]interface{}{
		"menu_item_id":  item.ID,
		"restaurant_id": item.RestaurantID,
		"name":          item.Name,
		"is_available":  item.IsAvailable,
	})
}
