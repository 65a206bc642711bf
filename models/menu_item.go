package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurant_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url"`
	IsAvailable  bool            `json:"is_available"`
	IsVegetarian bool            `json:"is_vegetarian"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MenuCategories are the categories offered when creating an item.
var MenuCategories = []string{"Breakfast", "Starters", "Main Course", "Desserts", "Beverages"}

const DefaultMenuImage = "https://images.unsplash.com/photo-1546069901-ba9599a7e63c?auto=format&fit=crop&q=80&w=500"

// MenuItemInput is a create or partial update request. Nil fields are left
// untouched on update.
type MenuItemInput struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	Category     *string          `json:"category"`
	ImageURL     *string          `json:"image_url"`
	IsAvailable  *bool            `json:"is_available"`
	IsVegetarian *bool            `json:"is_vegetarian"`
}

// ApplyTo merges the set fields of in onto item.
func (in MenuItemInput) ApplyTo(item *MenuItem) {
	if in.Name != nil {
		item.Name = *in.Name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.ImageURL != nil && *in.ImageURL != "" {
		item.ImageURL = *in.ImageURL
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if in.IsVegetarian != nil {
		item.IsVegetarian = *in.IsVegetarian
	}
}

// Validate checks the fields every menu item must carry.
func (m *MenuItem) Validate() error {
	if m.Name == "" || m.Category == "" || !m.Price.IsPositive() {
		return ErrMenuItemIncomplete
	}
	return nil
}
