package models

import "time"

type Restaurant struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	ContactEmail string    `json:"contact_email"`
	Phone        string    `json:"phone"`
	CuisineType  string    `json:"cuisine_type"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Rating       float64   `json:"rating"`
	RatingCount  int       `json:"rating_count"`
	DeliveryTime string    `json:"delivery_time"`
	PriceRange   string    `json:"price_range"`
	Offer        string    `json:"offer,omitempty"`
	IsPopular    bool      `json:"is_popular"`
	CreatedAt    time.Time `json:"created_at"`

	// Distance is filled in for nearby listings, in kilometers.
	Distance float64 `json:"distance,omitempty"`
}

type RestaurantOwner struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	BusinessName string    `json:"business_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}
