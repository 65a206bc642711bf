// Package store declares the repositories backing the service. Reads are
// filtered by restaurant or owner; writes are single-row and atomic.
package store

import (
	"context"
	"errors"

	"food-ordering/api/models"
)

var (
	ErrNotFound  = models.ErrNotFound
	ErrDuplicate = errors.New("already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ConfirmEmail(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type OwnerRepository interface {
	Create(ctx context.Context, owner *models.RestaurantOwner) error
	GetByUserID(ctx context.Context, userID string) (*models.RestaurantOwner, error)
}

type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *models.Restaurant) error
	GetAll(ctx context.Context) ([]*models.Restaurant, error)
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error)
}

type MenuItemRepository interface {
	Create(ctx context.Context, item *models.MenuItem) error
	Update(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error)
	SetAvailability(ctx context.Context, id string, available bool) (*models.MenuItem, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetByRestaurantID returns newest orders first.
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.Order, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Order, error)
}
