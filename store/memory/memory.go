// Package memory keeps every repository in process-local maps guarded by a
// mutex. It backs tests and the --memory mode of the serve command.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"food-ordering/api/models"
	"food-ordering/api/store"
)

type Store struct {
	mu          sync.Mutex
	users       map[string]models.User
	owners      map[string]models.RestaurantOwner
	restaurants map[string]models.Restaurant
	menuItems   map[string]models.MenuItem
	orders      map[string]models.Order

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:       make(map[string]models.User),
		owners:      make(map[string]models.RestaurantOwner),
		restaurants: make(map[string]models.Restaurant),
		menuItems:   make(map[string]models.MenuItem),
		orders:      make(map[string]models.Order),
		now:         time.Now,
	}
}

func (s *Store) Users() *UserRepository             { return &UserRepository{s} }
func (s *Store) Owners() *OwnerRepository           { return &OwnerRepository{s} }
func (s *Store) Restaurants() *RestaurantRepository { return &RestaurantRepository{s} }
func (s *Store) MenuItems() *MenuItemRepository     { return &MenuItemRepository{s} }
func (s *Store) Orders() *OrderRepository           { return &OrderRepository{s} }

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now().UTC()
	}
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return store.ErrDuplicate
		}
	}
	r.s.stamp(&user.CreatedAt)
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) ConfirmEmail(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.EmailConfirmed = true
	r.s.users[id] = u
	return nil
}

type OwnerRepository struct{ s *Store }

func (r *OwnerRepository) Create(_ context.Context, owner *models.RestaurantOwner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.owners {
		if o.UserID == owner.UserID {
			return store.ErrDuplicate
		}
	}
	r.s.stamp(&owner.CreatedAt)
	r.s.owners[owner.ID] = *owner
	return nil
}

func (r *OwnerRepository) GetByUserID(_ context.Context, userID string) (*models.RestaurantOwner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.owners {
		if o.UserID == userID {
			return &o, nil
		}
	}
	return nil, store.ErrNotFound
}

type RestaurantRepository struct{ s *Store }

func (r *RestaurantRepository) Create(_ context.Context, restaurant *models.Restaurant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.restaurants[restaurant.ID]; ok {
		return store.ErrDuplicate
	}
	r.s.stamp(&restaurant.CreatedAt)
	r.s.restaurants[restaurant.ID] = *restaurant
	return nil
}

// GetAll lists restaurants by name.
func (r *RestaurantRepository) GetAll(_ context.Context) ([]*models.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Restaurant, 0, len(r.s.restaurants))
	for _, rest := range r.s.restaurants {
		rest := rest
		out = append(out, &rest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RestaurantRepository) GetByID(_ context.Context, id string) (*models.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rest, ok := r.s.restaurants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rest, nil
}

func (r *RestaurantRepository) GetByOwnerID(_ context.Context, ownerID string) (*models.Restaurant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rest := range r.s.restaurants {
		if rest.OwnerID == ownerID {
			return &rest, nil
		}
	}
	return nil, store.ErrNotFound
}

type MenuItemRepository struct{ s *Store }

func (r *MenuItemRepository) Create(_ context.Context, item *models.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.menuItems[item.ID]; ok {
		return store.ErrDuplicate
	}
	r.s.stamp(&item.CreatedAt)
	item.UpdatedAt = item.CreatedAt
	r.s.menuItems[item.ID] = *item
	return nil
}

func (r *MenuItemRepository) Update(_ context.Context, item *models.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.menuItems[item.ID]; !ok {
		return store.ErrNotFound
	}
	item.UpdatedAt = r.s.now().UTC()
	r.s.menuItems[item.ID] = *item
	return nil
}

func (r *MenuItemRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.menuItems[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.menuItems, id)
	return nil
}

func (r *MenuItemRepository) GetByID(_ context.Context, id string) (*models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.menuItems[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

// GetByRestaurantID lists a menu by category, then name.
func (r *MenuItemRepository) GetByRestaurantID(_ context.Context, restaurantID string) ([]*models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.MenuItem, 0)
	for _, item := range r.s.menuItems {
		if item.RestaurantID == restaurantID {
			item := item
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MenuItemRepository) SetAvailability(_ context.Context, id string, available bool) (*models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.menuItems[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item.IsAvailable = available
	r.s.menuItems[id] = item
	return &item, nil
}

type OrderRepository struct{ s *Store }

func (r *OrderRepository) Create(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[order.ID]; ok {
		return store.ErrDuplicate
	}
	r.s.stamp(&order.CreatedAt)
	r.s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) GetByRestaurantID(_ context.Context, restaurantID string) ([]*models.Order, error) {
	return r.list(func(o models.Order) bool { return o.RestaurantID == restaurantID }), nil
}

func (r *OrderRepository) GetByUserID(_ context.Context, userID string) ([]*models.Order, error) {
	return r.list(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) list(keep func(models.Order) bool) []*models.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Order, 0)
	for _, o := range r.s.orders {
		if keep(o) {
			o = cloneOrder(o)
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return r.patch(id, func(o *models.Order) { o.Status = status })
}

func (r *OrderRepository) UpdatePaymentStatus(_ context.Context, id string, status models.PaymentStatus) (*models.Order, error) {
	return r.patch(id, func(o *models.Order) { o.PaymentStatus = status })
}

func (r *OrderRepository) patch(id string, apply func(*models.Order)) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	apply(&o)
	r.s.orders[id] = o
	o = cloneOrder(o)
	return &o, nil
}

func cloneOrder(o models.Order) models.Order {
	items := make(models.OrderItems, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

var (
	_ store.UserRepository       = (*UserRepository)(nil)
	_ store.OwnerRepository      = (*OwnerRepository)(nil)
	_ store.RestaurantRepository = (*RestaurantRepository)(nil)
	_ store.MenuItemRepository   = (*MenuItemRepository)(nil)
	_ store.OrderRepository      = (*OrderRepository)(nil)
)
