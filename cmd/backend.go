package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"food-ordering/api/auth"
	"food-ordering/api/cart"
	"food-ordering/api/checkout"
	"food-ordering/api/config"
	"food-ordering/api/session"
	"food-ordering/api/store"
	"food-ordering/api/store/memory"
	"food-ordering/api/store/postgres"
)

const (
	cartTTL          = 30 * 24 * time.Hour
	checkoutStateTTL = 2 * time.Hour
)

// backend is the storage the commands run on: Postgres and Redis, or
// process memory with --memory.
type backend struct {
	Users       store.UserRepository
	Owners      store.OwnerRepository
	Restaurants store.RestaurantRepository
	MenuItems   store.MenuItemRepository
	Orders      store.OrderRepository

	Carts         cart.Store
	Flows         checkout.StateStore
	Revoker       session.Revoker
	Confirmations auth.ConfirmationStore

	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend picks the storage. With inMemory set, cartDir optionally keeps
// carts on disk so they survive a restart.
func openBackend(ctx context.Context, cfg *config.Config, inMemory bool, cartDir string) (*backend, error) {
	if inMemory {
		log.Println("Using in-memory storage; data is lost on exit")
		db := memory.New()
		var carts cart.Store = cart.NewMemoryStore()
		if cartDir != "" {
			if err := os.MkdirAll(cartDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cart dir: %w", err)
			}
			carts = cart.NewFileStore(cartDir)
		}
		return &backend{
			Users:         db.Users(),
			Owners:        db.Owners(),
			Restaurants:   db.Restaurants(),
			MenuItems:     db.MenuItems(),
			Orders:        db.Orders(),
			Carts:         carts,
			Flows:         checkout.NewMemoryStateStore(),
			Revoker:       session.NewMemoryRevoker(),
			Confirmations: auth.NewMemoryConfirmationStore(),
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	b := postgresBackend(pool)
	b.Carts = cart.NewRedisStore(rdb, cartTTL)
	b.Flows = checkout.NewRedisStateStore(rdb, checkoutStateTTL)
	b.Revoker = session.NewRedisRevoker(rdb)
	b.Confirmations = auth.NewRedisConfirmationStore(rdb)
	b.closers = append(b.closers, pool.Close, func() { _ = rdb.Close() })
	return b, nil
}

func postgresBackend(pool *pgxpool.Pool) *backend {
	return &backend{
		Users:       postgres.NewUserRepository(pool),
		Owners:      postgres.NewOwnerRepository(pool),
		Restaurants: postgres.NewRestaurantRepository(pool),
		MenuItems:   postgres.NewMenuItemRepository(pool),
		Orders:      postgres.NewOrderRepository(pool),
	}
}
