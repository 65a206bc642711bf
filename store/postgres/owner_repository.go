package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"food-ordering/api/models"
)

type OwnerRepository struct {
	pool *pgxpool.Pool
}

func NewOwnerRepository(pool *pgxpool.Pool) *OwnerRepository {
	return &OwnerRepository{pool: pool}
}

func (r *OwnerRepository) Create(ctx context.Context, owner *models.RestaurantOwner) error {
	query := `
        INSERT INTO restaurant_owners (id, user_id, business_name, email, phone, address, is_verified)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at
    `
	err := r.pool.QueryRow(ctx, query,
		owner.ID,
		owner.UserID,
		owner.BusinessName,
		nullable(owner.Email),
		nullable(owner.Phone),
		nullable(owner.Address),
		owner.IsVerified,
	).Scan(&owner.CreatedAt)
	return translate(err)
}

func (r *OwnerRepository) GetByUserID(ctx context.Context, userID string) (*models.RestaurantOwner, error) {
	query := `
        SELECT id, user_id, business_name, COALESCE(email, ''), COALESCE(phone, ''),
               COALESCE(address, ''), is_verified, created_at
        FROM restaurant_owners
        WHERE user_id = $1
    `
	owner := &models.RestaurantOwner{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&owner.ID,
		&owner.UserID,
		&owner.BusinessName,
		&owner.Email,
		&owner.Phone,
		&owner.Address,
		&owner.IsVerified,
		&owner.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return owner, nil
}
