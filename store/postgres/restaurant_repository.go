package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"food-ordering/api/models"
)

type RestaurantRepository struct {
	pool *pgxpool.Pool
}

func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

const restaurantColumns = `
    id, COALESCE(owner_id::text, ''), name, address, contact_email, COALESCE(phone, ''),
    COALESCE(cuisine_type, ''), COALESCE(description, ''), COALESCE(image_url, ''),
    lat, lng, COALESCE(rating, 0), COALESCE(rating_count, 0), COALESCE(delivery_time, ''),
    COALESCE(price_range, ''), COALESCE(offer, ''), is_popular, created_at`

func (r *RestaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	query := `
        INSERT INTO restaurants (
            id, owner_id, name, address, contact_email, phone, cuisine_type,
            description, image_url, lat, lng, rating, rating_count,
            delivery_time, price_range, offer, is_popular
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
        )
        RETURNING created_at
    `
	err := r.pool.QueryRow(ctx, query,
		restaurant.ID,
		nullable(restaurant.OwnerID),
		restaurant.Name,
		restaurant.Address,
		restaurant.ContactEmail,
		nullable(restaurant.Phone),
		nullable(restaurant.CuisineType),
		nullable(restaurant.Description),
		nullable(restaurant.ImageURL),
		restaurant.Lat,
		restaurant.Lng,
		restaurant.Rating,
		restaurant.RatingCount,
		nullable(restaurant.DeliveryTime),
		nullable(restaurant.PriceRange),
		nullable(restaurant.Offer),
		restaurant.IsPopular,
	).Scan(&restaurant.CreatedAt)
	return translate(err)
}

func (r *RestaurantRepository) GetAll(ctx context.Context) ([]*models.Restaurant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+restaurantColumns+` FROM restaurants ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	restaurants := []*models.Restaurant{}
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, restaurant)
	}
	return restaurants, rows.Err()
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	restaurant, err := scanRestaurant(r.pool.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return restaurant, nil
}

func (r *RestaurantRepository) GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE owner_id = $1 ORDER BY created_at LIMIT 1`
	restaurant, err := scanRestaurant(r.pool.QueryRow(ctx, query, ownerID))
	if err != nil {
		return nil, translate(err)
	}
	return restaurant, nil
}

func scanRestaurant(row pgx.Row) (*models.Restaurant, error) {
	restaurant := &models.Restaurant{}
	err := row.Scan(
		&restaurant.ID,
		&restaurant.OwnerID,
		&restaurant.Name,
		&restaurant.Address,
		&restaurant.ContactEmail,
		&restaurant.Phone,
		&restaurant.CuisineType,
		&restaurant.Description,
		&restaurant.ImageURL,
		&restaurant.Lat,
		&restaurant.Lng,
		&restaurant.Rating,
		&restaurant.RatingCount,
		&restaurant.DeliveryTime,
		&restaurant.PriceRange,
		&restaurant.Offer,
		&restaurant.IsPopular,
		&restaurant.CreatedAt,
	)
	return restaurant, err
}
