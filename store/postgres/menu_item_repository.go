package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"food-ordering/api/models"
	"food-ordering/api/store"
)

type MenuItemRepository struct {
	pool *pgxpool.Pool
}

func NewMenuItemRepository(pool *pgxpool.Pool) *MenuItemRepository {
	return &MenuItemRepository{pool: pool}
}

const menuItemColumns = `
    id, restaurant_id, name, COALESCE(description, ''), price, category,
    COALESCE(image_url, ''), is_available, is_vegetarian, created_at, updated_at`

func (r *MenuItemRepository) Create(ctx context.Context, item *models.MenuItem) error {
	query := `
        INSERT INTO menu_items (
            id, restaurant_id, name, description, price, category,
            image_url, is_available, is_vegetarian
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9
        )
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, query,
		item.ID,
		item.RestaurantID,
		item.Name,
		nullable(item.Description),
		item.Price,
		item.Category,
		nullable(item.ImageURL),
		item.IsAvailable,
		item.IsVegetarian,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	return translate(err)
}

func (r *MenuItemRepository) Update(ctx context.Context, item *models.MenuItem) error {
	query := `
        UPDATE menu_items SET
            name = $2, description = $3, price = $4, category = $5,
            image_url = $6, is_available = $7, is_vegetarian = $8, updated_at = now()
        WHERE id = $1
        RETURNING updated_at
    `
	err := r.pool.QueryRow(ctx, query,
		item.ID,
		item.Name,
		nullable(item.Description),
		item.Price,
		item.Category,
		nullable(item.ImageURL),
		item.IsAvailable,
		item.IsVegetarian,
	).Scan(&item.UpdatedAt)
	return translate(err)
}

func (r *MenuItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *MenuItemRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := scanMenuItem(r.pool.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

func (r *MenuItemRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items WHERE restaurant_id = $1 ORDER BY category, name`
	rows, err := r.pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menuItems := []*models.MenuItem{}
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		menuItems = append(menuItems, item)
	}
	return menuItems, rows.Err()
}

// SetAvailability writes only the availability flag and returns the row as
// stored afterwards.
func (r *MenuItemRepository) SetAvailability(ctx context.Context, id string, available bool) (*models.MenuItem, error) {
	query := `UPDATE menu_items SET is_available = $2 WHERE id = $1 RETURNING ` + menuItemColumns
	item, err := scanMenuItem(r.pool.QueryRow(ctx, query, id, available))
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

func scanMenuItem(row pgx.Row) (*models.MenuItem, error) {
	item := &models.MenuItem{}
	err := row.Scan(
		&item.ID,
		&item.RestaurantID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.Category,
		&item.ImageURL,
		&item.IsAvailable,
		&item.IsVegetarian,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}
