package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"food-ordering/api/models"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `
    id, restaurant_id, user_id, COALESCE(user_name, ''), COALESCE(mobile_number, ''),
    items, total_amount, type, COALESCE(status, 'pending'), COALESCE(payment_method, ''),
    COALESCE(payment_status, 'pending'), COALESCE(upi_id, ''), COALESCE(upi_transaction_id, ''),
    scheduled_time, COALESCE(delivery_address, ''), COALESCE(table_number, ''),
    COALESCE(notes, ''), created_at`

// Create inserts the order as a single row, items included.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO orders (
            id, restaurant_id, user_id, user_name, mobile_number, items,
            total_amount, type, status, payment_method, payment_status,
            upi_id, upi_transaction_id, scheduled_time, delivery_address,
            table_number, notes
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
        )
        RETURNING created_at
    `
	err = r.pool.QueryRow(ctx, query,
		order.ID,
		order.RestaurantID,
		order.UserID,
		nullable(order.UserName),
		nullable(order.MobileNumber),
		items,
		order.TotalAmount,
		order.Type,
		order.Status,
		order.PaymentMethod,
		order.PaymentStatus,
		nullable(order.UPIID),
		nullable(order.UPITransactionID),
		order.ScheduledTime,
		nullable(order.DeliveryAddress),
		nullable(order.TableNumber),
		nullable(order.Notes),
	).Scan(&order.CreatedAt)
	return translate(err)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

func (r *OrderRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE restaurant_id = $1 ORDER BY created_at DESC`, restaurantID)
}

func (r *OrderRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	query := `UPDATE orders SET status = $2 WHERE id = $1 RETURNING ` + orderColumns
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Order, error) {
	query := `UPDATE orders SET payment_status = $2 WHERE id = $1 RETURNING ` + orderColumns
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

func (r *OrderRepository) list(ctx context.Context, query, arg string) ([]*models.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	var items []byte
	err := row.Scan(
		&order.ID,
		&order.RestaurantID,
		&order.UserID,
		&order.UserName,
		&order.MobileNumber,
		&items,
		&order.TotalAmount,
		&order.Type,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.UPIID,
		&order.UPITransactionID,
		&order.ScheduledTime,
		&order.DeliveryAddress,
		&order.TableNumber,
		&order.Notes,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Items = models.ParseOrderItems(items)
	return order, nil
}
