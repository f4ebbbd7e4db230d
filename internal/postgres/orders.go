package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/order"
)

// OrderRepository implements order.Repository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const insertOrderSQL = `
	INSERT INTO orders (id, order_number, table_number, total_amount, payment_status,
	                    order_status, customer_name, customer_phone, notes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const insertItemSQL = `
	INSERT INTO order_items (order_id, position, product_id, name, quantity, unit_price)
	VALUES ($1, $2, $3, $4, $5, $6)`

// upsertOrderSQL never moves either status backward. inserted is true for
// new rows only.
const upsertOrderSQL = insertOrderSQL + `
	ON CONFLICT (id) DO UPDATE SET
	    order_status = CASE
	        WHEN array_position(ARRAY['RECEIVED','PREPARING','COMPLETED'], EXCLUDED.order_status)
	           > array_position(ARRAY['RECEIVED','PREPARING','COMPLETED'], orders.order_status)
	        THEN EXCLUDED.order_status ELSE orders.order_status END,
	    payment_status = CASE
	        WHEN EXCLUDED.payment_status = 'PAID' THEN 'PAID' ELSE orders.payment_status END
	RETURNING (xmax = 0) AS inserted`

// LoadOrders returns every order, most recently inserted first.
func (r *OrderRepository) LoadOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, table_number, total_amount, payment_status, order_status,
		       customer_name, customer_phone, notes, created_at
		FROM orders
		ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var o order.Order
		err := row.Scan(&o.ID, &o.OrderNumber, &o.TableNumber, &o.TotalAmount, &o.PaymentStatus,
			&o.OrderStatus, &o.CustomerName, &o.CustomerPhone, &o.Notes, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}

	index := make(map[string]int, len(orders))
	for i, o := range orders {
		index[o.ID] = i
	}

	rows, err = r.pool.Query(ctx, `
		SELECT order_id, product_id, name, quantity, unit_price
		FROM order_items
		ORDER BY order_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var l order.Line
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return orders, nil
}

// CreateOrder inserts the order and its lines in one transaction.
func (r *OrderRepository) CreateOrder(ctx context.Context, o order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL, orderArgs(o)...); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return insertItems(ctx, tx, o)
	})
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET order_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order", id)
	}
	return nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET payment_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("order", id)
	}
	return nil
}

// UpsertOrders inserts unknown orders in the given sequence (so the last one
// loads first) and merges known ones forward.
func (r *OrderRepository) UpsertOrders(ctx context.Context, orders []order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, o := range orders {
			var inserted bool
			if err := tx.QueryRow(ctx, upsertOrderSQL, orderArgs(o)...).Scan(&inserted); err != nil {
				return fmt.Errorf("upsert order %s: %w", o.ID, err)
			}
			if !inserted {
				continue
			}
			if err := insertItems(ctx, tx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

func orderArgs(o order.Order) []any {
	return []any{
		o.ID, o.OrderNumber, o.TableNumber, o.TotalAmount, string(o.PaymentStatus),
		string(o.OrderStatus), o.CustomerName, o.CustomerPhone, o.Notes, o.CreatedAt,
	}
}

func insertItems(ctx context.Context, tx pgx.Tx, o order.Order) error {
	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		batch.Queue(insertItemSQL, o.ID, i, l.ProductID, l.Name, l.Quantity, l.UnitPrice)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items for order %s: %w", o.ID, err)
	}
	return nil
}
