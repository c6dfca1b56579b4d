package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("order not found")
)

// Repository covers the read paths. Order creation happens only inside the
// checkout transaction (internal/checkout).
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, []Line, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	GetItems(ctx context.Context, orderID string) ([]Line, error)
	AdminSummary(ctx context.Context) (*Summary, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Line, error) {
	var o Order
	if err := r.db.QueryRow(ctx, `
    SELECT id,user_id,total::text,status,COALESCE(shipping_address,''),created_at,updated_at
    FROM orders WHERE id=$1
  `, id).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, nil, ErrNotFound
	}
	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &o, items, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
    SELECT id,user_id,total::text,status,COALESCE(shipping_address,''),created_at,updated_at
    FROM orders WHERE user_id=$1
    ORDER BY created_at DESC LIMIT $2 OFFSET $3
  `, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetItems(ctx context.Context, orderID string) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
    SELECT id, order_id, product_id, course_id, name, unit_price::text, quantity
    FROM order_lines
    WHERE order_id = $1
  `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.CourseID, &l.Name, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *PGRepo) AdminSummary(ctx context.Context) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s Summary
	if err := r.db.QueryRow(ctx, `
    SELECT COUNT(*),
           COUNT(*) FILTER (WHERE status = 'paid'),
           COALESCE(SUM(total) FILTER (WHERE status = 'paid'), 0)::text
    FROM orders
  `).Scan(&s.TotalOrders, &s.PaidOrders, &s.Revenue); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
    SELECT id,user_id,total::text,status,COALESCE(shipping_address,''),created_at,updated_at
    FROM orders ORDER BY created_at DESC LIMIT 5
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		s.Recent = append(s.Recent, o)
	}
	return &s, rows.Err()
}
