package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound = errors.New("cart item not found")
)

type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	AddProduct(ctx context.Context, userID, productID, price string, qty int) error
	AddCourse(ctx context.Context, userID, courseID, price string) error
	UpdateQuantity(ctx context.Context, userID, productID string, qty int) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) ensure(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	id = uuid.NewString()
	if _, err := r.db.Exec(ctx, `
		INSERT INTO carts (id, user_id) VALUES ($1,$2)
		ON CONFLICT (user_id) DO NOTHING
	`, id, userID); err != nil {
		return "", err
	}
	// Re-read in case a concurrent request inserted first.
	if err := r.db.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PGRepo) Get(ctx context.Context, userID string) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cartID, err := r.ensure(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT ci.id,
		       COALESCE(ci.product_id::text,''),
		       COALESCE(ci.course_id::text,''),
		       ci.item_type,
		       COALESCE(p.name, c.title, ''),
		       COALESCE(p.image_url, c.cover_url, ''),
		       ci.quantity,
		       ci.unit_price::text,
		       (ci.unit_price * ci.quantity)::text
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		LEFT JOIN courses c  ON c.id = ci.course_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id DESC
	`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := Cart{Items: []Item{}}
	total := decimal.Zero
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.CourseID, &it.ItemType, &it.Name, &it.ImageURL, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		sub, err := decimal.NewFromString(it.Subtotal)
		if err == nil {
			total = total.Add(sub)
		}
		out.Items = append(out.Items, it)
	}
	out.Total = total.StringFixed(2)
	return &out, rows.Err()
}

func (r *PGRepo) AddProduct(ctx context.Context, userID, productID, price string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	cartID, err := r.ensure(ctx, userID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, course_id, item_type, quantity, unit_price)
		VALUES ($1, $2, $3, NULL, 'producto', $4, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, uuid.NewString(), cartID, productID, qty, price)
	return err
}

func (r *PGRepo) AddCourse(ctx context.Context, userID, courseID, price string) error {
	cartID, err := r.ensure(ctx, userID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, course_id, item_type, quantity, unit_price)
		VALUES ($1, $2, NULL, $3, 'curso', 1, $4)
	`, uuid.NewString(), cartID, courseID, price)
	return err
}

func (r *PGRepo) UpdateQuantity(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	cartID, err := r.ensure(ctx, userID)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE cart_items SET quantity=$1 WHERE cart_id=$2 AND product_id=$3
	`, qty, cartID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PGRepo) RemoveItem(ctx context.Context, userID, itemID string) error {
	cartID, err := r.ensure(ctx, userID)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND id=$2`, cartID, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PGRepo) Clear(ctx context.Context, userID string) error {
	cartID, err := r.ensure(ctx, userID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}
