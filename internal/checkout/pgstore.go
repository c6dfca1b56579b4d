package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/course"
	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

// PGStore runs checkout transactions on a pgx pool. Each Begin acquires one
// connection for the lifetime of the transaction; all row locks live inside
// its scope.
type PGStore struct{ db *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func (t *pgTx) ProductForUpdate(ctx context.Context, id string) (*LockedProduct, error) {
	var p LockedProduct
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, price::text, state, stock
		FROM products WHERE id=$1
		FOR UPDATE
	`, id).Scan(&p.ID, &p.Name, &p.Price, &p.State, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) DecrementStock(ctx context.Context, id string, qty int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1
	`, id, qty)
	return err
}

func (t *pgTx) Course(ctx context.Context, id string) (*CourseInfo, error) {
	var c CourseInfo
	err := t.tx.QueryRow(ctx, `
		SELECT id, title, COALESCE(price,0)::text, state FROM courses WHERE id=$1
	`, id).Scan(&c.ID, &c.Title, &c.Price, &c.State)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total, status, shipping_address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),NOW(),NOW())
	`, o.ID, o.UserID, o.Total, o.Status, o.ShippingAddress)
	return err
}

func (t *pgTx) AddLine(ctx context.Context, l *order.Line) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_lines (id, order_id, product_id, course_id, name, unit_price, quantity)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, l.ID, l.OrderID, l.ProductID, l.CourseID, l.Name, l.UnitPrice, l.Quantity)
	return err
}

func (t *pgTx) SetOrderTotal(ctx context.Context, orderID, total string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE orders SET total=$2, updated_at=NOW() WHERE id=$1
	`, orderID, total)
	return err
}

func (t *pgTx) OrderByID(ctx context.Context, orderID string) (*order.Order, error) {
	var o order.Order
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, total::text, status, COALESCE(shipping_address,''), created_at, updated_at
		FROM orders WHERE id=$1
	`, orderID).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *pgTx) CourseLines(ctx context.Context, orderID string) ([]order.Line, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, course_id, name, unit_price::text, quantity
		FROM order_lines WHERE order_id=$1 AND course_id IS NOT NULL
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []order.Line
	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.CourseID, &l.Name, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) CreateAppointment(ctx context.Context, a *booking.Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments
		  (id, user_id, pet_id, service_id, employee_id, modality, status, date, time, comments, order_id, address_ref, lat, lng, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),$11,$12,$13,$14,NOW())
	`, a.ID, a.UserID, a.PetID, a.ServiceID, a.EmployeeID, a.Modality, a.Status, a.Date, a.Time, a.Comments, a.OrderID, a.AddressRef, a.Lat, a.Lng)
	return err
}

func (t *pgTx) UpsertEnrollment(ctx context.Context, e *course.Enrollment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO enrollments (id, user_id, course_id, title_snapshot, price_snapshot, progress, created_at)
		VALUES ($1,$2,$3,$4,$5,0,NOW())
		ON CONFLICT (user_id, course_id) DO NOTHING
	`, e.ID, e.UserID, e.CourseID, e.TitleSnapshot, e.PriceSnapshot)
	return err
}

func (t *pgTx) BalanceForUpdate(ctx context.Context, userID string) (string, error) {
	var balance string
	err := t.tx.QueryRow(ctx, `
		SELECT balance::text FROM users WHERE id=$1 FOR UPDATE
	`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return balance, nil
}

func (t *pgTx) DebitBalance(ctx context.Context, userID, amount string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE users SET balance = balance - $2, updated_at = NOW() WHERE id = $1
	`, userID, amount)
	return err
}

func (t *pgTx) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO payments (id, order_id, amount, method, status, external_ref, paid_at, created_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,NOW())
	`, p.ID, p.OrderID, p.Amount, p.Method, p.Status, p.ExternalRef, p.PaidAt)
	return err
}

func (t *pgTx) MarkOrderPaid(ctx context.Context, orderID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status='paid', updated_at=NOW() WHERE id=$1 AND status='pending'
	`, orderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) MarkPaymentPaid(ctx context.Context, externalRef string, paidAt time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE payments SET status='paid', paid_at=$2 WHERE external_ref=$1 AND status='pending'
	`, externalRef, paidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) MarkPaymentFailed(ctx context.Context, externalRef string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE payments SET status='failed' WHERE external_ref=$1 AND status <> 'paid'
	`, externalRef)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT ci.item_type, COALESCE(ci.product_id::text,''), COALESCE(ci.course_id::text,''), ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1
		ORDER BY ci.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ItemType, &l.ProductID, &l.CourseID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM cart_items
		USING carts
		WHERE cart_items.cart_id = carts.id AND carts.user_id = $1
	`, userID)
	return err
}
