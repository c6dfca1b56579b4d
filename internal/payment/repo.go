package payment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("payment not found")
)

// Repository covers the non-transactional payment paths: creating pending
// rows for deferred gateways and the status lookups. Paid/failed transitions
// that touch the order run through the checkout settlement service instead.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	LatestByOrder(ctx context.Context, orderID, method string) (*Payment, error)
	PendingOrPaidByOrder(ctx context.Context, orderID string) (*Payment, error)
	GetByRef(ctx context.Context, externalRef string) (*Payment, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, p *Payment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (id, order_id, amount, method, status, external_ref, paid_at, created_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,NOW())
	`, p.ID, p.OrderID, p.Amount, p.Method, p.Status, p.ExternalRef, p.PaidAt)
	return err
}

const paymentCols = `
	SELECT id, order_id, amount::text, method, status, COALESCE(external_ref,''), paid_at, created_at
	FROM payments
`

func (r *PGRepo) scanOne(ctx context.Context, q string, args ...any) (*Payment, error) {
	var p Payment
	err := r.db.QueryRow(ctx, q, args...).Scan(
		&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.ExternalRef, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *PGRepo) LatestByOrder(ctx context.Context, orderID, method string) (*Payment, error) {
	return r.scanOne(ctx, paymentCols+`
		WHERE order_id=$1 AND ($2 = '' OR method=$2)
		ORDER BY created_at DESC LIMIT 1
	`, orderID, method)
}

// PendingOrPaidByOrder finds a reusable payment row for an order, so a second
// QR generation returns the same reference instead of minting another row.
func (r *PGRepo) PendingOrPaidByOrder(ctx context.Context, orderID string) (*Payment, error) {
	return r.scanOne(ctx, paymentCols+`
		WHERE order_id=$1 AND status IN ('pending','paid')
		ORDER BY created_at DESC LIMIT 1
	`, orderID)
}

func (r *PGRepo) GetByRef(ctx context.Context, externalRef string) (*Payment, error) {
	return r.scanOne(ctx, paymentCols+` WHERE external_ref=$1 ORDER BY created_at DESC LIMIT 1`, externalRef)
}
