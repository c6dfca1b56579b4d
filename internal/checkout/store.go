package checkout

import (
	"context"
	"time"

	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/course"
	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

// LockedProduct is a product row read under FOR UPDATE: price, publication
// state and stock are all consistent for the rest of the transaction.
type LockedProduct struct {
	ID    string
	Name  string
	Price string
	State string
	Stock int
}

// CourseInfo is the catalog view the pricing resolver needs.
type CourseInfo struct {
	ID    string
	Title string
	Price string
	State string
}

// CartLine is one persisted cart row, used by the legacy checkout path.
type CartLine struct {
	ItemType  string // producto | curso
	ProductID string
	CourseID  string
	Quantity  int
}

// Store provides transactions to the coordinator. It is the injected
// connection provider: the pgx pool in production, an in-memory fake in
// tests.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic checkout unit. Every method runs on the same underlying
// database transaction; locks taken by the ForUpdate methods are held until
// Commit or Rollback.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// Pricing / inventory.
	ProductForUpdate(ctx context.Context, id string) (*LockedProduct, error)
	DecrementStock(ctx context.Context, id string, qty int) error
	Course(ctx context.Context, id string) (*CourseInfo, error)

	// Order aggregate.
	CreateOrder(ctx context.Context, o *order.Order) error
	AddLine(ctx context.Context, l *order.Line) error
	SetOrderTotal(ctx context.Context, orderID, total string) error
	OrderByID(ctx context.Context, orderID string) (*order.Order, error)
	CourseLines(ctx context.Context, orderID string) ([]order.Line, error)

	// Spawners.
	CreateAppointment(ctx context.Context, a *booking.Appointment) error
	UpsertEnrollment(ctx context.Context, e *course.Enrollment) error

	// Wallet.
	BalanceForUpdate(ctx context.Context, userID string) (string, error)
	DebitBalance(ctx context.Context, userID, amount string) error

	// Settlement.
	CreatePayment(ctx context.Context, p *payment.Payment) error
	MarkOrderPaid(ctx context.Context, orderID string) (bool, error)
	MarkPaymentPaid(ctx context.Context, externalRef string, paidAt time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, externalRef string) (bool, error)

	// Legacy cart flow.
	CartLines(ctx context.Context, userID string) ([]CartLine, error)
	ClearCart(ctx context.Context, userID string) error
}
