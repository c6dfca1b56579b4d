package main

import (
	"context"
	"sync"
	"time"

	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/checkout"
	"github.com/talkingpet/backend/internal/course"
	ord "github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

// handlerStore is a checkout.Store for handler tests. It only tracks what the
// assertions read; failed requests abort before mutating product stock, so no
// snapshot rollback is needed here.
type handlerStore struct {
	mu       sync.Mutex
	products map[string]checkout.LockedProduct
	orders   map[string]ord.Order
}

func newHandlerStore() *handlerStore {
	return &handlerStore{
		products: map[string]checkout.LockedProduct{},
		orders:   map[string]ord.Order{},
	}
}

func (s *handlerStore) Begin(ctx context.Context) (checkout.Tx, error) {
	s.mu.Lock()
	return &handlerTx{s: s}, nil
}

type handlerTx struct {
	s    *handlerStore
	done bool
}

func (t *handlerTx) finish() {
	if !t.done {
		t.done = true
		t.s.mu.Unlock()
	}
}

func (t *handlerTx) Commit(ctx context.Context) error   { t.finish(); return nil }
func (t *handlerTx) Rollback(ctx context.Context) error { t.finish(); return nil }

func (t *handlerTx) ProductForUpdate(ctx context.Context, id string) (*checkout.LockedProduct, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, checkout.ErrNotFound
	}
	return &p, nil
}

func (t *handlerTx) DecrementStock(ctx context.Context, id string, qty int) error {
	p := t.s.products[id]
	p.Stock -= qty
	t.s.products[id] = p
	return nil
}

func (t *handlerTx) Course(ctx context.Context, id string) (*checkout.CourseInfo, error) {
	return nil, checkout.ErrNotFound
}

func (t *handlerTx) CreateOrder(ctx context.Context, o *ord.Order) error {
	t.s.orders[o.ID] = *o
	return nil
}

func (t *handlerTx) AddLine(ctx context.Context, l *ord.Line) error { return nil }

func (t *handlerTx) SetOrderTotal(ctx context.Context, orderID, total string) error {
	o := t.s.orders[orderID]
	o.Total = total
	t.s.orders[orderID] = o
	return nil
}

func (t *handlerTx) OrderByID(ctx context.Context, orderID string) (*ord.Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil, checkout.ErrNotFound
	}
	return &o, nil
}

func (t *handlerTx) CourseLines(ctx context.Context, orderID string) ([]ord.Line, error) {
	return nil, nil
}

func (t *handlerTx) CreateAppointment(ctx context.Context, a *booking.Appointment) error { return nil }

func (t *handlerTx) UpsertEnrollment(ctx context.Context, e *course.Enrollment) error { return nil }

func (t *handlerTx) BalanceForUpdate(ctx context.Context, userID string) (string, error) {
	return "0", nil
}

func (t *handlerTx) DebitBalance(ctx context.Context, userID, amount string) error { return nil }

func (t *handlerTx) CreatePayment(ctx context.Context, p *payment.Payment) error { return nil }

func (t *handlerTx) MarkOrderPaid(ctx context.Context, orderID string) (bool, error) {
	o, ok := t.s.orders[orderID]
	if !ok || o.Status != ord.StatusPending {
		return false, nil
	}
	o.Status = ord.StatusPaid
	t.s.orders[orderID] = o
	return true, nil
}

func (t *handlerTx) MarkPaymentPaid(ctx context.Context, externalRef string, paidAt time.Time) (bool, error) {
	return false, nil
}

func (t *handlerTx) MarkPaymentFailed(ctx context.Context, externalRef string) (bool, error) {
	return false, nil
}

func (t *handlerTx) CartLines(ctx context.Context, userID string) ([]checkout.CartLine, error) {
	return nil, nil
}

func (t *handlerTx) ClearCart(ctx context.Context, userID string) error { return nil }
