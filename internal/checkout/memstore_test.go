package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/course"
	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

//
// ---------- IN-MEMORY STORE ----------
//

// memState is everything a transaction can touch. Snapshots of it implement
// rollback.
type memState struct {
	products map[string]LockedProduct
	courses  map[string]CourseInfo
	balances map[string]string
	orders   map[string]order.Order
	lines    map[string][]order.Line
	appts    []booking.Appointment
	enrolls  map[string]course.Enrollment // key user|course
	payments []payment.Payment
	carts    map[string][]CartLine
}

func newMemState() *memState {
	return &memState{
		products: map[string]LockedProduct{},
		courses:  map[string]CourseInfo{},
		balances: map[string]string{},
		orders:   map[string]order.Order{},
		lines:    map[string][]order.Line{},
		enrolls:  map[string]course.Enrollment{},
		carts:    map[string][]CartLine{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]order.Line(nil), v...)
	}
	c.appts = append([]booking.Appointment(nil), s.appts...)
	for k, v := range s.enrolls {
		c.enrolls[k] = v
	}
	c.payments = append([]payment.Payment(nil), s.payments...)
	for k, v := range s.carts {
		c.carts[k] = append([]CartLine(nil), v...)
	}
	return c
}

// memStore serializes transactions with a mutex, which models the row locks
// closely enough: a wallet or stock conflict between two concurrent checkouts
// is decided strictly one after the other.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failOn makes the named Tx method return an error, for rollback tests.
	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failOn: map[string]error{}}
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	return &memTx{store: s, snapshot: s.state.clone()}, nil
}

type memTx struct {
	store    *memStore
	snapshot *memState
	done     bool
}

func (t *memTx) fail(method string) error { return t.store.failOn[method] }

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("commit on finished tx")
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.state = t.snapshot
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) ProductForUpdate(ctx context.Context, id string) (*LockedProduct, error) {
	if err := t.fail("ProductForUpdate"); err != nil {
		return nil, err
	}
	p, ok := t.store.state.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (t *memTx) DecrementStock(ctx context.Context, id string, qty int) error {
	if err := t.fail("DecrementStock"); err != nil {
		return err
	}
	p := t.store.state.products[id]
	p.Stock -= qty
	t.store.state.products[id] = p
	return nil
}

func (t *memTx) Course(ctx context.Context, id string) (*CourseInfo, error) {
	c, ok := t.store.state.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (t *memTx) CreateOrder(ctx context.Context, o *order.Order) error {
	t.store.state.orders[o.ID] = *o
	return nil
}

func (t *memTx) AddLine(ctx context.Context, l *order.Line) error {
	if err := t.fail("AddLine"); err != nil {
		return err
	}
	t.store.state.lines[l.OrderID] = append(t.store.state.lines[l.OrderID], *l)
	return nil
}

func (t *memTx) SetOrderTotal(ctx context.Context, orderID, total string) error {
	o := t.store.state.orders[orderID]
	o.Total = total
	t.store.state.orders[orderID] = o
	return nil
}

func (t *memTx) OrderByID(ctx context.Context, orderID string) (*order.Order, error) {
	o, ok := t.store.state.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (t *memTx) CourseLines(ctx context.Context, orderID string) ([]order.Line, error) {
	var out []order.Line
	for _, l := range t.store.state.lines[orderID] {
		if l.CourseID != nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *memTx) CreateAppointment(ctx context.Context, a *booking.Appointment) error {
	if err := t.fail("CreateAppointment"); err != nil {
		return err
	}
	t.store.state.appts = append(t.store.state.appts, *a)
	return nil
}

func (t *memTx) UpsertEnrollment(ctx context.Context, e *course.Enrollment) error {
	key := e.UserID + "|" + e.CourseID
	if _, exists := t.store.state.enrolls[key]; exists {
		return nil
	}
	t.store.state.enrolls[key] = *e
	return nil
}

func (t *memTx) BalanceForUpdate(ctx context.Context, userID string) (string, error) {
	b, ok := t.store.state.balances[userID]
	if !ok {
		return "", ErrNotFound
	}
	return b, nil
}

func (t *memTx) DebitBalance(ctx context.Context, userID, amount string) error {
	cur, _ := decimal.NewFromString(t.store.state.balances[userID])
	amt, _ := decimal.NewFromString(amount)
	t.store.state.balances[userID] = cur.Sub(amt).StringFixed(2)
	return nil
}

func (t *memTx) CreatePayment(ctx context.Context, p *payment.Payment) error {
	t.store.state.payments = append(t.store.state.payments, *p)
	return nil
}

func (t *memTx) MarkOrderPaid(ctx context.Context, orderID string) (bool, error) {
	o, ok := t.store.state.orders[orderID]
	if !ok || o.Status != order.StatusPending {
		return false, nil
	}
	o.Status = order.StatusPaid
	t.store.state.orders[orderID] = o
	return true, nil
}

func (t *memTx) MarkPaymentPaid(ctx context.Context, externalRef string, paidAt time.Time) (bool, error) {
	for i, p := range t.store.state.payments {
		if p.ExternalRef == externalRef && p.Status == payment.StatusPending {
			t.store.state.payments[i].Status = payment.StatusPaid
			at := paidAt
			t.store.state.payments[i].PaidAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) MarkPaymentFailed(ctx context.Context, externalRef string) (bool, error) {
	for i, p := range t.store.state.payments {
		if p.ExternalRef == externalRef && p.Status != payment.StatusPaid {
			t.store.state.payments[i].Status = payment.StatusFailed
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CartLines(ctx context.Context, userID string) ([]CartLine, error) {
	return append([]CartLine(nil), t.store.state.carts[userID]...), nil
}

func (t *memTx) ClearCart(ctx context.Context, userID string) error {
	delete(t.store.state.carts, userID)
	return nil
}
