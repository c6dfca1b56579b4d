package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/course"
	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

// Service is the checkout coordinator. One CreateOrder call is one database
// transaction: pricing, stock decrement, order rows, spawned appointments and
// enrollments, and wallet settlement all commit or roll back together.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// CreateOrder runs the full pipeline for an explicit item list. On any error
// the transaction rolls back and no partial state survives.
func (s *Service) CreateOrder(ctx context.Context, userID string, req OrderRequest) (*Result, error) {
	lines, err := parseLines(req.Items)
	if err != nil {
		return nil, err
	}

	shipping := decimal.Zero
	if req.Shipping != "" {
		shipping, err = parseAmount(req.Shipping)
		if err != nil || shipping.IsNegative() {
			return nil, fmt.Errorf("%w: invalid shipping amount", ErrValidation)
		}
	}

	method, ok := payment.NormalizeMethod(req.PaymentMethod)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.PaymentMethod)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := s.buildOrder(ctx, tx, userID, lines, shipping, req.ShippingAddress, method)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", res.ID),
		zap.String("user_id", userID),
		zap.String("total", res.Total),
		zap.String("method", method),
		zap.String("status", res.Status))
	return res, nil
}

// CheckoutFromCart is the persisted-cart path: it reads the cart rows inside
// the same transaction, runs the same pipeline, and clears the cart only if
// everything else succeeded.
func (s *Service) CheckoutFromCart(ctx context.Context, userID string, shippingAddress, paymentMethod string) (*Result, error) {
	method, ok := payment.NormalizeMethod(paymentMethod)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, paymentMethod)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cart, err := tx.CartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	lines := make([]line, 0, len(cart))
	for _, c := range cart {
		switch {
		case c.ProductID != "":
			qty := c.Quantity
			if qty < 1 {
				qty = 1
			}
			lines = append(lines, productLine{ProductID: c.ProductID, Qty: qty})
		case c.CourseID != "":
			lines = append(lines, courseLine{CourseID: c.CourseID})
		default:
			return nil, fmt.Errorf("%w: cart item of type %q has no reference", ErrValidation, c.ItemType)
		}
	}

	res, err := s.buildOrder(ctx, tx, userID, lines, decimal.Zero, shippingAddress, method)
	if err != nil {
		return nil, err
	}
	if err := tx.ClearCart(ctx, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Info("cart checked out",
		zap.String("order_id", res.ID),
		zap.String("user_id", userID),
		zap.String("total", res.Total))
	return res, nil
}

// buildOrder prices each line against the locked catalog rows, writes the
// aggregate, spawns appointments and enrollments, and settles wallet payments.
// The caller owns commit/rollback.
func (s *Service) buildOrder(ctx context.Context, tx Tx, userID string, lines []line, shipping decimal.Decimal, shippingAddress, method string) (*Result, error) {
	o := &order.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Total:           "0",
		Status:          order.StatusPending,
		ShippingAddress: shippingAddress,
	}
	if err := tx.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		lineTotal, err := s.addLine(ctx, tx, o.ID, userID, l)
		if err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(lineTotal)
	}

	total := subtotal.Add(shipping)
	if err := tx.SetOrderTotal(ctx, o.ID, total.StringFixed(2)); err != nil {
		return nil, err
	}

	status := order.StatusPending
	if method == payment.MethodWallet {
		if err := s.settleWallet(ctx, tx, o.ID, userID, total); err != nil {
			return nil, err
		}
		status = order.StatusPaid
	}

	return &Result{ID: o.ID, Total: total.StringFixed(2), Status: status}, nil
}

// addLine resolves pricing for one line, writes its snapshot, and runs the
// kind-specific side effects. It returns the line's contribution to the
// order subtotal.
func (s *Service) addLine(ctx context.Context, tx Tx, orderID, userID string, l line) (decimal.Decimal, error) {
	switch v := l.(type) {
	case productLine:
		p, err := tx.ProductForUpdate(ctx, v.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return decimal.Zero, fmt.Errorf("%w: product %s", ErrNotFound, v.ProductID)
			}
			return decimal.Zero, err
		}
		if p.State != "published" {
			return decimal.Zero, fmt.Errorf("%w: product %s", ErrNotAvailable, p.Name)
		}
		if p.Stock < v.Qty {
			return decimal.Zero, fmt.Errorf("%w: %s (requested %d, available %d)",
				ErrInsufficientStock, p.Name, v.Qty, p.Stock)
		}
		if err := tx.DecrementStock(ctx, p.ID, v.Qty); err != nil {
			return decimal.Zero, err
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("product %s has malformed price %q: %w", p.ID, p.Price, err)
		}
		pid := p.ID
		if err := tx.AddLine(ctx, &order.Line{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: &pid,
			Name:      p.Name,
			UnitPrice: price.StringFixed(2),
			Quantity:  v.Qty,
		}); err != nil {
			return decimal.Zero, err
		}
		return price.Mul(decimal.NewFromInt(int64(v.Qty))), nil

	case courseLine:
		c, err := tx.Course(ctx, v.CourseID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return decimal.Zero, fmt.Errorf("%w: course %s", ErrNotFound, v.CourseID)
			}
			return decimal.Zero, err
		}
		if c.State != "published" {
			return decimal.Zero, fmt.Errorf("%w: course %s", ErrNotAvailable, c.Title)
		}
		price, err := decimal.NewFromString(c.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("course %s has malformed price %q: %w", c.ID, c.Price, err)
		}
		cid := c.ID
		if err := tx.AddLine(ctx, &order.Line{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			CourseID:  &cid,
			Name:      c.Title,
			UnitPrice: price.StringFixed(2),
			Quantity:  1,
		}); err != nil {
			return decimal.Zero, err
		}
		if err := tx.UpsertEnrollment(ctx, &course.Enrollment{
			ID:            uuid.NewString(),
			UserID:        userID,
			CourseID:      c.ID,
			TitleSnapshot: c.Title,
			PriceSnapshot: price.StringFixed(2),
		}); err != nil {
			return decimal.Zero, err
		}
		return price, nil

	case serviceLine:
		if err := tx.AddLine(ctx, &order.Line{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			Name:      v.Name,
			UnitPrice: v.Price.StringFixed(2),
			Quantity:  v.Qty,
		}); err != nil {
			return decimal.Zero, err
		}
		if err := s.spawnAppointments(ctx, tx, orderID, userID, v.Detail); err != nil {
			return decimal.Zero, err
		}
		return v.Price.Mul(decimal.NewFromInt(int64(v.Qty))), nil
	}
	return decimal.Zero, fmt.Errorf("unhandled line type %T", l)
}

// spawnAppointments creates one confirmed appointment per pet in the detail.
// Pets without an id were already rejected at parse time unless at least one
// valid pet remains.
func (s *Service) spawnAppointments(ctx context.Context, tx Tx, orderID, userID string, det ServiceDetail) error {
	comments := det.Comments
	var addrRef *string
	var lat, lng *float64
	if det.Address != nil {
		if det.Address.Reference != "" {
			ref := det.Address.Reference
			addrRef = &ref
			if comments != "" {
				comments += " | Direccion: " + ref
			} else {
				comments = "Direccion: " + ref
			}
		}
		lat, lng = det.Address.Lat, det.Address.Lng
	}

	oid := orderID
	for _, pet := range det.Pets {
		if pet.ID == "" {
			continue
		}
		petID := pet.ID
		a := &booking.Appointment{
			ID:         uuid.NewString(),
			UserID:     userID,
			PetID:      &petID,
			ServiceID:  det.ServiceID,
			Modality:   booking.NormalizeModality(det.Modality),
			Status:     booking.StatusConfirmed,
			Date:       det.Date,
			Time:       det.Time,
			Comments:   comments,
			OrderID:    &oid,
			AddressRef: addrRef,
			Lat:        lat,
			Lng:        lng,
		}
		if err := tx.CreateAppointment(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// settleWallet debits the user's balance under a row lock and records the
// payment. Balance and stock locks live in the same transaction, so a failed
// debit also rolls back the stock decrement.
func (s *Service) settleWallet(ctx context.Context, tx Tx, orderID, userID string, total decimal.Decimal) error {
	raw, err := tx.BalanceForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("user %s has malformed balance %q: %w", userID, raw, err)
	}
	if balance.LessThan(total) {
		return fmt.Errorf("%w: balance %s, total %s",
			ErrInsufficientBalance, balance.StringFixed(2), total.StringFixed(2))
	}
	if err := tx.DebitBalance(ctx, userID, total.StringFixed(2)); err != nil {
		return err
	}
	paidAt := s.now()
	if err := tx.CreatePayment(ctx, &payment.Payment{
		ID:      uuid.NewString(),
		OrderID: orderID,
		Amount:  total.StringFixed(2),
		Method:  payment.MethodWallet,
		Status:  payment.StatusPaid,
		PaidAt:  &paidAt,
	}); err != nil {
		return err
	}
	ok, err := tx.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %s was not pending at wallet settlement", orderID)
	}
	return nil
}

// ConfirmCommand is what a gateway webhook resolves to.
type ConfirmCommand struct {
	OrderID     string
	Method      string
	Amount      string
	ExternalRef string
}

// ConfirmPayment settles an order from a gateway confirmation. It is
// idempotent: replays and duplicate webhooks return applied=false and change
// nothing. Enrollments for course lines are (re)applied on first confirmation.
func (s *Service) ConfirmPayment(ctx context.Context, cmd ConfirmCommand) (bool, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	o, err := tx.OrderByID(ctx, cmd.OrderID)
	if err != nil {
		return false, err
	}

	applied, err := tx.MarkOrderPaid(ctx, cmd.OrderID)
	if err != nil {
		return false, err
	}
	if !applied {
		// Already paid (or failed): nothing left to do, but a replayed
		// webhook is still a success from the gateway's point of view.
		return false, tx.Commit(ctx)
	}

	paidAt := s.now()
	updated := false
	if cmd.ExternalRef != "" {
		updated, err = tx.MarkPaymentPaid(ctx, cmd.ExternalRef, paidAt)
		if err != nil {
			return false, err
		}
	}
	if !updated {
		amount := cmd.Amount
		if amount == "" {
			amount = o.Total
		}
		if err := tx.CreatePayment(ctx, &payment.Payment{
			ID:          uuid.NewString(),
			OrderID:     cmd.OrderID,
			Amount:      amount,
			Method:      cmd.Method,
			Status:      payment.StatusPaid,
			ExternalRef: cmd.ExternalRef,
			PaidAt:      &paidAt,
		}); err != nil {
			return false, err
		}
	}

	courseLines, err := tx.CourseLines(ctx, cmd.OrderID)
	if err != nil {
		return false, err
	}
	for _, l := range courseLines {
		if l.CourseID == nil {
			continue
		}
		if err := tx.UpsertEnrollment(ctx, &course.Enrollment{
			ID:            uuid.NewString(),
			UserID:        o.UserID,
			CourseID:      *l.CourseID,
			TitleSnapshot: l.Name,
			PriceSnapshot: l.UnitPrice,
		}); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	s.log.Info("payment confirmed",
		zap.String("order_id", cmd.OrderID),
		zap.String("method", cmd.Method),
		zap.String("external_ref", cmd.ExternalRef))
	return true, nil
}

// FailPayment marks the payment row behind an external reference as failed.
// Paid rows are never downgraded.
func (s *Service) FailPayment(ctx context.Context, externalRef string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.MarkPaymentFailed(ctx, externalRef); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("payment failed", zap.String("external_ref", externalRef))
	return nil
}

// parseAmount converts a wire money value into a decimal. json.Number keeps
// the client's digits intact so "40.00" never becomes 39.999999.
func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
