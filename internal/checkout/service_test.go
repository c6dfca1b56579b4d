package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

func newTestService(store *memStore) *Service {
	return NewService(store, zap.NewNop())
}

func seedProduct(s *memStore, id, price string, stock int, state string) {
	s.state.products[id] = LockedProduct{ID: id, Name: "Prod " + id, Price: price, State: state, Stock: stock}
}

func seedCourse(s *memStore, id, price, state string) {
	s.state.courses[id] = CourseInfo{ID: id, Title: "Course " + id, Price: price, State: state}
}

func productItem(id string, qty int) ItemInput {
	return ItemInput{Tipo: "producto", ID: id, Qty: qty}
}

func serviceItem(price string, qty int, det *ServiceDetail) ItemInput {
	return ItemInput{Tipo: "servicio", Name: "Baño y corte", Price: json.Number(price), Qty: qty, ServiceDetail: det}
}

func TestCreateOrderPricesProductsServerSide(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "20.00", 5, "published")
	svc := newTestService(store)

	res, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items: []ItemInput{
			// The client claims a bogus price; it must be ignored.
			{Tipo: "producto", ID: "p1", Qty: 2, Price: json.Number("0.01")},
		},
		PaymentMethod: "efectivo",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.Total != "40.00" {
		t.Fatalf("total = %s, want 40.00", res.Total)
	}
	if res.Status != order.StatusPending {
		t.Fatalf("status = %s, want pending", res.Status)
	}
	if got := store.state.products["p1"].Stock; got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
	lines := store.state.lines[res.ID]
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if lines[0].UnitPrice != "20.00" || lines[0].Quantity != 2 {
		t.Fatalf("snapshot = %s x%d, want 20.00 x2", lines[0].UnitPrice, lines[0].Quantity)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "20.00", 1, "published")
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items: []ItemInput{productItem("p1", 2)},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if !strings.Contains(err.Error(), "requested 2") || !strings.Contains(err.Error(), "available 1") {
		t.Fatalf("error gives no figures: %v", err)
	}
	if got := store.state.products["p1"].Stock; got != 1 {
		t.Fatalf("stock mutated to %d on failed order", got)
	}
	if len(store.state.orders) != 0 {
		t.Fatalf("order row survived a failed checkout")
	}
}

func TestCreateOrderDraftProductRejected(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "20.00", 5, "draft")
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items: []ItemInput{productItem("p1", 1)},
	})
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("err = %v, want ErrNotAvailable", err)
	}
}

func TestCreateOrderRollsBackEarlierLines(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "10.00", 5, "published")
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items: []ItemInput{productItem("p1", 2), productItem("missing", 1)},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// The first line's decrement must not survive.
	if got := store.state.products["p1"].Stock; got != 5 {
		t.Fatalf("stock = %d after rollback, want 5", got)
	}
	if len(store.state.orders) != 0 || len(store.state.lines) != 0 {
		t.Fatalf("partial order state survived rollback")
	}
}

func TestCreateOrderNegativeShipping(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "10.00", 5, "published")
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items:    []ItemInput{productItem("p1", 1)},
		Shipping: json.Number("-5"),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateOrderEmptyItems(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestWalletSettlesAtomically(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "20.00", 5, "published")
	store.state.balances["u1"] = "100.00"
	svc := newTestService(store)

	res, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items:         []ItemInput{productItem("p1", 2)},
		PaymentMethod: "saldo",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.Status != order.StatusPaid {
		t.Fatalf("status = %s, want paid", res.Status)
	}
	if got := store.state.balances["u1"]; got != "60.00" {
		t.Fatalf("balance = %s, want 60.00", got)
	}
	if len(store.state.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(store.state.payments))
	}
	p := store.state.payments[0]
	if p.Method != payment.MethodWallet || p.Status != payment.StatusPaid || p.Amount != "40.00" {
		t.Fatalf("payment = %+v", p)
	}
}

func TestWalletInsufficientBalance(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "20.00", 5, "published")
	store.state.balances["u1"] = "30.00"
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items:         []ItemInput{productItem("p1", 2)},
		PaymentMethod: "saldo",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if !strings.Contains(err.Error(), "30.00") || !strings.Contains(err.Error(), "40.00") {
		t.Fatalf("error gives no figures: %v", err)
	}
	// Failed settlement rolls back the whole order, stock included.
	if got := store.state.products["p1"].Stock; got != 5 {
		t.Fatalf("stock = %d after failed settlement, want 5", got)
	}
	if got := store.state.balances["u1"]; got != "30.00" {
		t.Fatalf("balance = %s after failed settlement, want 30.00", got)
	}
	if len(store.state.orders) != 0 {
		t.Fatalf("order row survived failed settlement")
	}
}

func TestServiceLineSpawnsOneAppointmentPerPet(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	det := &ServiceDetail{
		ServiceID: "s1",
		Modality:  "domicilio",
		Date:      "2026-09-10",
		Time:      "10:00",
		Comments:  "perro nervioso",
		Address:   &AddressInput{Reference: "Av. Ballivian 123"},
		Pets:      []PetInput{{ID: "pet1", Name: "Rocky"}, {ID: "pet2", Name: "Luna"}},
	}
	res, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items: []ItemInput{serviceItem("80.00", 2, det)},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.Total != "160.00" {
		t.Fatalf("total = %s, want 160.00", res.Total)
	}
	if len(store.state.appts) != 2 {
		t.Fatalf("appointments = %d, want 2", len(store.state.appts))
	}
	for _, a := range store.state.appts {
		if a.Status != "confirmed" {
			t.Fatalf("appointment status = %s, want confirmed", a.Status)
		}
		if a.OrderID == nil || *a.OrderID != res.ID {
			t.Fatalf("appointment not tied to order %s", res.ID)
		}
		if a.Modality != "home-visit" {
			t.Fatalf("modality = %s, want home-visit", a.Modality)
		}
		if !strings.Contains(a.Comments, "Direccion: Av. Ballivian 123") {
			t.Fatalf("comments missing address: %q", a.Comments)
		}
	}
}

func TestServiceLineWithoutDetailFailsOrder(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "10.00", 5, "published")
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items: []ItemInput{
			productItem("p1", 1),
			serviceItem("50.00", 1, nil),
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if got := store.state.products["p1"].Stock; got != 5 {
		t.Fatalf("stock = %d, want 5 (nothing committed)", got)
	}
}

func TestAppointmentInsertFailureRollsBackOrder(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "10.00", 5, "published")
	store.failOn["CreateAppointment"] = errors.New("insert failed")
	svc := newTestService(store)

	det := &ServiceDetail{
		ServiceID: "s1", Date: "2026-09-10", Time: "10:00",
		Pets: []PetInput{{ID: "pet1"}},
	}
	_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
		Items: []ItemInput{productItem("p1", 2), serviceItem("50.00", 1, det)},
	})
	if err == nil {
		t.Fatalf("expected error from appointment insert")
	}
	if got := store.state.products["p1"].Stock; got != 5 {
		t.Fatalf("stock = %d after rollback, want 5", got)
	}
	if len(store.state.orders) != 0 || len(store.state.appts) != 0 {
		t.Fatalf("partial state survived rollback")
	}
}

func TestCourseLineEnrollsIdempotently(t *testing.T) {
	store := newMemStore()
	seedCourse(store, "c1", "150.00", "published")
	svc := newTestService(store)

	ctx := context.Background()
	if _, err := svc.CreateOrder(ctx, "u1", OrderRequest{
		Items: []ItemInput{{Tipo: "curso", ID: "c1"}},
	}); err != nil {
		t.Fatalf("first order: %v", err)
	}
	firstID := store.state.enrolls["u1|c1"].ID

	// Buying the same course again keeps the original enrollment.
	if _, err := svc.CreateOrder(ctx, "u1", OrderRequest{
		Items: []ItemInput{{Tipo: "curso", ID: "c1"}},
	}); err != nil {
		t.Fatalf("second order: %v", err)
	}
	if len(store.state.enrolls) != 1 {
		t.Fatalf("enrollments = %d, want 1", len(store.state.enrolls))
	}
	if store.state.enrolls["u1|c1"].ID != firstID {
		t.Fatalf("enrollment was replaced")
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "10.00", 5, "published")
	svc := newTestService(store)

	const buyers = 10
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), fmt.Sprintf("u%d", n), OrderRequest{
				Items: []ItemInput{productItem("p1", 1)},
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	ok, soldOut := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 5 || soldOut != 5 {
		t.Fatalf("ok=%d soldOut=%d, want 5/5", ok, soldOut)
	}
	if got := store.state.products["p1"].Stock; got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestConcurrentWalletNeverOverdraws(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "30.00", 100, "published")
	store.state.balances["u1"] = "50.00"
	svc := newTestService(store)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), "u1", OrderRequest{
				Items:         []ItemInput{productItem("p1", 1)},
				PaymentMethod: "saldo",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok, broke := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientBalance):
			broke++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || broke != 1 {
		t.Fatalf("ok=%d broke=%d, want 1/1", ok, broke)
	}
	if got := store.state.balances["u1"]; got != "20.00" {
		t.Fatalf("balance = %s, want 20.00", got)
	}
}

func TestCheckoutFromCart(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "15.00", 10, "published")
	seedCourse(store, "c1", "100.00", "published")
	store.state.carts["u1"] = []CartLine{
		{ItemType: "producto", ProductID: "p1", Quantity: 2},
		{ItemType: "curso", CourseID: "c1", Quantity: 1},
	}
	svc := newTestService(store)

	res, err := svc.CheckoutFromCart(context.Background(), "u1", "Calle Falsa 123", "efectivo")
	if err != nil {
		t.Fatalf("CheckoutFromCart: %v", err)
	}
	if res.Total != "130.00" {
		t.Fatalf("total = %s, want 130.00", res.Total)
	}
	if len(store.state.carts["u1"]) != 0 {
		t.Fatalf("cart not cleared")
	}
	if got := store.state.products["p1"].Stock; got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}
	if _, enrolled := store.state.enrolls["u1|c1"]; !enrolled {
		t.Fatalf("course in cart did not enroll")
	}
}

func TestCheckoutFromCartEmpty(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.CheckoutFromCart(context.Background(), "u1", "", "cash")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCheckoutFromCartKeepsCartOnFailure(t *testing.T) {
	store := newMemStore()
	seedProduct(store, "p1", "15.00", 1, "published")
	store.state.carts["u1"] = []CartLine{{ItemType: "producto", ProductID: "p1", Quantity: 3}}
	svc := newTestService(store)

	_, err := svc.CheckoutFromCart(context.Background(), "u1", "", "cash")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if len(store.state.carts["u1"]) != 1 {
		t.Fatalf("cart was cleared on a failed checkout")
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	store := newMemStore()
	cid := "c1"
	store.state.orders["o1"] = order.Order{ID: "o1", UserID: "u1", Total: "150.00", Status: order.StatusPending}
	store.state.lines["o1"] = []order.Line{{ID: "l1", OrderID: "o1", CourseID: &cid, Name: "Obediencia básica", UnitPrice: "150.00", Quantity: 1}}
	store.state.payments = []payment.Payment{{
		ID: "pay1", OrderID: "o1", Amount: "150.00",
		Method: payment.MethodQR, Status: payment.StatusPending, ExternalRef: "QR-o1-123",
	}}
	svc := newTestService(store)
	cmd := ConfirmCommand{OrderID: "o1", Method: payment.MethodQR, Amount: "150.00", ExternalRef: "QR-o1-123"}

	applied, err := svc.ConfirmPayment(context.Background(), cmd)
	if err != nil || !applied {
		t.Fatalf("first confirm: applied=%v err=%v", applied, err)
	}
	if store.state.orders["o1"].Status != order.StatusPaid {
		t.Fatalf("order not paid")
	}
	if store.state.payments[0].Status != payment.StatusPaid {
		t.Fatalf("payment not paid")
	}
	if _, enrolled := store.state.enrolls["u1|c1"]; !enrolled {
		t.Fatalf("enrollment not created on confirmation")
	}

	// Replayed webhook: applied=false, nothing changes, no duplicate rows.
	applied, err = svc.ConfirmPayment(context.Background(), cmd)
	if err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if applied {
		t.Fatalf("replay reported applied=true")
	}
	if len(store.state.payments) != 1 || len(store.state.enrolls) != 1 {
		t.Fatalf("replay duplicated rows: payments=%d enrolls=%d",
			len(store.state.payments), len(store.state.enrolls))
	}
}

func TestConfirmPaymentWithoutRowCreatesOne(t *testing.T) {
	store := newMemStore()
	store.state.orders["o1"] = order.Order{ID: "o1", UserID: "u1", Total: "50.00", Status: order.StatusPending}
	svc := newTestService(store)

	applied, err := svc.ConfirmPayment(context.Background(), ConfirmCommand{
		OrderID: "o1", Method: payment.MethodCard, ExternalRef: "cs_test_1",
	})
	if err != nil || !applied {
		t.Fatalf("confirm: applied=%v err=%v", applied, err)
	}
	if len(store.state.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(store.state.payments))
	}
	p := store.state.payments[0]
	if p.Amount != "50.00" || p.Status != payment.StatusPaid || p.ExternalRef != "cs_test_1" {
		t.Fatalf("payment = %+v", p)
	}
}

func TestFailPaymentNeverDowngradesPaid(t *testing.T) {
	store := newMemStore()
	store.state.payments = []payment.Payment{{
		ID: "pay1", OrderID: "o1", Amount: "50.00",
		Method: payment.MethodCrypto, Status: payment.StatusPaid, ExternalRef: "CODE1",
	}}
	svc := newTestService(store)

	if err := svc.FailPayment(context.Background(), "CODE1"); err != nil {
		t.Fatalf("FailPayment: %v", err)
	}
	if store.state.payments[0].Status != payment.StatusPaid {
		t.Fatalf("paid payment was downgraded")
	}
}
