package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/cart"
	"github.com/talkingpet/backend/internal/catalog"
	"github.com/talkingpet/backend/internal/checkout"
	"github.com/talkingpet/backend/internal/course"
	ord "github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

//
// ---------- STUBS & FAKES ----------
//

type stubCarts struct{}

func (s *stubCarts) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	return &cart.Cart{Items: []cart.Item{}, Total: "0"}, nil
}
func (s *stubCarts) AddProduct(ctx context.Context, userID, productID, price string, qty int) error {
	return nil
}
func (s *stubCarts) AddCourse(ctx context.Context, userID, courseID, price string) error { return nil }
func (s *stubCarts) UpdateQuantity(ctx context.Context, userID, productID string, qty int) error {
	return nil
}
func (s *stubCarts) RemoveItem(ctx context.Context, userID, itemID string) error { return nil }
func (s *stubCarts) Clear(ctx context.Context, userID string) error              { return nil }

type stubCourses struct{}

func (s *stubCourses) Upsert(ctx context.Context, e *course.Enrollment) error { return nil }
func (s *stubCourses) ListByUser(ctx context.Context, userID string) ([]course.Enrollment, error) {
	return []course.Enrollment{}, nil
}

// stubPayments implements payment.Repository in memory.
type stubPayments struct {
	mu   sync.Mutex
	rows []payment.Payment
}

func (s *stubPayments) Create(ctx context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *p)
	return nil
}

func (s *stubPayments) LatestByOrder(ctx context.Context, orderID, method string) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rows) - 1; i >= 0; i-- {
		p := s.rows[i]
		if p.OrderID == orderID && (method == "" || p.Method == method) {
			return &p, nil
		}
	}
	return nil, payment.ErrNotFound
}

func (s *stubPayments) PendingOrPaidByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rows) - 1; i >= 0; i-- {
		p := s.rows[i]
		if p.OrderID == orderID && (p.Status == payment.StatusPending || p.Status == payment.StatusPaid) {
			return &p, nil
		}
	}
	return nil, payment.ErrNotFound
}

func (s *stubPayments) GetByRef(ctx context.Context, externalRef string) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].ExternalRef == externalRef {
			p := s.rows[i]
			return &p, nil
		}
	}
	return nil, payment.ErrNotFound
}

// newTestApp wires the full route table over stubs. Gateways stay
// unconfigured unless a test swaps them out.
func newTestApp(t *testing.T) *app {
	t.Helper()
	return &app{
		log:      zap.NewNop(),
		issuer:   testIssuer(),
		users:    newStubUserRepo(),
		catalog:  newStubCatalog(),
		carts:    &stubCarts{},
		orders:   &stubOrders{},
		bookings: newStubBookings(),
		courses:  &stubCourses{},
		payments: &stubPayments{},
		checkout: checkout.NewService(newHandlerStore(), zap.NewNop()),
		stripe:   payment.NewStripeGateway("", "", ""),
		coinbase: payment.NewCoinbaseGateway("", ""),
		qr:       &payment.QRGenerator{Merchant: "TalkingPet", Currency: "USD"},
	}
}

//
// ---------- TESTS ----------
//

// The mobile and web clients address orders and payments through flat paths
// (/orders/mine, /orders/checkout, /orders/admin/summary, /payments/...).
// Every one of them must resolve on the full route table.
func TestRouterServesFlatClientPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestApp(t)
	a.orders = &stubOrders{order: &ord.Order{ID: "o1", UserID: "u1", Total: "25.00", Status: ord.StatusPending}}
	pays := &stubPayments{}
	a.payments = pays
	r := a.router()

	cust := bearer(t, a.issuer, "u1", auth.RoleCustomer)
	admin := bearer(t, a.issuer, "boss", auth.RoleAdmin)

	// GET /orders/mine lists the caller's orders.
	w := doJSON(t, r, http.MethodGet, "/orders/mine", cust, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /orders/mine = %d, body %s", w.Code, w.Body.String())
	}
	var mine []ord.Order
	if err := json.Unmarshal(w.Body.Bytes(), &mine); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "o1" {
		t.Fatalf("mine = %+v", mine)
	}

	// POST /orders/checkout reaches the cart checkout, which rejects the
	// empty cart with a 400 rather than a routing 404.
	w = doJSON(t, r, http.MethodPost, "/orders/checkout", cust, gin.H{"paymentMethod": "cash"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("POST /orders/checkout = %d, body %s", w.Code, w.Body.String())
	}

	// GET /orders/admin/summary is admin only.
	w = doJSON(t, r, http.MethodGet, "/orders/admin/summary", cust, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("summary as customer = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/orders/admin/summary", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary as admin = %d, body %s", w.Code, w.Body.String())
	}

	// Unconfigured gateways answer 503, not 404.
	w = doJSON(t, r, http.MethodPost, "/payments/stripe/create-session", cust, gin.H{"orderId": "o1"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("POST /payments/stripe/create-session = %d, body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/payments/crypto/create", cust, gin.H{"orderId": "o1"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("POST /payments/crypto/create = %d, body %s", w.Code, w.Body.String())
	}

	// QR generation and the follow-up status poll.
	w = doJSON(t, r, http.MethodPost, "/payments/qr/generate", cust, gin.H{"orderId": "o1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /payments/qr/generate = %d, body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/payments/qr/status/o1", cust, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /payments/qr/status/o1 = %d, body %s", w.Code, w.Body.String())
	}
	var qrStatus map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &qrStatus); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if qrStatus["estado"] != payment.StatusPending || !strings.HasPrefix(qrStatus["referencia"], "QR-o1-") {
		t.Fatalf("qr status = %+v", qrStatus)
	}

	// Crypto status is keyed by charge code, not order id.
	pays.rows = append(pays.rows, payment.Payment{
		ID: "pay-cb", OrderID: "o1", Amount: "25.00",
		Method: payment.MethodCrypto, Status: payment.StatusPending, ExternalRef: "CB-CODE",
	})
	w = doJSON(t, r, http.MethodGet, "/payments/crypto/status/CB-CODE", cust, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /payments/crypto/status/CB-CODE = %d, body %s", w.Code, w.Body.String())
	}
	var cbStatus map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &cbStatus); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cbStatus["charge_code"] != "CB-CODE" || cbStatus["status"] != payment.StatusPending {
		t.Fatalf("crypto status = %+v", cbStatus)
	}
	w = doJSON(t, r, http.MethodGet, "/payments/crypto/status/CB-CODE", bearer(t, a.issuer, "intruder", auth.RoleCustomer), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("crypto status as intruder = %d", w.Code)
	}

	// PATCH /bookings/:id/status works like /appointments/:id/status.
	sb := a.bookings.(*stubBookings)
	sb.byID["a1"] = &booking.Appointment{ID: "a1", Status: booking.StatusPending}
	vet := bearer(t, a.issuer, "doc", auth.RoleVet)
	w = doJSON(t, r, http.MethodPatch, "/bookings/a1/status", vet, gin.H{"status": booking.StatusConfirmed})
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH /bookings/a1/status = %d, body %s", w.Code, w.Body.String())
	}

	// Webhook receivers answer on the gateway-facing paths too; a bad
	// signature is rejected, not unrouted.
	for _, path := range []string{"/payments/stripe/webhook", "/payments/crypto/webhook"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=bad")
		req.Header.Set("X-CC-Webhook-Signature", "deadbeef")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("POST %s = %d, want 400", path, rec.Code)
		}
	}
}

func TestListProductsShowsDraftsToStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := testIssuer()
	cat := newStubCatalog()
	cat.products["p1"] = catalog.Product{ID: "p1", Name: "Bowl", Price: "10.00", State: catalog.StatePublished}
	cat.products["p2"] = catalog.Product{ID: "p2", Name: "Secret", Price: "10.00", State: catalog.StateDraft}
	r := gin.New()
	r.GET("/products", auth.Optional(issuer), listProductsHandler(cat))

	list := func(token string) []catalog.Product {
		t.Helper()
		w := doJSON(t, r, http.MethodGet, "/products", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var got []catalog.Product
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return got
	}

	if got := list(""); len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("anonymous listing = %+v, want only p1", got)
	}
	if got := list(bearer(t, issuer, "boss", auth.RoleAdmin)); len(got) != 2 {
		t.Fatalf("admin listing = %+v, want drafts too", got)
	}
	// A garbage token degrades to the anonymous view instead of failing.
	if got := list("Bearer not-a-jwt"); len(got) != 1 {
		t.Fatalf("garbage-token listing = %+v, want only p1", got)
	}
}
