package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/checkout"
	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
)

type startPaymentRequest struct {
	Method string `json:"method" example:"qr"`
}

// startPaymentHandler opens a payment attempt for a pending order: a Stripe
// session for card, a bank QR for qr, a Coinbase charge for crypto, and a
// plain pending row for cash.
//
// startPaymentHandler godoc
// @Summary Start a payment for a pending order
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "order id"
// @Param body body startPaymentRequest true "payment method"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /orders/{id}/payments [post]
func startPaymentHandler(
	orders order.Repository,
	payments payment.Repository,
	stripeGW *payment.StripeGateway,
	coinbaseGW *payment.CoinbaseGateway,
	qrGen *payment.QRGenerator,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		method, ok := payment.NormalizeMethod(req.Method)
		if !ok {
			fail(c, http.StatusBadRequest, "unknown payment method")
			return
		}
		if method == payment.MethodWallet {
			fail(c, http.StatusBadRequest, "wallet payments settle at checkout")
			return
		}

		o, ok := payableOrder(c, orders, c.Param("id"))
		if !ok {
			return
		}

		switch method {
		case payment.MethodCard:
			startCardPayment(c, payments, stripeGW, o)
		case payment.MethodQR:
			startQRPayment(c, payments, qrGen, o)
		case payment.MethodCrypto:
			startCryptoPayment(c, payments, coinbaseGW, o)
		default: // cash: pay on delivery / in store
			startCashPayment(c, payments, o)
		}
	}
}

// payableOrder loads the order a payment attempt targets and writes the
// error response itself when the order is missing, foreign or not pending.
func payableOrder(c *gin.Context, orders order.Repository, id string) (*order.Order, bool) {
	o, _, err := orders.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusNotFound, "order not found")
		return nil, false
	}
	if o.UserID != auth.UserID(c) {
		fail(c, http.StatusForbidden, "not your order")
		return nil, false
	}
	if o.Status != order.StatusPending {
		fail(c, http.StatusBadRequest, "order is not pending")
		return nil, false
	}
	return o, true
}

func startCardPayment(c *gin.Context, payments payment.Repository, gw *payment.StripeGateway, o *order.Order) {
	cents, err := amountCents(o.Total)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	sess, err := gw.CreateSession(o.ID, "TalkingPet order "+o.ID, cents, "usd")
	if err != nil {
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			fail(c, http.StatusServiceUnavailable, "card payments are not configured")
			return
		}
		fail(c, http.StatusBadGateway, "card gateway error")
		return
	}
	if err := payments.Create(c.Request.Context(), &payment.Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		Amount:      o.Total,
		Method:      payment.MethodCard,
		Status:      payment.StatusPending,
		ExternalRef: sess.SessionID,
	}); err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"method": payment.MethodCard, "session_id": sess.SessionID, "url": sess.URL})
}

func startQRPayment(c *gin.Context, payments payment.Repository, qrGen *payment.QRGenerator, o *order.Order) {
	ctx := c.Request.Context()
	// Reuse an open QR instead of minting a new reference per click.
	if prev, err := payments.PendingOrPaidByOrder(ctx, o.ID); err == nil && prev.Method == payment.MethodQR {
		if prev.Status == payment.StatusPaid {
			fail(c, http.StatusBadRequest, "order already paid")
			return
		}
		qr, err := qrGen.ForReference(prev.ExternalRef, o.ID, o.Total)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"method": payment.MethodQR, "qr": qr})
		return
	}
	qr, err := qrGen.Generate(o.ID, o.Total, time.Now())
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if err := payments.Create(ctx, &payment.Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		Amount:      o.Total,
		Method:      payment.MethodQR,
		Status:      payment.StatusPending,
		ExternalRef: qr.Reference,
	}); err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"method": payment.MethodQR, "qr": qr})
}

func startCryptoPayment(c *gin.Context, payments payment.Repository, gw *payment.CoinbaseGateway, o *order.Order) {
	ctx := c.Request.Context()
	ch, err := gw.CreateCharge(ctx, o.ID, "TalkingPet order "+o.ID, o.Total, "USD")
	if err != nil {
		if errors.Is(err, payment.ErrGatewayUnavailable) {
			fail(c, http.StatusServiceUnavailable, "crypto payments are not configured")
			return
		}
		fail(c, http.StatusBadGateway, "crypto gateway error")
		return
	}
	if err := payments.Create(ctx, &payment.Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		Amount:      o.Total,
		Method:      payment.MethodCrypto,
		Status:      payment.StatusPending,
		ExternalRef: ch.Code,
	}); err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"method": payment.MethodCrypto, "charge_code": ch.Code, "hosted_url": ch.HostedURL})
}

func startCashPayment(c *gin.Context, payments payment.Repository, o *order.Order) {
	if err := payments.Create(c.Request.Context(), &payment.Payment{
		ID:      uuid.NewString(),
		OrderID: o.ID,
		Amount:  o.Total,
		Method:  payment.MethodCash,
		Status:  payment.StatusPending,
	}); err != nil {
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"method": payment.MethodCash, "status": payment.StatusPending})
}

// paymentOrderRequest is the body of the flat payment-creation paths, which
// name the order in the payload rather than the URL.
type paymentOrderRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// stripeSessionHandler godoc
// @Summary Open a Stripe Checkout session for a pending order
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body paymentOrderRequest true "order to pay"
// @Success 201 {object} map[string]any
// @Failure 503 {object} map[string]string
// @Router /payments/stripe/create-session [post]
func stripeSessionHandler(orders order.Repository, payments payment.Repository, gw *payment.StripeGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		o, ok := payableOrder(c, orders, req.OrderID)
		if !ok {
			return
		}
		startCardPayment(c, payments, gw, o)
	}
}

// qrGenerateHandler godoc
// @Summary Generate a bank QR for a pending order
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body paymentOrderRequest true "order to pay"
// @Success 201 {object} map[string]any
// @Router /payments/qr/generate [post]
func qrGenerateHandler(orders order.Repository, payments payment.Repository, qrGen *payment.QRGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		o, ok := payableOrder(c, orders, req.OrderID)
		if !ok {
			return
		}
		startQRPayment(c, payments, qrGen, o)
	}
}

// cryptoCreateHandler godoc
// @Summary Open a Coinbase Commerce charge for a pending order
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body paymentOrderRequest true "order to pay"
// @Success 201 {object} map[string]any
// @Failure 503 {object} map[string]string
// @Router /payments/crypto/create [post]
func cryptoCreateHandler(orders order.Repository, payments payment.Repository, gw *payment.CoinbaseGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		o, ok := payableOrder(c, orders, req.OrderID)
		if !ok {
			return
		}
		startCryptoPayment(c, payments, gw, o)
	}
}

// qrStatusHandler godoc
// @Summary Poll the latest QR payment of an order
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "order id"
// @Success 200 {object} map[string]string
// @Router /payments/qr/status/{orderId} [get]
func qrStatusHandler(orders order.Repository, payments payment.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, _, err := orders.GetByID(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			fail(c, http.StatusNotFound, "order not found")
			return
		}
		if o.UserID != auth.UserID(c) && auth.Role(c) != auth.RoleAdmin {
			fail(c, http.StatusForbidden, "not your order")
			return
		}
		p, err := payments.LatestByOrder(c.Request.Context(), o.ID, payment.MethodQR)
		if err != nil {
			fail(c, http.StatusNotFound, "no qr payment for order")
			return
		}
		c.JSON(http.StatusOK, gin.H{"referencia": p.ExternalRef, "estado": p.Status, "order_status": o.Status})
	}
}

// cryptoStatusHandler godoc
// @Summary Poll a Coinbase charge by its code
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param chargeId path string true "charge code"
// @Success 200 {object} map[string]string
// @Router /payments/crypto/status/{chargeId} [get]
func cryptoStatusHandler(orders order.Repository, payments payment.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := payments.GetByRef(c.Request.Context(), c.Param("chargeId"))
		if err != nil {
			fail(c, http.StatusNotFound, "unknown charge")
			return
		}
		o, _, err := orders.GetByID(c.Request.Context(), p.OrderID)
		if err != nil {
			fail(c, http.StatusNotFound, "order not found")
			return
		}
		if o.UserID != auth.UserID(c) && auth.Role(c) != auth.RoleAdmin {
			fail(c, http.StatusForbidden, "not your order")
			return
		}
		c.JSON(http.StatusOK, gin.H{"charge_code": p.ExternalRef, "status": p.Status, "order_status": o.Status})
	}
}

// stripeWebhookHandler godoc
// @Summary Stripe webhook receiver
// @Tags webhooks
// @Accept json
// @Success 200
// @Router /payments/stripe/webhook [post]
// @Router /webhooks/stripe [post]
func stripeWebhookHandler(svc *checkout.Service, gw *payment.StripeGateway, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			fail(c, http.StatusBadRequest, "unreadable body")
			return
		}
		event, err := gw.VerifyWebhook(body, c.GetHeader("Stripe-Signature"))
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid signature")
			return
		}

		if event.Type != "checkout.session.completed" {
			c.Status(http.StatusOK)
			return
		}
		var sess struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			fail(c, http.StatusBadRequest, "malformed event")
			return
		}
		orderID := sess.Metadata["order_id"]
		if orderID == "" {
			log.Warn("stripe event without order_id", zap.String("event", event.ID))
			c.Status(http.StatusOK)
			return
		}
		if _, err := svc.ConfirmPayment(c.Request.Context(), checkout.ConfirmCommand{
			OrderID:     orderID,
			Method:      payment.MethodCard,
			ExternalRef: sess.ID,
		}); err != nil {
			fail(c, http.StatusInternalServerError, "confirmation failed")
			return
		}
		c.Status(http.StatusOK)
	}
}

// coinbaseWebhookHandler godoc
// @Summary Coinbase Commerce webhook receiver
// @Tags webhooks
// @Accept json
// @Success 200
// @Router /payments/crypto/webhook [post]
// @Router /webhooks/coinbase [post]
func coinbaseWebhookHandler(svc *checkout.Service, gw *payment.CoinbaseGateway, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			fail(c, http.StatusBadRequest, "unreadable body")
			return
		}
		ev, err := gw.VerifyWebhook(body, c.GetHeader("X-CC-Webhook-Signature"))
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid signature")
			return
		}

		switch ev.Type {
		case payment.CoinbaseEventConfirmed, payment.CoinbaseEventResolved:
			if ev.Charge.OrderID == "" {
				log.Warn("coinbase event without order_id", zap.String("charge", ev.Charge.Code))
				break
			}
			if _, err := svc.ConfirmPayment(c.Request.Context(), checkout.ConfirmCommand{
				OrderID:     ev.Charge.OrderID,
				Method:      payment.MethodCrypto,
				ExternalRef: ev.Charge.Code,
			}); err != nil {
				fail(c, http.StatusInternalServerError, "confirmation failed")
				return
			}
		case payment.CoinbaseEventFailed:
			if err := svc.FailPayment(c.Request.Context(), ev.Charge.Code); err != nil {
				fail(c, http.StatusInternalServerError, "update failed")
				return
			}
		}
		c.Status(http.StatusOK)
	}
}

type qrCallbackRequest struct {
	Referencia string `json:"referencia" binding:"required"`
	Estado     string `json:"estado" binding:"required"` // pagado | fallido
}

// qrWebhookHandler receives the bank transfer confirmation for a QR
// reference.
//
// qrWebhookHandler godoc
// @Summary Bank QR confirmation receiver
// @Tags webhooks
// @Accept json
// @Success 200
// @Router /webhooks/qr [post]
func qrWebhookHandler(svc *checkout.Service, payments payment.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req qrCallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		p, err := payments.GetByRef(c.Request.Context(), req.Referencia)
		if err != nil {
			fail(c, http.StatusNotFound, "unknown reference")
			return
		}
		switch req.Estado {
		case "pagado", "paid":
			if _, err := svc.ConfirmPayment(c.Request.Context(), checkout.ConfirmCommand{
				OrderID:     p.OrderID,
				Method:      payment.MethodQR,
				Amount:      p.Amount,
				ExternalRef: p.ExternalRef,
			}); err != nil {
				fail(c, http.StatusInternalServerError, "confirmation failed")
				return
			}
		case "fallido", "failed":
			if err := svc.FailPayment(c.Request.Context(), p.ExternalRef); err != nil {
				fail(c, http.StatusInternalServerError, "update failed")
				return
			}
		default:
			fail(c, http.StatusBadRequest, "unknown estado")
			return
		}
		c.Status(http.StatusOK)
	}
}

type qrSimulateRequest struct {
	Referencia string `json:"referencia" binding:"required"`
}

// qrSimulateHandler settles a QR reference without the bank callback, for
// environments that have no bank sandbox. Admin only.
//
// qrSimulateHandler godoc
// @Summary Simulate a bank QR confirmation (admin)
// @Tags payments
// @Accept json
// @Security BearerAuth
// @Success 200
// @Router /payments/qr/simulate [post]
func qrSimulateHandler(svc *checkout.Service, payments payment.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req qrSimulateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		p, err := payments.GetByRef(c.Request.Context(), req.Referencia)
		if err != nil {
			fail(c, http.StatusNotFound, "unknown reference")
			return
		}
		applied, err := svc.ConfirmPayment(c.Request.Context(), checkout.ConfirmCommand{
			OrderID:     p.OrderID,
			Method:      payment.MethodQR,
			Amount:      p.Amount,
			ExternalRef: p.ExternalRef,
		})
		if err != nil {
			fail(c, http.StatusInternalServerError, "confirmation failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"applied": applied})
	}
}

// listOrderPaymentsHandler godoc
// @Summary Latest payment attempt of an order
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "order id"
// @Success 200 {object} payment.Payment
// @Router /orders/{id}/payments [get]
func listOrderPaymentsHandler(orders order.Repository, payments payment.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, _, err := orders.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, http.StatusNotFound, "order not found")
			return
		}
		if o.UserID != auth.UserID(c) && auth.Role(c) != auth.RoleAdmin {
			fail(c, http.StatusForbidden, "not your order")
			return
		}
		p, err := payments.LatestByOrder(c.Request.Context(), o.ID, "")
		if err != nil {
			fail(c, http.StatusNotFound, "no payments for order")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// amountCents converts a NUMERIC string total into gateway minor units.
func amountCents(total string) (int64, error) {
	d, err := decimal.NewFromString(total)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
