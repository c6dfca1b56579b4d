package main

import (
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginswagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/cart"
	"github.com/talkingpet/backend/internal/catalog"
	"github.com/talkingpet/backend/internal/checkout"
	"github.com/talkingpet/backend/internal/course"
	"github.com/talkingpet/backend/internal/httpx"
	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
	"github.com/talkingpet/backend/internal/user"
)

// app bundles everything the router mounts.
type app struct {
	log    *zap.Logger
	issuer *auth.TokenIssuer

	users    user.Repository
	catalog  catalog.Repository
	carts    cart.Repository
	orders   order.Repository
	bookings booking.Repository
	courses  course.Repository
	payments payment.Repository

	checkout *checkout.Service

	stripe   *payment.StripeGateway
	coinbase *payment.CoinbaseGateway
	qr       *payment.QRGenerator
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(a.log))

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/swagger/*any", ginswagger.WrapHandler(swaggerfiles.Handler))

	// Public catalog. Optional auth so staff and admins see drafts.
	pub := r.Group("/", auth.Optional(a.issuer))
	{
		pub.GET("products", listProductsHandler(a.catalog))
		pub.GET("products/:id", getProductHandler(a.catalog))
		pub.GET("services", listServicesHandler(a.catalog))
		pub.GET("courses", listCoursesHandler(a.catalog))
		pub.GET("courses/:id", getCourseHandler(a.catalog))
		pub.GET("appointments/availability", availabilityHandler(a.bookings, a.catalog))
	}

	// Auth.
	r.POST("/auth/register", registerHandler(a.users, a.issuer))
	r.POST("/auth/login", loginHandler(a.users, a.issuer))

	// Gateway callbacks authenticate by signature, not by bearer token. Each
	// receiver is mounted on the path the gateway was registered with and
	// under /webhooks/.
	r.POST("/payments/stripe/webhook", stripeWebhookHandler(a.checkout, a.stripe, a.log))
	r.POST("/payments/crypto/webhook", coinbaseWebhookHandler(a.checkout, a.coinbase, a.log))
	r.POST("/webhooks/stripe", stripeWebhookHandler(a.checkout, a.stripe, a.log))
	r.POST("/webhooks/coinbase", coinbaseWebhookHandler(a.checkout, a.coinbase, a.log))
	r.POST("/webhooks/qr", qrWebhookHandler(a.checkout, a.payments))

	// Customer routes. The flat order paths (/orders/mine, /orders/checkout,
	// /orders/admin/summary) dispatch off :id, see handlers_orders.go.
	priv := r.Group("/", auth.Require(a.issuer))
	{
		priv.GET("auth/me", meHandler(a.users))

		priv.GET("cart", getCartHandler(a.carts))
		priv.DELETE("cart", clearCartHandler(a.carts))
		priv.POST("cart/items", addCartItemHandler(a.carts, a.catalog))
		priv.PUT("cart/items/:productId", updateCartItemHandler(a.carts))
		priv.DELETE("cart/items/:itemId", removeCartItemHandler(a.carts))
		priv.POST("cart/checkout", checkoutCartHandler(a.checkout))

		priv.POST("orders", createOrderHandler(a.checkout))
		priv.POST("orders/:id", checkoutPathHandler(a.checkout))
		priv.GET("orders", listMyOrdersHandler(a.orders))
		priv.GET("orders/:id", getOrderOrMineHandler(a.orders))
		priv.GET("orders/:id/summary", adminSummaryPathHandler(a.orders, a.bookings))
		priv.POST("orders/:id/payments", startPaymentHandler(a.orders, a.payments, a.stripe, a.coinbase, a.qr))
		priv.GET("orders/:id/payments", listOrderPaymentsHandler(a.orders, a.payments))

		priv.POST("payments/stripe/create-session", stripeSessionHandler(a.orders, a.payments, a.stripe))
		priv.POST("payments/qr/generate", qrGenerateHandler(a.orders, a.payments, a.qr))
		priv.GET("payments/qr/status/:orderId", qrStatusHandler(a.orders, a.payments))
		priv.POST("payments/crypto/create", cryptoCreateHandler(a.orders, a.payments, a.coinbase))
		priv.GET("payments/crypto/status/:chargeId", cryptoStatusHandler(a.orders, a.payments))

		priv.POST("appointments", createBookingHandler(a.bookings, a.catalog))
		priv.GET("appointments", listMyBookingsHandler(a.bookings))

		priv.GET("enrollments", listEnrollmentsHandler(a.courses))
		priv.POST("courses/:id/enroll", enrollCourseHandler(a.courses, a.catalog))
	}

	// Staff routes. Appointments and bookings are the same resource; both
	// nouns stay routable.
	staff := r.Group("/", auth.Require(a.issuer),
		auth.RequireRole(auth.RoleAdmin, auth.RoleVet, auth.RoleGroomer, auth.RoleTrainer))
	{
		staff.GET("staff/appointments", staffBookingsHandler(a.bookings))
		staff.PATCH("appointments/:id/status", updateBookingStatusHandler(a.bookings))
		staff.PATCH("bookings/:id/status", updateBookingStatusHandler(a.bookings))
	}

	// Admin routes.
	admin := r.Group("/", auth.Require(a.issuer), auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("products", createProductHandler(a.catalog))
		admin.PUT("products/:id", updateProductHandler(a.catalog))
		admin.GET("admin/summary", adminSummaryHandler(a.orders, a.bookings))
		admin.POST("payments/qr/simulate", qrSimulateHandler(a.checkout, a.payments))
	}

	return r
}
