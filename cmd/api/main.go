package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	_ "github.com/talkingpet/backend/docs"
	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/booking"
	"github.com/talkingpet/backend/internal/cart"
	"github.com/talkingpet/backend/internal/catalog"
	"github.com/talkingpet/backend/internal/checkout"
	"github.com/talkingpet/backend/internal/config"
	"github.com/talkingpet/backend/internal/course"
	"github.com/talkingpet/backend/internal/order"
	"github.com/talkingpet/backend/internal/payment"
	"github.com/talkingpet/backend/internal/scheduler"
	"github.com/talkingpet/backend/internal/user"
)

// @title TalkingPet API
// @version 1.0
// @description Pet shop, veterinary and training backend: catalog, cart,
// @description transactional checkout, appointments, courses and payments.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres pool", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal("postgres ping", zap.Error(err))
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)
	bookings := booking.NewPGRepo(pool)

	a := &app{
		log:      log,
		issuer:   issuer,
		users:    user.NewPGRepo(pool),
		catalog:  catalog.NewPGRepo(pool),
		carts:    cart.NewPGRepo(pool),
		orders:   order.NewPGRepo(pool),
		bookings: bookings,
		courses:  course.NewPGRepo(pool),
		payments: payment.NewPGRepo(pool),
		checkout: checkout.NewService(checkout.NewPGStore(pool), log),
		stripe:   payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.PublicBaseURL),
		coinbase: payment.NewCoinbaseGateway(cfg.CoinbaseAPIKey, cfg.CoinbaseWebhookSecret),
		qr:       &payment.QRGenerator{Merchant: cfg.QRMerchant, Currency: cfg.QRCurrency},
	}

	if cfg.EnableReminders {
		rem := scheduler.NewReminders(bookings, scheduler.LogNotifier{Log: log}, log, cfg.ReminderCron)
		if err := rem.Start(); err != nil {
			log.Fatal("reminder cron", zap.Error(err))
		}
		defer rem.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("api listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}
