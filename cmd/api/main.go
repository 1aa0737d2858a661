package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop/internal/config"
	"shop/internal/gateway/vnpay"
	"shop/internal/handler"
	"shop/internal/infra/db"
	"shop/internal/infra/logger"
	infraRepo "shop/internal/infra/repository"
	"shop/internal/infra/tracing"
	"shop/internal/server"
	"shop/internal/usecase"

	"go.uber.org/zap"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	//トレース（OTEL_TRACES_EXPORTER=noneならno-op）
	shutdownTracing, err := tracing.Setup(cfg.Tracing, os.Stderr)
	if err != nil {
		zl.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			zl.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	//DB接続
	gormDB, err := db.Connect(cfg, zl)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		zl.Fatal("db migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）はTx単位で作られる
	txm := infraRepo.NewTxManagerGorm(gormDB)
	clock := &realClock{}

	gw := vnpay.New(vnpay.Config{
		TmnCode:    cfg.VNPay.TmnCode,
		HashSecret: cfg.VNPay.HashSecret,
		BaseURL:    cfg.VNPay.BaseURL,
		ReturnURL:  cfg.VNPay.ReturnURL,
	})

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txm, zl.Named("cart"))
	cartItemUC := usecase.NewCartItemUsecase(txm, zl.Named("cart_item"))
	orderUC := usecase.NewOrderUsecase(txm, clock, zl.Named("order"))
	paymentUC := usecase.NewPaymentUsecase(txm, gw, clock, cfg.Payment.Expiry, zl.Named("payment"))

	//Handler生成
	e := server.New(cfg, zl, server.Handlers{
		Carts:     handler.NewCartHandler(cartUC),
		CartItems: handler.NewCartItemHandler(cartItemUC),
		Orders:    handler.NewOrderHandler(orderUC),
		Payments:  handler.NewPaymentHandler(paymentUC, orderUC, cfg.Payment.SuccessURL, cfg.Payment.FailURL, zl.Named("payment_http")),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, e, cfg.Addr(), zl); err != nil {
		zl.Fatal("http server failed", zap.Error(err))
	}
	zl.Info("http server stopped")
}
