package main

import (
	"context"
	"time"

	"goodstay/internal/config"
	"goodstay/internal/domain/model"
	"goodstay/internal/handler"
	"goodstay/internal/infra/db"
	infraRepo "goodstay/internal/infra/repository"
	"goodstay/internal/payment"
	"goodstay/internal/server"
	"goodstay/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無ければ環境変数だけで動かす
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.Booking{},
		&model.AdminUser{},
		&model.AuditLog{},
	); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	bookingRepo := infraRepo.NewBookingGormRepository(gormDB)
	adminRepo := infraRepo.NewAdminUserGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	clock := &realClock{}

	//Stripe
	stripeClient := payment.NewStripeClient(cfg.Stripe, logger)

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(stripeClient, logger)
	reconcileUC := usecase.NewReconcileUsecase(stripeClient, txManager, logger)
	bookingUC := usecase.NewBookingUsecase(bookingRepo, cfg.Booking, clock, logger)
	productUC := usecase.NewProductUsecase(productRepo, auditRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager)
	adminBookingUC := usecase.NewAdminBookingUsecase(txManager)
	authUC := usecase.NewAuthUsecase(adminRepo, cfg.JWTSecret, clock, logger)

	//管理者アカウントのseed
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := authUC.EnsureAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Fatal("admin seed failed", zap.Error(err))
		}
	}

	//Handler生成
	h := server.Handlers{
		Product:      handler.NewProductHandler(productUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC, reconcileUC),
		Webhook:      handler.NewWebhookHandler(reconcileUC),
		Booking:      handler.NewBookingHandler(bookingUC),
		Auth:         handler.NewAuthHandler(authUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminBooking: handler.NewAdminBookingHandler(adminBookingUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
	}

	e := server.New(cfg, logger, h)

	//Server起動
	addr := ":" + cfg.Port
	logger.Info("starting server", zap.String("addr", addr))
	if err := server.Start(e, addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
