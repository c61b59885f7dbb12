package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/internal/app/controller"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/internal/app/service"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/internal/middleware"
	"github.com/madness-store/madness-backend/internal/router"
	"github.com/madness-store/madness-backend/internal/scheduler"
	"github.com/madness-store/madness-backend/internal/storage"
	"github.com/madness-store/madness-backend/internal/websocket"
	"github.com/madness-store/madness-backend/pkg/google"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/madness-store/madness-backend/pkg/mailer"
	appredis "github.com/madness-store/madness-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.ConfigFor(cfg.Server.Environment, cfg.Server.LogLevel))

	logger.Info("Starting MADNESS Backend Server", map[string]interface{}{
		"environment":  cfg.Server.Environment,
		"port":         cfg.Server.Port,
		"pricing_mode": cfg.Checkout.PricingMode,
	})

	// Initialize database
	conn, err := db.Initialize(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Redis holds anonymous carts and the logout blacklist, so it is required.
	rdb, err := appredis.Init(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer func() {
		if err := appredis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// External collaborators
	objectStorage := storage.NewS3Storage(cfg.S3)
	mail := mailer.NewSMTPSender(cfg.SMTP)
	googleVerifier := google.NewVerifier(cfg.Google.ClientID, cfg.Google.TokenInfoURL)
	blacklist := appredis.NewTokenBlacklist(rdb)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub()
	go hub.Run(hubCtx)

	// Initialize repositories
	userRepo := repository.NewUserRepository(conn)
	addressRepo := repository.NewAddressRepository(conn)
	tokenRepo := repository.NewVerifyTokenRepository(conn)
	productRepo := repository.NewProductRepository(conn)
	couponRepo := repository.NewCouponRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)
	reviewRepo := repository.NewReviewRepository(conn)
	userCarts := repository.NewUserCartStore(conn)
	sessionCarts := repository.NewSessionCartStore(rdb, cfg.Session.TTL)

	// Initialize services
	couponService := service.NewCouponService(couponRepo, cfg.Coupon.DefaultValidity)
	cartService := service.NewCartService(userCarts, sessionCarts, productRepo, couponRepo, couponService, objectStorage)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		DB:           conn,
		UserCarts:    userCarts,
		SessionCarts: sessionCarts,
		Users:        userRepo,
		Addresses:    addressRepo,
		Tokens:       tokenRepo,
		Orders:       orderRepo,
		Products:     productRepo,
		Coupons:      couponService,
		Charges:      service.NewChargesPolicy(cfg.Checkout),
		Mailer:       mail,
		FrontendURL:  cfg.Server.FrontendURL,
		Notifier:     hub,
	})
	orderService := service.NewOrderService(conn, orderRepo, productRepo, hub)
	authService := service.NewAuthService(service.AuthDeps{
		DB:            conn,
		Users:         userRepo,
		Tokens:        tokenRepo,
		Google:        googleVerifier,
		Revoker:       blacklist,
		Mailer:        mail,
		FrontendURL:   cfg.Server.FrontendURL,
		JWTSecret:     cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.AccessTokenExpiry,
		RefreshExpiry: cfg.JWT.RefreshTokenExpiry,
	})
	userService := service.NewUserService(userRepo)
	addressService := service.NewAddressService(addressRepo)
	productService := service.NewProductService(productRepo, reviewRepo, orderRepo, objectStorage)
	reviewService := service.NewReviewService(reviewRepo, productRepo, orderRepo)
	adminService := service.NewAdminService(userRepo, orderRepo)

	// Initialize controllers
	controllers := router.Controllers{
		Auth:    controller.NewAuthController(authService, cartService),
		User:    controller.NewUserController(userService),
		Address: controller.NewAddressController(addressService),
		Product: controller.NewProductController(productService),
		Review:  controller.NewReviewController(reviewService),
		Cart:    controller.NewCartController(cartService, checkoutService),
		Order:   controller.NewOrderController(orderService, adminService),
		Coupon:  controller.NewCouponController(couponService),
		Admin:   controller.NewAdminController(adminService),
		Upload:  controller.NewUploadController(objectStorage),
		Feed:    controller.NewFeedController(hub, cfg.CORS.AllowedOrigins),
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist, userRepo)
	engine := router.NewRouter(controllers, authMiddleware, cfg).Setup()

	maintenance := scheduler.NewMaintenanceScheduler(couponService, tokenRepo, cfg.Coupon.SweepSchedule)
	if err := maintenance.Start(); err != nil {
		logger.Fatal("Failed to start maintenance scheduler", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	maintenance.Stop()
	stopHub()

	logger.Info("Server stopped successfully")
}
