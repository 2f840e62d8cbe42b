// Package main запускает HTTP-сервер витрины Edelweiss.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/edelweiss-storefront/internal/config"
	"github.com/mmeshcher/edelweiss-storefront/internal/cooldown"
	"github.com/mmeshcher/edelweiss-storefront/internal/gotrue"
	"github.com/mmeshcher/edelweiss-storefront/internal/handler"
	"github.com/mmeshcher/edelweiss-storefront/internal/middleware"
	"github.com/mmeshcher/edelweiss-storefront/internal/pricing"
	"github.com/mmeshcher/edelweiss-storefront/internal/repository"
	"github.com/mmeshcher/edelweiss-storefront/internal/service"
	"github.com/mmeshcher/edelweiss-storefront/internal/session"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if cfg.AuthServiceURL == "" {
		sugar.Fatal("auth service URL is required")
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cooldowns cooldown.Store = cooldown.NewMemoryStore(nil)
	if cfg.RedisAddress != "" {
		rs := cooldown.NewRedisStore(cfg.RedisAddress, cfg.RedisPassword, 0)
		if err := rs.Ping(ctx); err != nil {
			sugar.Fatalw("redis connection error", "error", err.Error())
		}
		defer rs.Close()
		cooldowns = rs
		sugar.Infow("using shared resend cooldown store", "addr", cfg.RedisAddress)
	}

	svc := service.NewService(service.Deps{
		Repo:      repo,
		Auth:      gotrue.NewClient(cfg.AuthServiceURL, cfg.AuthAPIKey),
		Cooldowns: cooldowns,
		Sessions:  session.NewStore(),
		Fees:      pricing.Fees{Shipping: cfg.ShippingFee, Addon: cfg.AddonFee},
		Logger:    logger,
	})
	defer svc.Close()

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT secret is not set, issued tokens will not be accepted")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, cfg.AuthRateBurst)
	h := handler.NewHandler(svc, logger, authMiddleware, limiter)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая очистка устаревших сценариев, корзин и адресов ограничителя
	g.Go(func() error {
		svc.StartJanitor(ctx, cfg.JanitorInterval, cfg.StateTTL)
		limiter.StartCleanup(ctx, cfg.JanitorInterval, cfg.StateTTL)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
