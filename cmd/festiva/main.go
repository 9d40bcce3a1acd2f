package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pal-lokesh/festiva-commerce/internal/session"
	"github.com/pal-lokesh/festiva-commerce/pkg/config"
	"github.com/pal-lokesh/festiva-commerce/pkg/logger"
	"github.com/pal-lokesh/festiva-commerce/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "festiva-commerce"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "festiva-commerce",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	userID, err := uuid.Parse(os.Getenv("FESTIVA_USER_ID"))
	if err != nil {
		logg.Error(context.Background(), "FESTIVA_USER_ID must be a valid uuid", err)
		os.Exit(1)
	}
	token := os.Getenv("FESTIVA_API_TOKEN")

	collector := metrics.NewClientMetrics(prometheus.DefaultRegisterer)

	sess, err := session.New(session.Params{
		Config:  cfg,
		Logger:  logg,
		Metrics: collector,
		UserID:  userID,
		Token:   token,
		OnInvalidate: func() {
			logg.Warn(context.Background(), "session ended")
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session", err)
		os.Exit(1)
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"user_id": userID.String(),
	})

	if expiry, err := sess.TokenExpiry(); err == nil {
		ctx = logg.WithField(ctx, "token_expires_at", expiry)
	}
	logg.Info(ctx, "starting commerce session")

	sess.Start(ctx)

	<-ctx.Done()
	logg.Info(ctx, "commerce session shutting down gracefully")
}
