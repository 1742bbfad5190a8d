package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/app"
	"github.com/vladislavdragonenkov/urbanfood/internal/version"
)

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения.
	envErr := godotenv.Load()

	app.SetupLogger(os.LookupEnv)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.WithError(envErr).Warn("failed to load .env")
	}

	cfg, warnings := app.ConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.WithField("setting", w).Warn("invalid environment value, using default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"catalog_driver": cfg.CatalogDriver,
		"review_driver":  cfg.ReviewDriver,
		"version":        version.GetVersion(),
	}).Info("запускаем UrbanFood")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("UrbanFood остановлен")
}
