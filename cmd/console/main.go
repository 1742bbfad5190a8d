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
	"github.com/vladislavdragonenkov/urbanfood/internal/console"
)

func main() {
	envErr := godotenv.Load()

	app.SetupLogger(os.LookupEnv)
	// Меню пишет в stdout, поэтому логи по умолчанию только предупреждения.
	if _, ok := os.LookupEnv("URBANFOOD_LOG_LEVEL"); !ok {
		log.SetLevel(log.WarnLevel)
	}
	log.SetOutput(os.Stderr)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.WithError(envErr).Warn("failed to load .env")
	}

	cfg, warnings := app.ConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.WithField("setting", w).Warn("invalid environment value, using default")
	}
	// Консоли не нужны публикация событий и кэш-инвалидатор.
	cfg.KafkaBrokers = nil

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.NewDependencies(ctx, cfg, log.WithField("component", "console"))
	if err != nil {
		log.WithError(err).Fatal("failed to initialize dependencies")
	}
	defer deps.Close()

	session := console.NewSession(deps.Catalog, deps.Orders, deps.Reviews, os.Stdin, os.Stdout, deps.Logger)
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("console session failed")
	}
}
