package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"checkout-service/config"
	"checkout-service/internal/cli"
	"checkout-service/internal/database"
	"checkout-service/internal/logger"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	opts := &cli.RootOptions{
		Log: log,
		Open: func() (*gorm.DB, error) {
			cfg := config.Load(log)
			return database.Open(&cfg.DB.Config)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand(opts).ExecuteContext(ctx)
	opts.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
