// Command seed loads demo suppliers, products, supplies and orders into a
// running warehouse service through its HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/utafrali/WarehouseGo/pkg/config"
	"github.com/utafrali/WarehouseGo/pkg/httpclient"
	"github.com/utafrali/WarehouseGo/pkg/logger"
)

// Config is read from the environment.
type Config struct {
	BaseURL    string        `env:"WAREHOUSE_URL" envDefault:"http://localhost:8010"`
	Orders     int           `env:"SEED_ORDERS" envDefault:"25"`
	RandomSeed int64         `env:"SEED_RANDOM_SEED" envDefault:"1"`
	Timeout    time.Duration `env:"SEED_TIMEOUT" envDefault:"2m"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("warehouse-seed", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	api := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("warehouse"),
		log,
	)
	seeder := NewSeeder(api, cfg.BaseURL, cfg.RandomSeed, log)

	if err := seeder.Ready(ctx); err != nil {
		log.Error("warehouse unavailable", slog.String("url", cfg.BaseURL), slog.String("error", err.Error()))
		os.Exit(1)
	}

	sum, err := seeder.Run(ctx, cfg.Orders)
	if err != nil {
		log.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seeding complete",
		slog.Int("suppliers", sum.Suppliers),
		slog.Int("products", sum.Products),
		slog.Int("supplies", sum.Supplies),
		slog.Int("orders", sum.Orders),
		slog.Int("rejected", sum.Rejected),
		slog.Int("cancelled", sum.Cancelled),
		slog.Int("shipped", sum.Shipped),
		slog.Int("delivered", sum.Delivered),
	)
}
