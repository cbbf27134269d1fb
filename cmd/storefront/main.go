package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"NetShop/internal/backend"
	"NetShop/internal/cart"
	"NetShop/internal/catalog"
	"NetShop/internal/config"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
	"NetShop/internal/session"
	"NetShop/internal/storefront"
	"NetShop/pkg/kit"
)

const (
	service       = "storefront"
	sweepInterval = time.Second
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.App.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.App.IsProd() && cfg.Metrics.Enabled && cfg.Metrics.Token == "" {
		log.Warn("metrics enabled without NETSHOP_METRICS_TOKEN; /metrics will reject every scrape")
	}
	if cfg.App.IsProd() && cfg.Store.Driver == kvstore.DriverMemory {
		log.Warn("memory store in prod; carts and orders are lost on restart")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()

	kv, err := kvstore.Open(ctx, cfg.Store.KV())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { err = multierr.Append(err, kv.Close()) }()
	log.Info("store opened", zap.String("driver", cfg.Store.Driver))

	store := kvstore.New(kv, kvstore.Options{
		Prefix:   cfg.Store.KeyPrefix,
		Notifier: notify.Log{L: log},
		Log:      log,
		Metrics:  kvstore.NewMetrics(reg),
	})

	var api *backend.Client
	var src catalog.Source
	if cfg.Backend.URL != "" {
		api = backend.New(cfg.Backend.URL, cfg.Backend.Timeout)
		src = api
	}

	shop := store.Scope("shop")
	cat := catalog.NewManager(shop, catalog.Options{
		Images: catalog.NewKVImages(shop),
		Source: src,
		Log:    log,
	})
	if !cat.Init(ctx) {
		log.Warn("catalog could not be seeded")
	}

	feed := notify.NewFeed(cfg.Notify.ToastTTL)
	go feed.Run(ctx, sweepInterval)

	h, err := storefront.NewHandler(
		storefront.Deps{
			Store:           store,
			Catalog:         cat,
			Tokens:          session.NewTokenMaker(cfg.Session.JWTSecret, cfg.Session.TTL),
			Locks:           session.NewLocks(),
			Feed:            feed,
			Backend:         api,
			CartMetrics:     cart.NewMetrics(reg),
			DeliveryFee:     cfg.Checkout.DeliveryFee,
			ProcessingDelay: cfg.Checkout.ProcessingDelay,
		},
		storefront.HTTPDeps{
			Log:            log,
			Service:        service,
			Registry:       reg,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsToken:   cfg.Metrics.Token,
		},
	)
	if err != nil {
		return fmt.Errorf("init handler: %w", err)
	}

	return kit.RunHTTPServer(ctx, ":"+cfg.App.Port, h, log)
}
