package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"crosslister/internal/config"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/security/secretbox"
	"crosslister/internal/service/auth"
	"crosslister/internal/service/orders"
	storepkg "crosslister/internal/store"
	filestore "crosslister/internal/store/file"
	"crosslister/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var box *secretbox.Box
	if cfg.TokenCryptKey != "" {
		b, err := secretbox.New(cfg.TokenCryptKey)
		if err != nil {
			log.Fatalf("token encryption key: %v", err)
		}
		box = b
	}
	var st storepkg.Store
	if cfg.StoreMode == "postgres" && cfg.DatabaseURL != "" {
		pgStore, err := postgres.NewStore(cfg.DatabaseURL, box)
		if err != nil {
			log.Fatalf("open postgres store: %v", err)
		}
		st = pgStore
	} else {
		fileStore, err := filestore.NewStore(cfg.StateDir, box)
		if err != nil {
			log.Fatalf("open file store: %v", err)
		}
		st = fileStore
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := ebay.NewClient(cfg.APIBaseURL(), cfg.EbayAppID, cfg.EbayCertID,
		60*time.Second, cfg.MaxRetries, cfg.RetryBase, cfg.RetryMax)
	mgr := auth.NewManager(st, client, cfg.TokenRefreshSkew)
	client.SetUserTokenSource(mgr.UserSource(cfg.ActiveAccount))

	exporter := orders.NewExporter(client, cfg.OrdersFolder, cfg.ActiveAccount)
	unshipped, err := exporter.FetchUnshipped(ctx)
	if err != nil {
		log.Fatalf("fetch orders: %v", err)
	}
	if len(unshipped) == 0 {
		log.Printf("no unshipped orders")
		return
	}
	path, err := exporter.Export(unshipped)
	if err != nil {
		log.Fatalf("export orders: %v", err)
	}
	log.Printf("wrote %s", path)
}
