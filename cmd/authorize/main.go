package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crosslister/internal/config"
	apphttp "crosslister/internal/http"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/security/secretbox"
	"crosslister/internal/service/auth"
	storepkg "crosslister/internal/store"
	filestore "crosslister/internal/store/file"
	"crosslister/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()
	if cfg.EbayAppID == "" || cfg.EbayCertID == "" {
		log.Fatalf("EBAY_APP_ID and EBAY_CERT_ID are required")
	}

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

	client := ebay.NewClient(cfg.APIBaseURL(), cfg.EbayAppID, cfg.EbayCertID,
		30*time.Second, 0, 0, 0)
	mgr := auth.NewManager(st, client, cfg.TokenRefreshSkew)
	srv := apphttp.NewServer(cfg, mgr)

	httpServer := &http.Server{
		Addr:         cfg.AuthListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("consent flow listening on %s", cfg.AuthListenAddr)
		log.Printf("open http://localhost%s/auth/start?account=%d to authorize", cfg.AuthListenAddr, cfg.ActiveAccount)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
