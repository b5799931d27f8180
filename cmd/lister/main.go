package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crosslister/internal/config"
	"crosslister/internal/ingest"
	"crosslister/internal/integrations/anthropic"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/integrations/telegram"
	"crosslister/internal/security/secretbox"
	"crosslister/internal/service/auth"
	"crosslister/internal/service/filler"
	"crosslister/internal/service/orchestrator"
	"crosslister/internal/service/pricing"
	"crosslister/internal/service/selector"
	"crosslister/internal/service/taxonomy"
	storepkg "crosslister/internal/store"
	filestore "crosslister/internal/store/file"
	"crosslister/internal/store/postgres"
)

const pollInterval = 15 * time.Second

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	st := openStore(cfg)
	acct, err := cfg.Account(cfg.ActiveAccount)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("shutting down")
		cancel()
	}()

	client := ebay.NewClient(cfg.APIBaseURL(), cfg.EbayAppID, cfg.EbayCertID,
		60*time.Second, cfg.MaxRetries, cfg.RetryBase, cfg.RetryMax)
	client.SetAppTokenSource(auth.AppSource(ctx, cfg.EbayAppID, cfg.EbayCertID, cfg.TokenURL()))
	mgr := auth.NewManager(st, client, cfg.TokenRefreshSkew)
	client.SetUserTokenSource(mgr.UserSource(cfg.ActiveAccount))

	cache := taxonomy.NewCache(client, st, cfg.CategoryCacheTTL)
	aspects := taxonomy.NewAspectCatalog(client)
	llm := anthropic.NewClient(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicModel, 60*time.Second)

	stratified := selector.NewLLMSelector(llm, selector.SampleCounts{
		Level2: cfg.CandidateLevel2,
		Level3: cfg.CandidateLevel3,
		Level4: cfg.CandidateLevel4,
	}, loadPriorityCategories(cfg.PriorityCategories), time.Now().UnixNano())

	var sel selector.Selector = stratified
	if cfg.SelectorStrategy != "llm" {
		sel = selector.NewHybridSelector(selector.NewHashingEmbedder(512), llm, stratified, cfg.MinSimilarity)
	}

	calc := pricing.Calculator{
		MarkupPct: cfg.PriceMarkupPct,
		Fixed:     cfg.FixedMarkup,
		Strategy:  cfg.CharmStrategy,
		Tiers: []pricing.Tier{
			{MaxPrice: cfg.Tier1MaxPrice, Multiplier: cfg.Tier1Multiplier},
			{MaxPrice: cfg.Tier2MaxPrice, Multiplier: cfg.Tier2Multiplier},
			{MaxPrice: cfg.Tier3MaxPrice, Multiplier: cfg.Tier3Multiplier},
			{Multiplier: cfg.Tier4Multiplier},
		},
	}

	workers := 1
	if cfg.Parallel {
		workers = cfg.MaxWorkers
	}
	orch := orchestrator.New(st, client, cache, aspects, sel, filler.New(llm), calc, orchestrator.Options{
		Account:     acct,
		Quantity:    cfg.DefaultQuantity,
		LocationKey: cfg.MerchantLocationKey,
		PostalCode:  cfg.MerchantPostalCode,
		Country:     cfg.MerchantCountry,
		Workers:     workers,
		Delay:       cfg.ProcessingDelay,
	})

	notifier := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)

	once := len(os.Args) > 1 && os.Args[1] == "once"
	log.Printf("watching %s (account %d, %s)", cfg.WatchFolder, acct.ID, cfg.Environment)
	for {
		processFolder(ctx, cfg, orch, notifier)
		if once || ctx.Err() != nil {
			return
		}
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return
		}
	}
}

func processFolder(ctx context.Context, cfg config.Config, orch *orchestrator.Orchestrator, notifier *telegram.Notifier) {
	paths, err := ingest.ScanFolder(cfg.WatchFolder)
	if err != nil {
		log.Printf("scan: %v", err)
		return
	}
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		batch, err := ingest.LoadBatch(path, cfg.MaxItemsPerBatch)
		if err != nil {
			log.Printf("ingest: %v", err)
			if err := ingest.MoveTo(path, cfg.FailedFolder); err != nil {
				log.Printf("ingest: move to failed: %v", err)
			}
			continue
		}
		log.Printf("batch %s: %d products (%d skipped)", batch.Name, len(batch.Products), batch.Skipped)

		summary, runErr := orch.Run(ctx, batch.Products)
		dest := cfg.ProcessedFolder
		if runErr != nil || (summary.Failed > 0 && summary.Succeeded == 0) {
			dest = cfg.FailedFolder
		}
		if len(summary.Results) > 0 || runErr == nil {
			if _, err := ingest.WriteResults(dest, batch.Name, summary); err != nil {
				log.Printf("batch %s: write results: %v", batch.Name, err)
			}
		}
		if err := ingest.MoveTo(path, dest); err != nil {
			log.Printf("batch %s: move: %v", batch.Name, err)
		}
		if err := notifier.NotifyBatch(ctx, batch.Name, summary.Succeeded, summary.Failed); err != nil {
			log.Printf("batch %s: notify: %v", batch.Name, err)
		}
		if runErr != nil {
			log.Fatalf("batch %s: %v", batch.Name, runErr)
		}
	}
}

func openStore(cfg config.Config) storepkg.Store {
	var box *secretbox.Box
	if cfg.TokenCryptKey != "" {
		b, err := secretbox.New(cfg.TokenCryptKey)
		if err != nil {
			log.Fatalf("token encryption key: %v", err)
		}
		box = b
	}
	if cfg.StoreMode == "postgres" && cfg.DatabaseURL != "" {
		pgStore, err := postgres.NewStore(cfg.DatabaseURL, box)
		if err == nil {
			return pgStore
		}
		log.Printf("postgres store unavailable, falling back to file store: %v", err)
	}
	st, err := filestore.NewStore(cfg.StateDir, box)
	if err != nil {
		log.Fatalf("open file store: %v", err)
	}
	return st
}

// loadPriorityCategories reads category ids from a file, one per line.
func loadPriorityCategories(path string) []string {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("priority categories: %v", err)
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
