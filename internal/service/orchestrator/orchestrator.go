package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/service/filler"
	"crosslister/internal/service/pricing"
	"crosslister/internal/service/selector"
	"crosslister/internal/service/taxonomy"
	"crosslister/internal/store"
)

// Lister is the marketplace surface the pipeline publishes through.
type Lister interface {
	PutInventoryItem(ctx context.Context, sku string, item ebay.InventoryItem) error
	GetOfferBySKU(ctx context.Context, sku string) (ebay.Offer, error)
	CreateOffer(ctx context.Context, offer ebay.Offer) (string, error)
	UpdateOffer(ctx context.Context, offerID string, offer ebay.Offer) error
	PublishOffer(ctx context.Context, offerID string) (string, error)
	EnsureLocation(ctx context.Context, key, postalCode, country string) error
}

// Options carries the per-run knobs.
type Options struct {
	Account     domain.Account
	Quantity    int
	LocationKey string
	PostalCode  string
	Country     string
	Workers     int
	Delay       time.Duration
}

// Summary is the outcome of one batch run.
type Summary struct {
	RunID     string                 `json:"run_id"`
	Total     int                    `json:"total"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Results   []domain.ListingResult `json:"results"`
}

// runResult carries a per-product outcome plus the run-level error, if
// the failure was one that must stop the whole batch.
type runResult struct {
	domain.ListingResult
	fatal error
}

// Orchestrator drives products through selection, requirements, pricing
// and the three listing calls, fanning the batch across a small worker
// pool. Failures are per-product except auth failures, which abort the
// whole run.
type Orchestrator struct {
	store    store.Store
	lister   Lister
	cache    *taxonomy.Cache
	aspects  *taxonomy.AspectCatalog
	selector selector.Selector
	filler   *filler.Filler
	calc     pricing.Calculator
	opts     Options

	locationOnce sync.Once
	locationErr  error
}

func New(st store.Store, lister Lister, cache *taxonomy.Cache, aspects *taxonomy.AspectCatalog, sel selector.Selector, fill *filler.Filler, calc pricing.Calculator, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.Quantity <= 0 {
		opts.Quantity = 10
	}
	return &Orchestrator{
		store:    st,
		lister:   lister,
		cache:    cache,
		aspects:  aspects,
		selector: sel,
		filler:   fill,
		calc:     calc,
		opts:     opts,
	}
}

// Run lists a batch of products. The returned error is non-nil only for
// run-level failures (no category snapshot, auth rejection); individual
// product failures land in the summary.
func (o *Orchestrator) Run(ctx context.Context, products []domain.Product) (Summary, error) {
	runID := uuid.NewString()
	summary := Summary{RunID: runID, Total: len(products)}
	if len(products) == 0 {
		return summary, nil
	}

	snap, err := o.cache.Snapshot(ctx)
	if err != nil {
		return summary, err
	}
	log.Printf("run %s: %d products, %d workers, account %d",
		runID, len(products), o.opts.Workers, o.opts.Account.ID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalMu  sync.Mutex
		fatalErr error
	)
	jobs := make(chan domain.Product)
	results := make(chan runResult, len(products))

	var wg sync.WaitGroup
	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				res := o.processOne(runCtx, runID, p, snap)
				results <- res
				if res.fatal != nil {
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = res.fatal
					}
					fatalMu.Unlock()
					cancel()
					return
				}
				if o.opts.Delay > 0 {
					select {
					case <-time.After(o.opts.Delay):
					case <-runCtx.Done():
					}
				}
			}
		}()
	}

feed:
	for _, p := range products {
		select {
		case jobs <- p:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		if res.Status == domain.ResultSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res.ListingResult)
		if err := o.store.AppendResult(res.ListingResult); err != nil {
			log.Printf("run %s: persist result for %s: %v", runID, res.SKU, err)
		}
	}
	log.Printf("run %s: done, %d listed, %d failed", runID, summary.Succeeded, summary.Failed)
	return summary, fatalErr
}

func (o *Orchestrator) ensureLocation(ctx context.Context) error {
	o.locationOnce.Do(func() {
		o.locationErr = o.lister.EnsureLocation(ctx, o.opts.LocationKey, o.opts.PostalCode, o.opts.Country)
	})
	return o.locationErr
}
