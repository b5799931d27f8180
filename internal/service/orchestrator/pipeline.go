package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/service/mapper"
	"crosslister/internal/service/pricing"
)

// processOne runs the full pipeline for a single product. Every exit
// path produces a result; auth failures additionally mark the run
// fatal.
func (o *Orchestrator) processOne(ctx context.Context, runID string, p domain.Product, snap *domain.CategorySnapshot) runResult {
	start := time.Now()
	sku := mapper.SKU(p)
	res := runResult{
		ListingResult: domain.ListingResult{
			ID:        uuid.NewString(),
			RunID:     runID,
			SKU:       sku,
			CreatedAt: start,
		},
	}
	fail := func(stage string, err error) runResult {
		res.Status = domain.ResultFailed
		res.Stage = stage
		res.Error = err.Error()
		res.Elapsed = time.Since(start).Seconds()
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			res.fatal = authErr
		}
		log.Printf("run %s: %s failed at %s: %v", runID, sku, stage, err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail("", errors.New("run aborted"))
	}

	srcPrice, err := pricing.ParsePrice(p.Price)
	if err != nil {
		return fail("", err)
	}
	deliveryFee := 0.0
	if p.DeliveryFee != "" {
		if fee, err := pricing.ParsePrice(p.DeliveryFee); err == nil {
			deliveryFee = fee
		}
	}

	sel, err := o.selector.Select(ctx, p, snap)
	if err != nil {
		return fail(domain.StageSelection, err)
	}
	if !snap.IsLeaf(sel.CategoryID) {
		return fail(domain.StageSelection, &domain.SelectionError{
			SKU:    sku,
			Reason: "selected category is not a leaf",
		})
	}
	res.CategoryID = sel.CategoryID
	res.CategoryName = sel.CategoryName
	log.Printf("run %s: %s -> category %s (%s, confidence %.2f)",
		runID, sku, sel.CategoryID, snap.Path(sel.CategoryID), sel.Confidence)

	reqs, err := o.aspects.Aspects(ctx, sel.CategoryID)
	if err != nil {
		return fail(domain.StageRequirements, err)
	}
	brand := mapper.NormalizeBrand(sel.Brand)
	aspects, err := o.filler.Fill(ctx, p, brand, reqs)
	if err != nil {
		return fail(domain.StageRequirements, err)
	}

	price := o.calc.Price(srcPrice, deliveryFee, p.PriceMultiplier)
	draft := mapper.BuildDraft(p, sel, aspects, price, o.opts.Account.ID)

	if err := o.ensureLocation(ctx); err != nil {
		return fail(domain.StageInventory, err)
	}
	item := mapper.BuildInventoryItem(draft, o.opts.Quantity, o.opts.LocationKey)
	if err := o.lister.PutInventoryItem(ctx, sku, item); err != nil {
		return fail(domain.StageInventory, &domain.PublishError{SKU: sku, Stage: domain.StageInventory, Err: err})
	}

	offer := mapper.BuildOffer(draft, o.opts.Account, o.opts.Quantity, o.opts.LocationKey)
	offerID, err := o.upsertOffer(ctx, sku, offer)
	if err != nil {
		return fail(domain.StageOffer, &domain.PublishError{SKU: sku, Stage: domain.StageOffer, Err: err})
	}
	res.OfferID = offerID

	listingID, err := o.lister.PublishOffer(ctx, offerID)
	if err != nil {
		return fail(domain.StagePublish, &domain.PublishError{SKU: sku, Stage: domain.StagePublish, Err: err})
	}

	res.Status = domain.ResultSuccess
	res.ListingID = listingID
	res.Elapsed = time.Since(start).Seconds()
	log.Printf("run %s: %s listed as %s at $%.2f in %.1fs",
		runID, sku, listingID, price, res.Elapsed)
	return res
}

// upsertOffer reuses an existing offer for the SKU when one exists,
// otherwise creates one.
func (o *Orchestrator) upsertOffer(ctx context.Context, sku string, offer ebay.Offer) (string, error) {
	existing, err := o.lister.GetOfferBySKU(ctx, sku)
	switch {
	case err == nil:
		if err := o.lister.UpdateOffer(ctx, existing.OfferID, offer); err != nil {
			return "", err
		}
		return existing.OfferID, nil
	case errors.Is(err, ebay.ErrNoOffer):
		return o.lister.CreateOffer(ctx, offer)
	default:
		return "", err
	}
}
