// Package sync orchestrates one cost synchronization pass: list storefront
// variants, stage the supplier catalog, derive per-variant costs, and write
// them back to the storefront.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/harbor-supply/costsync/internal/model"
	"github.com/harbor-supply/costsync/internal/pricing"
	"github.com/harbor-supply/costsync/internal/sku"
	"github.com/harbor-supply/costsync/pkg/finale"
	"github.com/harbor-supply/costsync/pkg/shopify"
)

// VariantSource lists every storefront variant.
type VariantSource interface {
	ListAllVariants(ctx context.Context) ([]shopify.Variant, error)
}

// CatalogSource downloads the raw supplier catalog to a local path.
type CatalogSource interface {
	FetchCatalogTo(ctx context.Context, path string) error
}

// CostSink applies one cost update to the storefront.
type CostSink interface {
	UpdateInventoryCost(ctx context.Context, inventoryItemID int64, cost decimal.Decimal) error
}

// Options configures a run.
type Options struct {
	DryRun         bool
	Families       []string      // restrict to these family prefixes; empty means all
	UpdateInterval time.Duration // pause between sink writes; <= 0 disables
	TempDir        string        // catalog staging dir; "" means os.TempDir()
}

// Runner executes cost synchronization passes. A pass is strictly
// sequential and keeps no state between runs: rerunning with unchanged
// inputs produces the same updates.
type Runner struct {
	variants VariantSource
	catalog  CatalogSource
	sink     CostSink
	opts     Options
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(variants VariantSource, catalog CatalogSource, sink CostSink, opts Options) *Runner {
	return &Runner{variants: variants, catalog: catalog, sink: sink, opts: opts}
}

// Run executes a full pass: build the plan, then apply it. Fetch failures
// abort the pass; individual update failures are counted in the report and
// never abort it.
func (r *Runner) Run(ctx context.Context) (*model.SyncReport, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := zap.L().With(zap.String("component", "sync.runner"), zap.String("run_id", runID))

	plan, err := r.buildPlan(ctx, log, runID)
	if err != nil {
		return nil, err
	}

	report, err := r.apply(ctx, log, plan)
	if err != nil {
		return report, err
	}
	report.Elapsed = time.Since(start)

	log.Info("run complete",
		zap.Int("variants", report.VariantsSeen),
		zap.Int("skipped_no_sku", report.SkippedNoSKU),
		zap.Int("families", report.Families),
		zap.Int("matched_families", report.MatchedFamilies),
		zap.Int("updates", report.Updates),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", report.DryRun),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// BuildPlan computes the updates a run would apply without writing any of
// them. The staged catalog is downloaded and cleaned up exactly as in a
// full run.
func (r *Runner) BuildPlan(ctx context.Context) (*model.SyncPlan, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("component", "sync.runner"), zap.String("run_id", runID))
	return r.buildPlan(ctx, log, runID)
}

// Apply writes a previously built plan's updates to the sink.
func (r *Runner) Apply(ctx context.Context, plan *model.SyncPlan) (*model.SyncReport, error) {
	log := zap.L().With(zap.String("component", "sync.runner"), zap.String("run_id", plan.RunID))
	return r.apply(ctx, log, plan)
}

func (r *Runner) buildPlan(ctx context.Context, log *zap.Logger, runID string) (*model.SyncPlan, error) {
	variants, err := r.variants.ListAllVariants(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sync: list variants")
	}
	log.Info("fetched variants", zap.Int("count", len(variants)))

	records := make([]model.VariantRecord, 0, len(variants))
	skipped := 0
	for _, v := range variants {
		if v.SKU == "" {
			skipped++
			continue
		}
		prefix, qty := sku.Parse(v.SKU)
		records = append(records, model.VariantRecord{
			VariantID:       v.ID,
			InventoryItemID: v.InventoryItemID,
			SKU:             v.SKU,
			Prefix:          prefix,
			Qty:             qty,
		})
	}
	if skipped > 0 {
		log.Info("skipped variants without SKU", zap.Int("count", skipped))
	}

	// Staging starts only after the variant listing succeeds, so a
	// storefront outage never creates an artifact in the first place.
	stage := newStagingFile(r.opts.TempDir, runID)
	defer stage.Remove(log)

	if err := r.catalog.FetchCatalogTo(ctx, stage.Path()); err != nil {
		return nil, eris.Wrap(err, "sync: fetch supplier catalog")
	}

	suppliers, err := loadSuppliers(log, stage.Path())
	if err != nil {
		return nil, err
	}

	families := sku.Group(records)
	only := familyFilter(r.opts.Families)

	plan := &model.SyncPlan{
		RunID:        runID,
		CreatedAt:    time.Now().UTC(),
		VariantsSeen: len(variants),
		SkippedNoSKU: skipped,
	}

	for _, prefix := range families.Prefixes {
		if only != nil && !only[prefix] {
			continue
		}
		group := families.Groups[prefix]

		entry, ok := suppliers[prefix]
		if !ok {
			log.Debug("no supplier entry for family",
				zap.String("prefix", prefix), zap.Int("variants", len(group.Members)))
			plan.Unmatched = append(plan.Unmatched, model.UnmatchedFamily{
				Prefix:   prefix,
				Variants: len(group.Members),
			})
			continue
		}

		plan.Families = append(plan.Families, model.FamilyPlan{
			Prefix:            prefix,
			SupplierProductID: entry.SupplierProductID,
			BasePrice:         entry.Price,
			MinQty:            group.MinQty(),
			Updates:           pricing.Derive(group, entry.Price),
		})
	}

	log.Info("plan built",
		zap.Int("matched_families", len(plan.Families)),
		zap.Int("unmatched_families", len(plan.Unmatched)),
		zap.Int("updates", plan.Updates()),
	)
	return plan, nil
}

// loadSuppliers decodes the staged catalog and flattens it into a lookup
// by supplier product id. A malformed payload degrades to an empty lookup
// so the pass finishes with zero updates instead of failing.
func loadSuppliers(log *zap.Logger, path string) (map[string]finale.SupplierEntry, error) {
	catalog, err := finale.DecodeCatalogFile(path)
	if err != nil {
		var formatErr *finale.FormatError
		if errors.As(err, &formatErr) {
			log.Warn("supplier catalog malformed, continuing with empty catalog",
				zap.String("reason", formatErr.Reason))
			return map[string]finale.SupplierEntry{}, nil
		}
		return nil, eris.Wrap(err, "sync: decode supplier catalog")
	}
	return flattenSuppliers(log, catalog), nil
}

// familyFilter builds a prefix allowlist, or nil when every family is in
// scope.
func familyFilter(prefixes []string) map[string]bool {
	if len(prefixes) == 0 {
		return nil
	}
	only := make(map[string]bool, len(prefixes))
	for _, p := range prefixes {
		only[p] = true
	}
	return only
}

func (r *Runner) apply(ctx context.Context, log *zap.Logger, plan *model.SyncPlan) (*model.SyncReport, error) {
	report := &model.SyncReport{
		RunID:           plan.RunID,
		DryRun:          r.opts.DryRun,
		VariantsSeen:    plan.VariantsSeen,
		SkippedNoSKU:    plan.SkippedNoSKU,
		Families:        len(plan.Families) + len(plan.Unmatched),
		MatchedFamilies: len(plan.Families),
	}

	var limiter *rate.Limiter
	if !r.opts.DryRun && r.opts.UpdateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(r.opts.UpdateInterval), 1)
	}

	for _, family := range plan.Families {
		for _, u := range family.Updates {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			default:
			}

			uLog := log.With(
				zap.String("prefix", family.Prefix),
				zap.String("sku", u.SKU),
				zap.Int64("variant_id", u.VariantID),
				zap.Int64("inventory_item_id", u.InventoryItemID),
				zap.String("new_cost", u.NewCost.StringFixed(2)),
			)

			if r.opts.DryRun {
				uLog.Info("would update cost")
				report.Updates++
				continue
			}

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return report, eris.Wrap(err, "sync: update interval")
				}
			}

			if err := r.sink.UpdateInventoryCost(ctx, u.InventoryItemID, u.NewCost); err != nil {
				uLog.Error("cost update failed", zap.Error(err))
				report.Failed++
				continue
			}
			uLog.Info("cost updated")
			report.Updates++
		}
	}

	return report, nil
}
