package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/extractor"
	"pricewatch/internal/models"
)

// RunOfferSync executes the secondary full-inventory pass that refreshes
// promotional-offer text instead of prices. It shares the guard with
// price scans (mutually exclusive) and the platform-partition plus
// throttled-batch structure, but items are fetched one at a time under a
// hard per-item ceiling, with a forced browser reset after any
// timeout or error so a wedged page cannot poison later fetches. A global
// watchdog deadline bounds the whole pass.
func (o *Orchestrator) RunOfferSync(ctx context.Context) error {
	if !o.guard.TryStart() {
		slog.Warn("Offer sync rejected: scan already in progress")
		return models.ErrScanInProgress
	}
	defer o.guard.Finish()

	start := time.Now()
	entry := models.ScanLogEntry{
		ScanID:    "offers-" + uuid.NewString(),
		Timestamp: start,
	}
	slog.Info("Offer sync started", "scanId", entry.ScanID, "watchdog", o.cfg.OfferWatchdog)

	watchdogCtx, cancel := context.WithTimeout(ctx, o.cfg.OfferWatchdog)
	defer cancel()

	func() {
		defer func() {
			if r := recover(); r != nil {
				entry.Status = models.ScanErrored
				entry.Error = fmt.Sprintf("panic: %v", r)
				slog.Error("Offer sync panicked", "scanId", entry.ScanID, "panic", r)
			}
		}()
		o.runOfferPass(watchdogCtx, &entry)
	}()

	entry.Duration = time.Since(start).String()
	if err := o.store.AppendScanLog(entry, o.cfg.MaxScanLogs); err != nil {
		slog.Error("Failed to record offer sync log entry", "scanId", entry.ScanID, "error", err)
	}
	slog.Info("Offer sync finished",
		"scanId", entry.ScanID,
		"status", entry.Status,
		"scanned", entry.ProductsScanned,
		"success", entry.SuccessCount,
		"failures", entry.FailureCount,
		"duration", entry.Duration)

	if entry.Status == models.ScanErrored {
		return fmt.Errorf("offer sync %s failed: %s", entry.ScanID, entry.Error)
	}
	return nil
}

func (o *Orchestrator) runOfferPass(ctx context.Context, entry *models.ScanLogEntry) {
	products, err := o.store.LoadAll()
	if err != nil {
		entry.Status = models.ScanErrored
		entry.Error = err.Error()
		return
	}
	entry.ProductsScanned = len(products)
	if len(products) == 0 {
		entry.Status = models.ScanCompleted
		return
	}

	byPlatform := groupByPlatform(products)
	stopped := false

	for _, platform := range models.AllPlatforms {
		partition := byPlatform[platform]
		if len(partition) == 0 {
			continue
		}
		ext, ok := o.extractors.For(platform)
		if !ok {
			entry.FailureCount += len(partition)
			continue
		}

		updated, stats, wasStopped := o.syncPlatformOffers(ctx, ext, partition)
		entry.SuccessCount += stats.success
		entry.FailureCount += stats.failure

		if len(updated) > 0 {
			if err := o.store.Save(platform, updated); err != nil {
				slog.Error("Failed to persist offer results", "platform", platform, "error", err)
				if entry.Error == "" {
					entry.Error = fmt.Sprintf("save %s: %v", platform, err)
				}
			}
		}
		if wasStopped {
			stopped = true
			break
		}
	}

	switch {
	case stopped && ctx.Err() != nil:
		entry.Status = models.ScanErrored
		entry.Error = "offer sync watchdog expired"
	case stopped:
		entry.Status = models.ScanStopped
	case entry.Error != "":
		entry.Status = models.ScanErrored
	default:
		entry.Status = models.ScanCompleted
	}
}

func (o *Orchestrator) syncPlatformOffers(ctx context.Context, ext extractor.Extractor, products []models.Product) ([]models.Product, platformStats, bool) {
	var updated []models.Product
	var stats platformStats

	for start := 0; start < len(products); start += o.cfg.BatchSize {
		if o.guard.StopRequested() || ctx.Err() != nil {
			return updated, stats, true
		}
		if start > 0 {
			if err := o.limiter.Wait(ctx); err != nil {
				return updated, stats, true
			}
		}

		end := min(start+o.cfg.BatchSize, len(products))
		for _, product := range products[start:end] {
			result, ok := o.syncProductOffers(ctx, ext, product)
			if ok {
				stats.success++
			} else {
				stats.failure++
			}
			updated = append(updated, result)
		}
	}
	return updated, stats, false
}

// syncProductOffers fetches one product's offers under a hard ceiling.
// On timeout or error the shared browser is force-reset and the stored
// record is left as-is; on success with zero offers the offers field is
// cleared rather than left stale.
func (o *Orchestrator) syncProductOffers(ctx context.Context, ext extractor.Extractor, product models.Product) (models.Product, bool) {
	itemCtx, cancel := context.WithTimeout(ctx, o.cfg.OfferItemTimeout)
	defer cancel()

	offers, err := ext.ExtractOffers(itemCtx, product.URL)
	if err != nil {
		slog.Warn("Offer extraction failed, resetting browser", "url", product.URL, "error", err)
		o.fetcher.Reset()
		return product, false
	}

	if len(offers) == 0 {
		product.Offers = nil
	} else {
		product.Offers = offers
	}
	return product, true
}
