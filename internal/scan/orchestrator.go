package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/metrics"
	"pricewatch/internal/models"
	"pricewatch/internal/notifier"
	"pricewatch/internal/util"
)

// kickoffDelay bridges "continuous mode turned on" to "first scan starts"
// without blocking the caller that flipped the flag.
const kickoffDelay = 2 * time.Second

// Orchestrator drives full scan passes: load everything, partition by
// platform, scrape in throttled concurrent batches with retry, feed
// results through the decision engine, merge-save per platform, log a
// summary and - in continuous mode - schedule exactly one follow-up.
type Orchestrator struct {
	store      ProductStore
	extractors Extractors
	engine     DecisionEngine
	notifier   notifier.Notifier
	fetcher    extractor.PageFetcher
	cfg        *config.Config
	guard      *Guard
	limiter    *rate.Limiter

	timerMu sync.Mutex
	pending *time.Timer
}

func New(store ProductStore, extractors Extractors, engine DecisionEngine, n notifier.Notifier, fetcher extractor.PageFetcher, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:      store,
		extractors: extractors,
		engine:     engine,
		notifier:   n,
		fetcher:    fetcher,
		cfg:        cfg,
		guard:      &Guard{},
		limiter:    rate.NewLimiter(rate.Every(cfg.BatchInterval), 1),
	}
}

// Guard exposes the singleton guard for status reporting.
func (o *Orchestrator) Guard() *Guard { return o.guard }

// RequestStop asks a running scan to halt after its in-flight batch.
// The effect is asynchronous; callers only get confirmation of the request.
func (o *Orchestrator) RequestStop() bool {
	accepted := o.guard.RequestStop()
	if accepted {
		slog.Info("Stop requested, scan will halt after current batch")
	}
	return accepted
}

// SetContinuous persists the continuous-scanning flag. Enabling it while
// no scan is running kicks one off shortly after.
func (o *Orchestrator) SetContinuous(enabled bool) (models.ScannerState, error) {
	state, err := o.store.SetContinuous(enabled)
	if err != nil {
		return state, err
	}
	slog.Info("Continuous scanning flag updated", "enabled", enabled)

	if enabled {
		if !o.guard.InProgress() {
			o.scheduleNext(kickoffDelay)
		}
	} else {
		o.cancelPending()
	}
	return state, nil
}

// RunScan executes one full price-scan pass. Returns
// models.ErrScanInProgress when another pass holds the guard.
func (o *Orchestrator) RunScan(ctx context.Context) error {
	if !o.guard.TryStart() {
		slog.Warn("Scan trigger rejected: scan already in progress")
		return models.ErrScanInProgress
	}
	defer o.guard.Finish()

	start := time.Now()
	entry := models.ScanLogEntry{
		ScanID:    uuid.NewString(),
		Timestamp: start,
	}
	if state, err := o.store.State(); err == nil {
		entry.IsContinuous = state.ContinuousEnabled
	}
	slog.Info("Scan started", "scanId", entry.ScanID, "continuous", entry.IsContinuous)

	// Any panic inside the pass must still release the guard, log status
	// error and leave rescheduling to the next trigger.
	func() {
		defer func() {
			if r := recover(); r != nil {
				entry.Status = models.ScanErrored
				entry.Error = fmt.Sprintf("panic: %v", r)
				slog.Error("Scan pass panicked", "scanId", entry.ScanID, "panic", r)
			}
		}()
		o.runPass(ctx, &entry)
	}()

	duration := time.Since(start)
	entry.Duration = duration.String()
	metrics.ScansTotal.WithLabelValues(string(entry.Status)).Inc()
	metrics.ScanDuration.Observe(duration.Seconds())

	if err := o.store.AppendScanLog(entry, o.cfg.MaxScanLogs); err != nil {
		slog.Error("Failed to record scan log entry", "scanId", entry.ScanID, "error", err)
	}
	slog.Info("Scan finished",
		"scanId", entry.ScanID,
		"status", entry.Status,
		"scanned", entry.ProductsScanned,
		"success", entry.SuccessCount,
		"failures", entry.FailureCount,
		"notifications", entry.NotificationCount,
		"duration", entry.Duration)

	if entry.NotificationCount > 0 {
		summary := fmt.Sprintf("Scan summary: %d alert(s) across %d products (%d scraped, %d failed).",
			entry.NotificationCount, entry.ProductsScanned, entry.SuccessCount, entry.FailureCount)
		o.notifier.Send(ctx, summary)
	}

	if entry.Status == models.ScanCompleted {
		o.runRetention()
	}

	// Re-read the flag fresh: it may have been toggled mid-scan.
	if entry.Status != models.ScanStopped {
		if state, err := o.store.State(); err == nil && state.ContinuousEnabled {
			slog.Info("Continuous mode enabled, scheduling next scan", "cooldown", o.cfg.ScanCooldown)
			o.scheduleNext(o.cfg.ScanCooldown)
		}
	}

	if entry.Status == models.ScanErrored {
		return fmt.Errorf("scan %s failed: %s", entry.ScanID, entry.Error)
	}
	return nil
}

func (o *Orchestrator) runPass(ctx context.Context, entry *models.ScanLogEntry) {
	products, err := o.store.LoadAll()
	if err != nil {
		entry.Status = models.ScanErrored
		entry.Error = err.Error()
		return
	}
	entry.ProductsScanned = len(products)
	if len(products) == 0 {
		slog.Info("No products to scan")
		entry.Status = models.ScanCompleted
		return
	}

	byPlatform := groupByPlatform(products)
	stopped := false

	// Platforms are processed strictly sequentially to bound total
	// concurrent browser load.
	for _, platform := range models.AllPlatforms {
		partition := byPlatform[platform]
		if len(partition) == 0 {
			continue
		}

		ext, ok := o.extractors.For(platform)
		if !ok {
			slog.Warn("No extractor for platform, skipping partition", "platform", platform, "count", len(partition))
			entry.FailureCount += len(partition)
			continue
		}

		updated, stats, wasStopped := o.scanPlatform(ctx, ext, partition)
		entry.SuccessCount += stats.success
		entry.FailureCount += stats.failure
		entry.NotificationCount += stats.notified

		// Persist whatever was processed, even on stop. Merge-on-save
		// keeps concurrent edits and treats unprocessed items as no-ops.
		if len(updated) > 0 {
			if err := o.store.Save(platform, updated); err != nil {
				slog.Error("Failed to persist partition", "platform", platform, "error", err)
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
	case stopped:
		entry.Status = models.ScanStopped
	case entry.Error != "":
		entry.Status = models.ScanErrored
	default:
		entry.Status = models.ScanCompleted
	}
}

type platformStats struct {
	success  int
	failure  int
	notified int
}

// scanPlatform walks one partition in fixed-size batches. Within a batch
// every product is scraped concurrently; results are merged back in batch
// order. The stop flag is polled between batches only, so in-flight
// scrapes always finish naturally.
func (o *Orchestrator) scanPlatform(ctx context.Context, ext extractor.Extractor, products []models.Product) ([]models.Product, platformStats, bool) {
	var updated []models.Product
	var stats platformStats

	for start := 0; start < len(products); start += o.cfg.BatchSize {
		if o.guard.StopRequested() {
			return updated, stats, true
		}
		if ctx.Err() != nil {
			return updated, stats, true
		}

		if start > 0 {
			// Inter-batch throttle protects the shared browser.
			if err := o.limiter.Wait(ctx); err != nil {
				return updated, stats, true
			}
		}

		end := min(start+o.cfg.BatchSize, len(products))
		batch := products[start:end]
		results := make([]models.Product, len(batch))
		outcomes := make([]scanOutcome, len(batch))

		g := new(errgroup.Group)
		for i := range batch {
			g.Go(func() error {
				results[i], outcomes[i] = o.scanProduct(ctx, ext, batch[i])
				return nil
			})
		}
		g.Wait()

		for i := range results {
			if outcomes[i].ok {
				stats.success++
				metrics.ScrapesTotal.WithLabelValues(string(ext.Platform()), "success").Inc()
			} else {
				stats.failure++
				metrics.ScrapesTotal.WithLabelValues(string(ext.Platform()), "failure").Inc()
			}
			if outcomes[i].notified {
				stats.notified++
				metrics.NotificationsTotal.Inc()
			}
			updated = append(updated, results[i])
		}
	}
	return updated, stats, false
}

type scanOutcome struct {
	ok       bool
	notified bool
}

func (o *Orchestrator) scanProduct(ctx context.Context, ext extractor.Extractor, prev models.Product) (models.Product, scanOutcome) {
	pctx, cancel := context.WithTimeout(ctx, o.cfg.ProductTimeout)
	defer cancel()

	var res extractor.Result
	err := util.RetryWithBackoff(pctx, o.cfg.MaxRetries, o.cfg.RetryBaseDelay, func(attempt int) error {
		r, extractErr := ext.Extract(pctx, prev.URL)
		if extractErr != nil {
			slog.Debug("Extraction attempt failed", "url", prev.URL, "attempt", attempt, "error", extractErr)
			return extractErr
		}
		res = r
		return nil
	})
	if err != nil {
		slog.Warn("Extraction failed after retries", "platform", ext.Platform(), "url", prev.URL, "error", err)
		if ext.PreserveOnFailure() {
			// Likely blocked: a bad read must not touch anything, not even
			// lastChecked, or the product could read as "now above target".
			return prev, scanOutcome{}
		}
		failed := prev
		failed.LastChecked = time.Now()
		return failed, scanOutcome{}
	}

	scanned := prev
	scanned.Name = res.Name
	scanned.Brand = res.Brand
	scanned.CurrentPrice = res.Price
	scanned.MRP = res.MRP
	scanned.IsBelow = models.BelowTarget(res.Price, prev.DesiredPrice)
	scanned.LastChecked = time.Now()

	final, sent := o.engine.Evaluate(ctx, prev, scanned)
	return final, scanOutcome{ok: true, notified: sent}
}

// scheduleNext arms exactly one follow-up scan. The continuous flag is
// re-read when the timer fires, so disabling mid-cooldown wins.
func (o *Orchestrator) scheduleNext(delay time.Duration) {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()
	if o.pending != nil {
		o.pending.Stop()
	}
	o.pending = time.AfterFunc(delay, func() {
		state, err := o.store.State()
		if err != nil {
			slog.Error("Failed to read scanner state before scheduled scan", "error", err)
			return
		}
		if !state.ContinuousEnabled {
			slog.Info("Continuous mode disabled during cooldown, skipping scheduled scan")
			return
		}
		if err := o.RunScan(context.Background()); err != nil && !errors.Is(err, models.ErrScanInProgress) {
			slog.Error("Scheduled scan failed", "error", err)
		}
	})
}

func (o *Orchestrator) cancelPending() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()
	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}
}

// Close cancels any pending reschedule timer.
func (o *Orchestrator) Close() {
	o.cancelPending()
}

func groupByPlatform(products []models.Product) map[models.Platform][]models.Product {
	byPlatform := make(map[models.Platform][]models.Product)
	for _, p := range products {
		platform := p.Platform
		if platform == "" {
			platform = models.PlatformUnknown
		}
		byPlatform[platform] = append(byPlatform[platform], p)
	}
	return byPlatform
}
