package scan

import (
	"log/slog"
	"time"

	"pricewatch/internal/models"
)

// runRetention discards stale records after a full, non-stopped scan.
// A product survives when any of these hold: it was checked recently, it
// is currently a price win, or it is too new to have been checked yet.
func (o *Orchestrator) runRetention() {
	now := time.Now()
	keep := func(p models.Product) bool {
		if !p.LastChecked.IsZero() && now.Sub(p.LastChecked) <= o.cfg.RetentionMaxAge {
			return true
		}
		if p.IsBelow {
			return true
		}
		if p.LastChecked.IsZero() && now.Sub(p.AddedAt) <= o.cfg.RetentionGrace {
			return true
		}
		return false
	}

	total := 0
	for _, platform := range models.AllPlatforms {
		removed, err := o.store.Prune(platform, keep)
		if err != nil {
			slog.Error("Retention pass failed for partition", "platform", platform, "error", err)
			continue
		}
		total += removed
	}
	if total > 0 {
		slog.Info("Retention pass removed stale products", "removed", total)
	}
}
