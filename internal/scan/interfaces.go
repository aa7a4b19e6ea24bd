package scan

import (
	"context"

	"pricewatch/internal/extractor"
	"pricewatch/internal/models"
)

// ProductStore abstracts the persistence layer the orchestrator drives.
type ProductStore interface {
	LoadAll() ([]models.Product, error)
	Save(p models.Platform, incoming []models.Product) error
	Prune(p models.Platform, keep func(models.Product) bool) (int, error)
	State() (models.ScannerState, error)
	SetContinuous(enabled bool) (models.ScannerState, error)
	AppendScanLog(entry models.ScanLogEntry, maxEntries int) error
}

// Extractors resolves the scrape collaborator for a platform.
type Extractors interface {
	For(p models.Platform) (extractor.Extractor, bool)
}

// DecisionEngine turns a pre/post-scan product pair into the record to
// persist, dispatching an alert when warranted.
type DecisionEngine interface {
	Evaluate(ctx context.Context, prev, updated models.Product) (models.Product, bool)
}
