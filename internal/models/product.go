package models

import (
	"errors"
	"time"
)

// ErrDuplicateProduct is returned when adding a product whose URL is already tracked.
var ErrDuplicateProduct = errors.New("product already exists")

// ErrScanInProgress is returned when a scan cannot start because one is already running.
var ErrScanInProgress = errors.New("scan already in progress")

// Platform identifies the retail site a product is tracked on. Storage
// partitioning and extractor selection are both keyed by it.
type Platform string

const (
	PlatformMyntra   Platform = "myntra"
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
	PlatformUnknown  Platform = "unknown"
)

// AllPlatforms lists every partition the store knows about, in scan order.
var AllPlatforms = []Platform{PlatformMyntra, PlatformAmazon, PlatformFlipkart, PlatformUnknown}

// ParsePlatform maps a stored or user-supplied string onto a known platform.
func ParsePlatform(s string) Platform {
	switch Platform(s) {
	case PlatformMyntra, PlatformAmazon, PlatformFlipkart:
		return Platform(s)
	default:
		return PlatformUnknown
	}
}

// Product is one tracked listing. Price fields are written only by scans;
// DesiredPrice, URL and Platform are written by the user.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	URL          string   `json:"url" validate:"required,url"`
	Platform     Platform `json:"platform"`
	DesiredPrice float64  `json:"desiredPrice" validate:"required,gt=0"`
	CurrentPrice float64  `json:"currentPrice,omitempty"`
	MRP          float64  `json:"mrp,omitempty"`

	// IsBelow is recomputed on every successful scan and left untouched on
	// scan failure. It is never true when CurrentPrice is zero.
	IsBelow bool `json:"isBelow"`

	// LastChecked is zero when the product has never been scanned.
	LastChecked time.Time `json:"lastChecked,omitempty"`

	// LastNotifiedPrice / LastNotifiedDate track the last price point that
	// triggered an alert, for duplicate-alert suppression.
	LastNotifiedPrice float64   `json:"lastNotifiedPrice,omitempty"`
	LastNotifiedDate  time.Time `json:"lastNotifiedDate,omitempty"`

	// Offers is populated by the offer-sync pass, independently of prices.
	Offers []string `json:"offers,omitempty"`

	AddedAt time.Time `json:"addedAt"`
}

// BelowTarget reports whether price is a price win against desired.
// A zero or negative scraped price never counts as below target.
func BelowTarget(price, desired float64) bool {
	return price > 0 && price <= desired
}

// ScanStatus is the terminal state of one scan pass.
type ScanStatus string

const (
	ScanCompleted ScanStatus = "completed"
	ScanStopped   ScanStatus = "stopped"
	ScanErrored   ScanStatus = "error"
)

// ScanLogEntry is one record in the bounded scan history.
type ScanLogEntry struct {
	ScanID            string     `json:"scanId"`
	Timestamp         time.Time  `json:"timestamp"`
	Status            ScanStatus `json:"status"`
	ProductsScanned   int        `json:"productsScanned"`
	SuccessCount      int        `json:"successCount"`
	FailureCount      int        `json:"failureCount"`
	NotificationCount int        `json:"notificationCount"`
	Duration          string     `json:"duration"`
	IsContinuous      bool       `json:"isContinuous"`
	Error             string     `json:"error,omitempty"`
}

// ScannerState is the persisted continuous-scanning flag.
type ScannerState struct {
	ContinuousEnabled bool      `json:"continuousEnabled"`
	LastUpdated       time.Time `json:"lastUpdated"`
}
