package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/models"
	"pricewatch/internal/util"
)

// ErrLockTimeout is returned when a partition lock cannot be acquired
// within the bounded wait. Callers must treat the save as failed.
var ErrLockTimeout = errors.New("storage lock acquisition timed out")

const defaultLockWait = 10 * time.Second

// FileStore keeps one JSON file per platform partition under dataDir,
// plus the scanner-state record and the bounded scan log. All writes go
// through a temp-file-then-rename so a crash mid-write never corrupts a
// partition. Each partition has its own lock; distinct partitions may be
// written concurrently, the same partition never has two writers.
type FileStore struct {
	dataDir  string
	lockWait time.Duration
	locks    map[string]chan struct{}
}

func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dataDir, err)
	}

	locks := make(map[string]chan struct{})
	for _, p := range models.AllPlatforms {
		locks[string(p)] = make(chan struct{}, 1)
	}
	locks[stateFile] = make(chan struct{}, 1)
	locks[scanLogFile] = make(chan struct{}, 1)

	return &FileStore{
		dataDir:  dataDir,
		lockWait: defaultLockWait,
		locks:    locks,
	}, nil
}

func (s *FileStore) partitionPath(p models.Platform) string {
	return filepath.Join(s.dataDir, "products_"+string(p)+".json")
}

// acquire takes the named lock, failing loudly after the bounded wait
// rather than hanging a scan indefinitely.
func (s *FileStore) acquire(name string) error {
	lock, ok := s.locks[name]
	if !ok {
		return fmt.Errorf("unknown storage lock %q", name)
	}
	select {
	case lock <- struct{}{}:
		return nil
	case <-time.After(s.lockWait):
		slog.Error("Storage lock acquisition timed out", "lock", name, "waited", s.lockWait)
		return fmt.Errorf("lock %q: %w", name, ErrLockTimeout)
	}
}

func (s *FileStore) release(name string) {
	<-s.locks[name]
}

// Load returns the products stored in one partition. A partition that does
// not exist yet is created empty.
func (s *FileStore) Load(p models.Platform) ([]models.Product, error) {
	if err := s.acquire(string(p)); err != nil {
		return nil, err
	}
	defer s.release(string(p))
	return s.loadLocked(p)
}

func (s *FileStore) loadLocked(p models.Platform) ([]models.Product, error) {
	path := s.partitionPath(p)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if werr := writeAtomic(path, []models.Product{}); werr != nil {
				return nil, fmt.Errorf("failed to initialize partition %s: %w", p, werr)
			}
			return []models.Product{}, nil
		}
		return nil, fmt.Errorf("failed to read partition %s: %w", p, err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse partition %s: %w", p, err)
	}
	return products, nil
}

// LoadAll concatenates every partition, in platform order.
func (s *FileStore) LoadAll() ([]models.Product, error) {
	var all []models.Product
	for _, p := range models.AllPlatforms {
		products, err := s.Load(p)
		if err != nil {
			return nil, err
		}
		all = append(all, products...)
	}
	return all, nil
}

// Save persists scan results for one partition using merge-on-save: the
// current on-disk contents are re-read first, products present only on
// disk are kept (added concurrently, or simply untouched by this scan),
// and products present in both take the incoming version. Incoming
// products absent from disk are dropped - they were deleted while the
// scan held a stale copy, and a save must never reintroduce them. New
// products enter through Add, never through Save. Concurrent edits to a
// product this save also updates are last-writer-wins on the whole record.
func (s *FileStore) Save(p models.Platform, incoming []models.Product) error {
	if err := s.acquire(string(p)); err != nil {
		return err
	}
	defer s.release(string(p))

	current, err := s.loadLocked(p)
	if err != nil {
		return err
	}

	incomingByID := make(map[string]models.Product, len(incoming))
	for _, prod := range incoming {
		incomingByID[prod.ID] = prod
	}

	merged := make([]models.Product, 0, len(current))
	for _, prod := range current {
		if updated, ok := incomingByID[prod.ID]; ok {
			merged = append(merged, updated)
		} else {
			merged = append(merged, prod)
		}
	}

	return writeAtomic(s.partitionPath(p), merged)
}

// Add inserts a new product, assigning an id and creation timestamp when
// absent. Duplicate URLs (case-insensitive, normalized) anywhere in the
// store are rejected with models.ErrDuplicateProduct.
func (s *FileStore) Add(product models.Product) (models.Product, error) {
	existing, err := s.LoadAll()
	if err != nil {
		return models.Product{}, err
	}
	for _, other := range existing {
		if util.SameProductURL(other.URL, product.URL) {
			return models.Product{}, fmt.Errorf("url %s: %w", product.URL, models.ErrDuplicateProduct)
		}
	}

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.AddedAt.IsZero() {
		product.AddedAt = time.Now()
	}
	if product.Platform == "" {
		product.Platform = models.PlatformUnknown
	}

	p := product.Platform
	if err := s.acquire(string(p)); err != nil {
		return models.Product{}, err
	}
	defer s.release(string(p))

	current, err := s.loadLocked(p)
	if err != nil {
		return models.Product{}, err
	}
	current = append(current, product)
	if err := writeAtomic(s.partitionPath(p), current); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// Update replaces a product by id. When the platform changed, the product
// is removed from every other partition first so exactly one partition
// holds it afterwards.
func (s *FileStore) Update(product models.Product) error {
	if product.ID == "" {
		return fmt.Errorf("cannot update product without id")
	}

	for _, p := range models.AllPlatforms {
		if p == product.Platform {
			continue
		}
		if _, err := s.removeFromPartition(p, product.ID); err != nil {
			return err
		}
	}

	p := product.Platform
	if err := s.acquire(string(p)); err != nil {
		return err
	}
	defer s.release(string(p))

	current, err := s.loadLocked(p)
	if err != nil {
		return err
	}
	replaced := false
	for i := range current {
		if current[i].ID == product.ID {
			current[i] = product
			replaced = true
			break
		}
	}
	if !replaced {
		current = append(current, product)
	}
	return writeAtomic(s.partitionPath(p), current)
}

// Delete removes a product by id from whichever partition holds it.
// Returns false when no partition held the id.
func (s *FileStore) Delete(id string) (bool, error) {
	for _, p := range models.AllPlatforms {
		removed, err := s.removeFromPartition(p, id)
		if err != nil {
			return false, err
		}
		if removed {
			return true, nil
		}
	}
	return false, nil
}

// DeleteByPlatform clears an entire partition, returning how many
// products it held.
func (s *FileStore) DeleteByPlatform(p models.Platform) (int, error) {
	if err := s.acquire(string(p)); err != nil {
		return 0, err
	}
	defer s.release(string(p))

	current, err := s.loadLocked(p)
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(s.partitionPath(p), []models.Product{}); err != nil {
		return 0, err
	}
	return len(current), nil
}

// Prune removes products a keep predicate rejects, re-reading the
// partition under its lock so concurrent edits are evaluated, not a
// stale snapshot. Used by the retention pass.
func (s *FileStore) Prune(p models.Platform, keep func(models.Product) bool) (int, error) {
	if err := s.acquire(string(p)); err != nil {
		return 0, err
	}
	defer s.release(string(p))

	current, err := s.loadLocked(p)
	if err != nil {
		return 0, err
	}

	kept := current[:0:0]
	for _, prod := range current {
		if keep(prod) {
			kept = append(kept, prod)
		}
	}
	removed := len(current) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if kept == nil {
		kept = []models.Product{}
	}
	if err := writeAtomic(s.partitionPath(p), kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *FileStore) removeFromPartition(p models.Platform, id string) (bool, error) {
	if err := s.acquire(string(p)); err != nil {
		return false, err
	}
	defer s.release(string(p))

	current, err := s.loadLocked(p)
	if err != nil {
		return false, err
	}
	kept := make([]models.Product, 0, len(current))
	removed := false
	for _, prod := range current {
		if prod.ID == id {
			removed = true
			continue
		}
		kept = append(kept, prod)
	}
	if !removed {
		return false, nil
	}
	return true, writeAtomic(s.partitionPath(p), kept)
}

// writeAtomic marshals v and renames a temp file over path so readers
// never observe a half-written partition.
func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
