package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pricewatch/internal/models"
)

const scanLogFile = "scan_log.json"

// ScanLogs returns the recorded scan history, newest first.
func (s *FileStore) ScanLogs() ([]models.ScanLogEntry, error) {
	if err := s.acquire(scanLogFile); err != nil {
		return nil, err
	}
	defer s.release(scanLogFile)
	return s.loadScanLogsLocked()
}

func (s *FileStore) loadScanLogsLocked() ([]models.ScanLogEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, scanLogFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []models.ScanLogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read scan log: %w", err)
	}

	var entries []models.ScanLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse scan log: %w", err)
	}
	return entries, nil
}

// AppendScanLog records one scan summary, dropping the oldest entries
// once maxEntries is exceeded.
func (s *FileStore) AppendScanLog(entry models.ScanLogEntry, maxEntries int) error {
	if err := s.acquire(scanLogFile); err != nil {
		return err
	}
	defer s.release(scanLogFile)

	entries, err := s.loadScanLogsLocked()
	if err != nil {
		return err
	}

	entries = append([]models.ScanLogEntry{entry}, entries...)
	if maxEntries > 0 && len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	return writeAtomic(filepath.Join(s.dataDir, scanLogFile), entries)
}
