package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pricewatch/internal/models"
)

const stateFile = "scanner_state.json"

// State reads the persisted continuous-scanning flag. A missing record
// reads as disabled.
func (s *FileStore) State() (models.ScannerState, error) {
	if err := s.acquire(stateFile); err != nil {
		return models.ScannerState{}, err
	}
	defer s.release(stateFile)

	path := filepath.Join(s.dataDir, stateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.ScannerState{}, nil
		}
		return models.ScannerState{}, fmt.Errorf("failed to read scanner state: %w", err)
	}

	var state models.ScannerState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.ScannerState{}, fmt.Errorf("failed to parse scanner state: %w", err)
	}
	return state, nil
}

// SetContinuous persists the continuous-scanning flag and stamps the time.
func (s *FileStore) SetContinuous(enabled bool) (models.ScannerState, error) {
	if err := s.acquire(stateFile); err != nil {
		return models.ScannerState{}, err
	}
	defer s.release(stateFile)

	state := models.ScannerState{
		ContinuousEnabled: enabled,
		LastUpdated:       time.Now(),
	}
	if err := writeAtomic(filepath.Join(s.dataDir, stateFile), state); err != nil {
		return models.ScannerState{}, err
	}
	return state, nil
}
