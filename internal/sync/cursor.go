// Package sync implements the client-side synchronization engine: a durable
// cursor, an authenticated HTTP client, and the poll/retry/download cycle
// that advances the cursor only past fully processed items.
package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// cursorState is the on-disk shape of the sync cursor.
type cursorState struct {
	LastSyncTimestamp int64 `json:"last_sync_timestamp"`
}

// LoadCursor reads the persisted cursor. A missing state file means a first
// run and returns the zero time ("sync everything") without error.
func LoadCursor(path string) (time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read sync state: %w", err)
	}
	var state cursorState
	if err := json.Unmarshal(data, &state); err != nil {
		return time.Time{}, fmt.Errorf("decode sync state: %w", err)
	}
	if state.LastSyncTimestamp <= 0 {
		return time.Time{}, nil
	}
	return time.Unix(state.LastSyncTimestamp, 0).UTC(), nil
}

// SaveCursor persists the cursor atomically: the new state is written to a
// temp file in the same directory and renamed over the old one, so a crash
// mid-write always leaves a readable previous value.
func SaveCursor(path string, cursor time.Time) error {
	data, err := json.Marshal(cursorState{LastSyncTimestamp: cursor.Unix()})
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp state: %w", err)
	}
	// Rename is atomic on POSIX filesystems within the same directory.
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace sync state: %w", err)
	}
	return nil
}
