package generator

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"polyvibe/config"
	"polyvibe/fsutil"
)

const (
	historyFileName = "polyvibe_demo_chat.json"
	// MaxHistoryEntries is how many transcript entries are kept on disk.
	MaxHistoryEntries = 50
)

// HistoryStore persists the panel transcript as a JSON file.
type HistoryStore struct {
	mu   sync.Mutex
	path string
}

// DefaultHistoryPath is the transcript location under the user config dir.
func DefaultHistoryPath() string {
	return filepath.Join(config.Dir(), historyFileName)
}

func NewHistoryStore(path string) *HistoryStore {
	if path == "" {
		path = DefaultHistoryPath()
	}
	return &HistoryStore{path: path}
}

func (s *HistoryStore) Path() string { return s.path }

// Load returns the saved transcript. A missing file is an empty transcript.
func (s *HistoryStore) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save replaces the transcript, keeping the most recent entries.
func (s *HistoryStore) Save(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) > MaxHistoryEntries {
		entries = entries[len(entries)-MaxHistoryEntries:]
	}
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(s.path, data, 0o600)
}

// Clear removes the saved transcript.
func (s *HistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
