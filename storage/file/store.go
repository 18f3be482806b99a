package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/ilumina-session/storage"
)

// Store keeps the session record as a JSON file named after the key.
type Store struct {
	BasePath string
	Key      string
}

var _ storage.Store = (*Store)(nil)

// New creates a Store under basePath. An empty basePath defaults to
// ".ilumina" and an empty key to "ilumina.session".
func New(basePath, key string) *Store {
	if basePath == "" {
		basePath = ".ilumina"
	}
	if key == "" {
		key = "ilumina.session"
	}
	return &Store{BasePath: basePath, Key: key}
}

func (s *Store) path() string {
	return filepath.Join(s.BasePath, s.Key+".json")
}

func (s *Store) Load(_ context.Context) (*storage.Record, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var record storage.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &record, nil
}

// Save writes the record atomically: temp file in the same directory, fsync,
// then rename over the destination.
func (s *Store) Save(_ context.Context, record storage.Record) error {
	if err := os.MkdirAll(s.BasePath, 0o700); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+s.Key+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("failed to restrict temp file: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path()); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Remove deletes the record. Removing an absent record is not an error.
func (s *Store) Remove(_ context.Context) error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
