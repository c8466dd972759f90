// This file implements the default repository: a single JSON array in one file.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/lockfile"
	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// DefaultFilePermissions is the mode of the JSON session log.
const DefaultFilePermissions = 0644

// JSONFileStore keeps every record in one JSON array. Appends rewrite the file
// through a temp file and rename while holding a cross-process file lock, so
// concurrent writers never lose each other's records.
type JSONFileStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONFileStore creates a JSON file repository at path. The file itself is
// created on first append.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	slog.Debug("NewJSONFileStore invoked", "path", path)
	if path == "" {
		slog.Error("JSONFileStore path not set")
		return nil, fmt.Errorf("json store path not set")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create store directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &JSONFileStore{path: path}, nil
}

// Path returns the file backing the store.
func (s *JSONFileStore) Path() string {
	return s.path
}

func (s *JSONFileStore) Append(ctx context.Context, rec models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := lockfile.Acquire(ctx, s.path)
	if err != nil {
		slog.Error("JSONFileStore could not lock log", "error", err, "path", s.path)
		return fmt.Errorf("failed to lock session log: %w", err)
	}
	defer lock.Release()

	elements, err := s.readElements()
	if errors.Is(err, ErrCorruptStore) {
		if qerr := s.quarantine(); qerr != nil {
			return qerr
		}
		elements = nil
	} else if err != nil {
		return err
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		slog.Error("JSONFileStore could not encode record", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	// Existing elements are written back byte for byte, readable or not.
	elements = append(elements, encoded)
	if err := s.write(elements); err != nil {
		slog.Error("JSONFileStore Append failed", "error", err, "id", rec.ID)
		return err
	}
	slog.Debug("JSONFileStore Append succeeded", "id", rec.ID, "count", len(elements))
	return nil
}

// ListAll returns every record. A missing file is empty; an unparseable file
// returns ErrCorruptStore.
func (s *JSONFileStore) ListAll(ctx context.Context) ([]models.SessionRecord, error) {
	return s.read()
}

func (s *JSONFileStore) QueryByDateRange(ctx context.Context, from, to time.Time) ([]models.SessionRecord, error) {
	all, err := s.read()
	if err != nil {
		return nil, err
	}
	return filterByRange(all, from, to), nil
}

func (s *JSONFileStore) Close() error {
	return nil
}

func (s *JSONFileStore) read() ([]models.SessionRecord, error) {
	elements, err := s.readElements()
	if err != nil {
		return nil, err
	}
	records, skipped := decodeRecords(elements)
	if skipped > 0 {
		slog.Warn("JSONFileStore skipped unreadable records", "path", s.path, "skipped", skipped)
	}
	return records, nil
}

// readElements returns the raw array elements of the log. A missing or blank
// file has none; anything other than a JSON array is ErrCorruptStore.
func (s *JSONFileStore) readElements() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		slog.Error("JSONFileStore read failed", "error", err, "path", s.path)
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		slog.Warn("JSONFileStore log is not a JSON array", "error", err, "path", s.path)
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	return elements, nil
}

// quarantine moves a corrupt log aside so the next write starts fresh.
func (s *JSONFileStore) quarantine() error {
	dest := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, dest); err != nil {
		slog.Error("Failed to move corrupt session log aside", "error", err, "path", s.path)
		return fmt.Errorf("failed to quarantine corrupt session log: %w", err)
	}
	slog.Warn("Moved corrupt session log aside", "path", s.path, "dest", dest)
	return nil
}

func (s *JSONFileStore) write(elements []json.RawMessage) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, el := range elements {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		buf.Write(bytes.TrimSpace(el))
	}
	if len(elements) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]")
	data := buf.Bytes()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, DefaultFilePermissions); err != nil {
		slog.Warn("Failed to set session log permissions", "error", err, "path", tmpName)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace session log: %w", err)
	}
	return nil
}
