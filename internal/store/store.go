// Package store provides the session repository port and its storage backends.
//
// Every backend is an append-only log of completed sessions. Records are never
// updated or deduplicated; ListAll and QueryByDateRange return them oldest first.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// ErrCorruptStore reports a backing store that could not be parsed.
var ErrCorruptStore = errors.New("session store is corrupt")

// SessionRepository is the storage port for completed sessions.
// Implementations must be safe for concurrent use.
type SessionRepository interface {
	// Append adds rec to the end of the log.
	Append(ctx context.Context, rec models.SessionRecord) error
	// ListAll returns every record, oldest first.
	ListAll(ctx context.Context) ([]models.SessionRecord, error)
	// QueryByDateRange returns records with from <= StartedAt < to, oldest first.
	QueryByDateRange(ctx context.Context, from, to time.Time) ([]models.SessionRecord, error)
	Close() error
}

// InMemoryStore keeps records in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.SessionRecord
}

// NewInMemoryStore creates an empty in-memory repository.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, rec models.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, cloneRecord(rec))
	slog.Debug("InMemoryStore Append succeeded", "id", rec.ID, "count", len(s.records))
	return nil
}

func (s *InMemoryStore) ListAll(ctx context.Context) ([]models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (s *InMemoryStore) QueryByDateRange(ctx context.Context, from, to time.Time) ([]models.SessionRecord, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByRange(all, from, to), nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
