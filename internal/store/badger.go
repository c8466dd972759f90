// This file implements a Badger-backed session repository.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

const (
	badgerSessionPrefix = "session:"
	badgerSequenceKey   = "seq:sessions"
	badgerSequenceLease = 64
)

// badgerLogger routes Badger's internal logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// BadgerStore keeps records under monotonically increasing sequence keys,
// so key order is append order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore opens a Badger database in the directory given by the DSN,
// or in memory with WithBadgerInMemory.
func NewBadgerStore(opts ...Option) (*BadgerStore, error) {
	cfg := applyOpts(opts)
	path := strings.TrimPrefix(cfg.DSN, badgerScheme)
	slog.Debug("NewBadgerStore invoked", "path", path, "inMemory", cfg.BadgerInMemory)

	var bopts badger.Options
	if cfg.BadgerInMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if path == "" {
			slog.Error("BadgerStore path not set")
			return nil, errors.New("badger path is required for persistent database")
		}
		if err := os.MkdirAll(path, 0750); err != nil {
			slog.Error("Failed to create badger directory", "error", err, "path", path)
			return nil, fmt.Errorf("create database directory %s: %w", path, err)
		}
		bopts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: slog.Default()})

	db, err := badger.Open(bopts)
	if err != nil {
		slog.Error("Failed to open badger database", "error", err)
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence([]byte(badgerSequenceKey), badgerSequenceLease)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open badger sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

func badgerKey(n uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", badgerSessionPrefix, n))
}

func (s *BadgerStore) Append(ctx context.Context, rec models.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.ID, err)
	}
	n, err := s.seq.Next()
	if err != nil {
		slog.Error("BadgerStore sequence failed", "error", err)
		return fmt.Errorf("next session sequence: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(n), data)
	})
	if err != nil {
		slog.Error("BadgerStore Append failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to store session %s: %w", rec.ID, err)
	}
	slog.Debug("BadgerStore Append succeeded", "id", rec.ID, "seq", n)
	return nil
}

func (s *BadgerStore) ListAll(ctx context.Context) ([]models.SessionRecord, error) {
	var elements []json.RawMessage
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = []byte(badgerSessionPrefix)
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			elements = append(elements, v)
		}
		return nil
	})
	if err != nil {
		slog.Error("BadgerStore ListAll failed", "error", err)
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	records, skipped := decodeRecords(elements)
	if skipped > 0 {
		slog.Warn("BadgerStore skipped unreadable records", "skipped", skipped)
	}
	return records, nil
}

func (s *BadgerStore) QueryByDateRange(ctx context.Context, from, to time.Time) ([]models.SessionRecord, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByRange(all, from, to), nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	return errors.Join(s.seq.Release(), s.db.Close())
}
