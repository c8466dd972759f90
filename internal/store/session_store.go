package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// SessionStore is the persistence service used by presentation code. Reads never
// fail: an unreadable repository is reported as empty and logged.
type SessionStore struct {
	repo SessionRepository
	now  func() time.Time
}

// ServiceOption configures a SessionStore.
type ServiceOption func(*SessionStore)

// WithClock sets the clock whose time and location define "today".
func WithClock(now func() time.Time) ServiceOption {
	return func(s *SessionStore) {
		s.now = now
	}
}

// NewSessionStore wraps repo.
func NewSessionStore(repo SessionRepository, opts ...ServiceOption) *SessionStore {
	s := &SessionStore{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save appends a snapshot of a completed session. Saving the same session twice
// stores two records.
func (s *SessionStore) Save(ctx context.Context, session *models.Session) error {
	if session == nil || !session.Completed {
		slog.Warn("SessionStore refused to save incomplete session")
		return models.ErrSessionNotCompleted
	}
	slog.Debug("SessionStore Save invoked", "sessionID", session.ID, "sessionType", session.SessionType)
	if err := s.repo.Append(ctx, models.NewSessionRecord(session)); err != nil {
		slog.Error("SessionStore Save failed", "sessionID", session.ID, "error", err)
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	slog.Debug("SessionStore Save succeeded", "sessionID", session.ID)
	return nil
}

// ListAll returns every persisted session, oldest first.
func (s *SessionStore) ListAll(ctx context.Context) []*models.Session {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		slog.Warn("SessionStore treating unreadable store as empty", "error", err)
		return []*models.Session{}
	}
	return toSessions(recs)
}

// ListToday returns sessions whose StartedAt falls on today's date in the
// clock's location at call time.
func (s *SessionStore) ListToday(ctx context.Context) []*models.Session {
	now := s.now()
	from, to := dayBounds(now)
	recs, err := s.repo.QueryByDateRange(ctx, from, to)
	if err != nil {
		slog.Warn("SessionStore treating unreadable store as empty", "error", err)
		return []*models.Session{}
	}

	y, m, d := now.Date()
	today := make([]models.SessionRecord, 0, len(recs))
	for _, rec := range recs {
		ry, rm, rd := rec.StartedAt.In(now.Location()).Date()
		if ry == y && rm == m && rd == d {
			today = append(today, rec)
		}
	}
	slog.Debug("SessionStore ListToday", "from", from, "to", to, "count", len(today))
	return toSessions(today)
}

// TypesUsedToday reports which session types already have a session today.
func (s *SessionStore) TypesUsedToday(ctx context.Context) map[models.SessionType]bool {
	used := make(map[models.SessionType]bool)
	for _, session := range s.ListToday(ctx) {
		used[session.SessionType] = true
	}
	return used
}

// Close closes the underlying repository.
func (s *SessionStore) Close() error {
	return s.repo.Close()
}

// dayBounds returns local midnight of t's date and the following midnight.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func toSessions(recs []models.SessionRecord) []*models.Session {
	out := make([]*models.Session, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Session())
	}
	return out
}
