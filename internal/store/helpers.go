package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// sessionColumns is the column list shared by the SQL backends.
const sessionColumns = `id, session_type, started_at, responses, steps_taken, total_steps, completed, completed_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// cloneRecord deep-copies rec so callers cannot alias stored responses.
func cloneRecord(rec models.SessionRecord) models.SessionRecord {
	return models.NewSessionRecord(rec.Session())
}

// filterByRange keeps records with from <= StartedAt < to, preserving order.
func filterByRange(recs []models.SessionRecord, from, to time.Time) []models.SessionRecord {
	out := make([]models.SessionRecord, 0, len(recs))
	for _, rec := range recs {
		if !rec.StartedAt.Before(from) && rec.StartedAt.Before(to) {
			out = append(out, rec)
		}
	}
	return out
}

// formatTime renders t for text columns without losing precision or offset.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// nilIfNoTime returns nil for a missing timestamp, otherwise its text form.
// Used for nullable database columns.
func nilIfNoTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// recordArgs returns the values for sessionColumns in order.
func recordArgs(rec models.SessionRecord) ([]any, error) {
	responses, err := rec.ResponsesJSON()
	if err != nil {
		return nil, fmt.Errorf("encode responses of %s: %w", rec.ID, err)
	}
	return []any{
		rec.ID, string(rec.SessionType), formatTime(rec.StartedAt), responses,
		rec.StepsTaken, rec.TotalSteps, rec.Completed, nilIfNoTime(rec.CompletedAt),
	}, nil
}

// scanRecord scans one row selected with sessionColumns.
func scanRecord(row rowScanner) (models.SessionRecord, error) {
	var (
		rec         models.SessionRecord
		sessionType string
		startedAt   string
		responses   string
		completedAt sql.NullString
	)
	if err := row.Scan(&rec.ID, &sessionType, &startedAt, &responses,
		&rec.StepsTaken, &rec.TotalSteps, &rec.Completed, &completedAt); err != nil {
		return rec, fmt.Errorf("scan session row failed: %w", err)
	}
	rec.SessionType = models.SessionType(sessionType)

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return rec, fmt.Errorf("session %s has bad started_at %q: %w", rec.ID, startedAt, err)
	}
	rec.StartedAt = t
	if completedAt.Valid {
		ct, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return rec, fmt.Errorf("session %s has bad completed_at %q: %w", rec.ID, completedAt.String, err)
		}
		rec.CompletedAt = &ct
	}
	if err := rec.SetResponsesJSON(responses); err != nil {
		return rec, fmt.Errorf("session %s has bad responses: %w", rec.ID, err)
	}
	return rec, nil
}

// collectRecords scans every row selected with sessionColumns. Rows that fail
// to scan or decode are skipped with a warning; only iteration errors fail.
func collectRecords(rows *sql.Rows, backend string) ([]models.SessionRecord, error) {
	var records []models.SessionRecord
	skipped := 0
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			slog.Warn("Skipping unreadable session row", "backend", backend, "error", err)
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("Session rows iteration failed", "backend", backend, "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("Session rows collected", "backend", backend, "count", len(records), "skipped", skipped)
	return records, nil
}

// decodeRecords decodes one JSON record per element, skipping elements that fail
// to decode or carry no id.
// It returns the number of skipped elements.
func decodeRecords(elements []json.RawMessage) ([]models.SessionRecord, int) {
	out := make([]models.SessionRecord, 0, len(elements))
	skipped := 0
	for _, raw := range elements {
		var rec models.SessionRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == "" {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, skipped
}
