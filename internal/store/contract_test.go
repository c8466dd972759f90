package store

import (
	"context"
	"testing"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
	"github.com/BTreeMap/ReflectPipe/internal/testutil"
)

var contractBase = time.Date(2026, 10, 16, 8, 30, 0, 123456000, time.FixedZone("CEST", 2*60*60))

func contractSessions() []*models.Session {
	return []*models.Session{
		testutil.CompletedSession("s_1", models.SessionTypeMorning, contractBase.AddDate(0, 0, -1), map[string]models.Value{
			"mood": models.Number(4),
		}),
		testutil.CompletedSession("s_2", models.SessionTypeMorning, contractBase, map[string]models.Value{
			"sleep_quality":    models.Number(2),
			"sleep_disruption": models.Texts("noise", "screens"),
		}),
		testutil.CompletedSession("s_3", models.SessionTypeEvening, contractBase.Add(12*time.Hour), map[string]models.Value{
			"day_direction": models.Text("worse"),
			"day_worse":     models.Text("long meeting"),
			"mood":          models.Number(3),
		}),
	}
}

// testRepositoryContract checks the behavior every SessionRepository must share.
// repo must be empty.
func testRepositoryContract(t *testing.T, repo SessionRepository) {
	t.Helper()
	ctx := context.Background()

	empty, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll on empty repository failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty repository, got %d records", len(empty))
	}

	sessions := contractSessions()
	for _, s := range sessions {
		if err := repo.Append(ctx, models.NewSessionRecord(s)); err != nil {
			t.Fatalf("Append(%s) failed: %v", s.ID, err)
		}
	}
	// duplicates are kept
	if err := repo.Append(ctx, models.NewSessionRecord(sessions[1])); err != nil {
		t.Fatalf("duplicate Append failed: %v", err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	wantOrder := []string{"s_1", "s_2", "s_3", "s_2"}
	if len(all) != len(wantOrder) {
		t.Fatalf("ListAll returned %d records, want %d", len(all), len(wantOrder))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("record %d = %s, want %s", i, all[i].ID, id)
		}
	}
	for i, s := range sessions {
		testutil.AssertSessionEquals(t, s, all[i].Session(), "ListAll "+s.ID)
		if all[i].CompletedAt == nil {
			t.Errorf("record %s lost completedAt", s.ID)
		}
	}

	from, to := dayBounds(contractBase)
	day, err := repo.QueryByDateRange(ctx, from, to)
	if err != nil {
		t.Fatalf("QueryByDateRange failed: %v", err)
	}
	wantDay := []string{"s_2", "s_3", "s_2"}
	if len(day) != len(wantDay) {
		t.Fatalf("QueryByDateRange returned %d records, want %d", len(day), len(wantDay))
	}
	for i, id := range wantDay {
		if day[i].ID != id {
			t.Errorf("day record %d = %s, want %s", i, day[i].ID, id)
		}
	}

	// from is inclusive, to exclusive
	exact, err := repo.QueryByDateRange(ctx, contractBase, contractBase.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("QueryByDateRange failed: %v", err)
	}
	if len(exact) != 2 {
		t.Errorf("inclusive lower bound: got %d records, want 2", len(exact))
	}
	none, err := repo.QueryByDateRange(ctx, contractBase.Add(-time.Hour), contractBase)
	if err != nil {
		t.Fatalf("QueryByDateRange failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("exclusive upper bound: got %d records, want 0", len(none))
	}
}
