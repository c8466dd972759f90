package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

func TestFixturesValidate(t *testing.T) {
	fixtures := []models.Scenario{
		BranchingScenario(),
		LinearScenario("L", 4),
		InlineVariantScenario(),
	}
	for _, s := range fixtures {
		if err := s.Validate(); err != nil {
			t.Errorf("fixture %q failed validation: %v", s.ID, err)
		}
	}
}

func TestLinearScenario_QuestionIDs(t *testing.T) {
	s := LinearScenario("L", 12)
	if len(s.Questions) != 12 {
		t.Fatalf("expected 12 questions, got %d", len(s.Questions))
	}
	if s.Questions[0].ID != "q1" || s.Questions[11].ID != "q12" {
		t.Errorf("unexpected ids: %q ... %q", s.Questions[0].ID, s.Questions[11].ID)
	}
}

func TestScenarioMap(t *testing.T) {
	m := NewScenarioMap(BranchingScenario(), LinearScenario("L", 2))
	s, err := m.Scenario("S")
	if err != nil || s.ID != "branching" {
		t.Fatalf("Scenario(S) = %v, %v", s, err)
	}
	if _, err := m.Scenario("missing"); !errors.Is(err, models.ErrUnknownSessionType) {
		t.Errorf("expected ErrUnknownSessionType, got %v", err)
	}
}

func TestCompletedSession(t *testing.T) {
	started := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	s := CompletedSession("s_1", models.SessionTypeMorning, started, map[string]models.Value{"mood": models.Number(4)})
	if !s.Completed || s.CompletedAt == nil || !s.CompletedAt.After(started) {
		t.Errorf("unexpected completion fields: %+v", s)
	}
	AssertSessionEquals(t, s, s.Clone(), "clone")
}

func TestMustMarshalJSON(t *testing.T) {
	data := MustMarshalJSON(t, map[string]models.Value{"mood": models.Number(7)})
	if string(data) != `{"mood":7}` {
		t.Errorf("MustMarshalJSON() = %s", data)
	}
}
