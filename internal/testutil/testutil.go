// Package testutil provides common test fixtures and assertions for ReflectPipe tests.
// It depends only on models so every package can use it from its tests.
package testutil

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// ScenarioMap is a minimal scenario source keyed by session type.
type ScenarioMap map[models.SessionType]*models.Scenario

// Scenario returns the scenario for t or a *models.ConfigurationError.
func (m ScenarioMap) Scenario(t models.SessionType) (*models.Scenario, error) {
	if s, ok := m[t]; ok {
		return s, nil
	}
	return nil, &models.ConfigurationError{SessionType: t}
}

// NewScenarioMap indexes scenarios by their type.
func NewScenarioMap(scenarios ...models.Scenario) ScenarioMap {
	m := make(ScenarioMap, len(scenarios))
	for i := range scenarios {
		s := scenarios[i]
		m[s.Type] = &s
	}
	return m
}

// BranchingScenario returns scenario "S": A (scale 0-10), B (better/worse with
// follow-ups better->B1, worse->B2), C (free text), with B1 and B2 out of line.
func BranchingScenario() models.Scenario {
	return models.Scenario{
		ID:             "branching",
		Type:           "S",
		Title:          "Branching",
		Greeting:       "Hello.",
		ClosingMessage: "Thanks for reflecting.",
		Questions: []models.Question{
			{ID: "A", Prompt: "Rate your day", Kind: models.KindNumericScale,
				Scale: &models.ScaleRange{Min: 0, Max: 10}, Required: true},
			{ID: "B", Prompt: "Better or worse than yesterday?", Kind: models.KindSingleChoice,
				Options: []models.Option{{Value: "better", Label: "Better"}, {Value: "worse", Label: "Worse"}},
				FollowUps: []models.FollowUpRule{
					{When: models.Predicate{Op: models.OpEquals, Value: models.Text("better")}, Next: "B1"},
					{When: models.Predicate{Op: models.OpEquals, Value: models.Text("worse")}, Next: "B2"},
				}},
			{ID: "C", Prompt: "Anything else?", Kind: models.KindFreeText},
		},
		FollowUps: []models.Question{
			{ID: "B1", VariantOf: "B", Prompt: "What went well?", Kind: models.KindFreeText},
			{ID: "B2", VariantOf: "B", Prompt: "What went wrong?", Kind: models.KindFreeText},
		},
	}
}

// LinearScenario returns a scenario of type t with n free-text questions q1..qn
// and no follow-up rules.
func LinearScenario(t models.SessionType, n int) models.Scenario {
	s := models.Scenario{
		ID:             "linear-" + string(t),
		Type:           t,
		Title:          "Linear",
		ClosingMessage: "Done.",
	}
	for i := 1; i <= n; i++ {
		s.Questions = append(s.Questions, models.Question{
			ID:     "q" + strconv.Itoa(i),
			Prompt: "Question " + strconv.Itoa(i),
			Kind:   models.KindFreeText,
		})
	}
	return s
}

// InlineVariantScenario returns scenario "V": A may skip straight to C, and
// B has an inline variant BV placed right after it.
func InlineVariantScenario() models.Scenario {
	return models.Scenario{
		ID:             "inline-variant",
		Type:           "V",
		ClosingMessage: "Done.",
		Questions: []models.Question{
			{ID: "A", Prompt: "Skip ahead?", Kind: models.KindSingleChoice,
				Options: []models.Option{{Value: "skip", Label: "Skip"}, {Value: "stay", Label: "Stay"}},
				FollowUps: []models.FollowUpRule{
					{When: models.Predicate{Op: models.OpEquals, Value: models.Text("skip")}, Next: "C"},
				}},
			{ID: "B", Prompt: "How was lunch?", Kind: models.KindNumericScale, Scale: &models.ScaleRange{Min: 1, Max: 5}},
			{ID: "BV", VariantOf: "B", Prompt: "Tell me about lunch.", Kind: models.KindFreeText},
			{ID: "C", Prompt: "How was dinner?", Kind: models.KindFreeText},
			{ID: "D", Prompt: "Anything else?", Kind: models.KindFreeText},
		},
	}
}

// CompletedSession builds a completed session started at startedAt.
func CompletedSession(id string, t models.SessionType, startedAt time.Time, responses map[string]models.Value) *models.Session {
	if responses == nil {
		responses = map[string]models.Value{}
	}
	completedAt := startedAt.Add(5 * time.Minute)
	return &models.Session{
		ID:          id,
		SessionType: t,
		StartedAt:   startedAt,
		Responses:   responses,
		StepsTaken:  len(responses),
		TotalSteps:  len(responses),
		Completed:   true,
		CompletedAt: &completedAt,
	}
}

// AssertSessionEquals compares the persisted fields of two sessions.
func AssertSessionEquals(t *testing.T, expected, actual *models.Session, context string) {
	t.Helper()
	if actual == nil {
		t.Fatalf("%s: session is nil", context)
	}
	if actual.ID != expected.ID ||
		actual.SessionType != expected.SessionType ||
		!actual.StartedAt.Equal(expected.StartedAt) ||
		actual.StepsTaken != expected.StepsTaken ||
		actual.TotalSteps != expected.TotalSteps ||
		actual.Completed != expected.Completed {
		t.Errorf("%s: sessions don't match\nexpected: %+v\nactual: %+v", context, expected, actual)
	}

	if len(actual.Responses) != len(expected.Responses) {
		t.Errorf("%s: responses length mismatch: expected %d, got %d",
			context, len(expected.Responses), len(actual.Responses))
		return
	}
	for k, want := range expected.Responses {
		if got, ok := actual.Responses[k]; !ok || !got.Equal(want) {
			t.Errorf("%s: response %q mismatch: expected %v, got %v", context, k, want, got)
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}
