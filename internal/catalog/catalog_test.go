package catalog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

const sampleDocument = `
scenarios:
  - id: sample
    type: S
    title: Sample
    greeting: Hello
    closing_message: Bye
    questions:
      - id: A
        prompt: Rate it
        kind: numeric_scale
        scale: {min: 0, max: 10}
        required: true
      - id: B
        prompt: Better or worse?
        kind: single_choice
        options:
          - {value: better, label: Better}
          - {value: worse, label: Worse}
        follow_ups:
          - when: {op: equals, value: better}
            next: B1
          - when: {op: equals, value: worse}
            next: B2
      - id: C
        prompt: Anything else?
        kind: free_text
    follow_ups:
      - id: B1
        variant_of: B
        prompt: What went well?
        kind: free_text
      - id: B2
        variant_of: B
        prompt: What went wrong?
        kind: free_text
recommendations:
  - when: {question: A, op: lte, value: 3}
    text: Be gentle with yourself.
`

func TestDefault_ContainsDayPhases(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("built-in scenarios failed validation: %v", err)
	}
	types := c.Types()
	want := []models.SessionType{models.SessionTypeMorning, models.SessionTypeMidday, models.SessionTypeEvening}
	if len(types) != len(want) {
		t.Fatalf("expected %d types, got %v", len(want), types)
	}
	for i, st := range want {
		if types[i] != st {
			t.Errorf("type %d = %q, want %q", i, types[i], st)
		}
		s, err := c.Scenario(st)
		if err != nil {
			t.Fatalf("Scenario(%q) failed: %v", st, err)
		}
		if s.Type != st {
			t.Errorf("Scenario(%q) returned type %q", st, s.Type)
		}
	}
	if c.Recommendations() != nil {
		t.Error("built-in catalog should not carry its own rule table")
	}
}

func TestScenario_UnknownTypeFails(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = c.Scenario("night")
	if !errors.Is(err, models.ErrUnknownSessionType) {
		t.Fatalf("expected ErrUnknownSessionType, got %v", err)
	}
	var cfgErr *models.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.SessionType != "night" {
		t.Errorf("expected ConfigurationError for night, got %v", err)
	}
}

func TestScenario_ExplicitFallback(t *testing.T) {
	c, err := Default(WithFallback(models.SessionTypeEvening))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := c.Scenario("night")
	if err != nil {
		t.Fatalf("fallback lookup failed: %v", err)
	}
	if s.Type != models.SessionTypeEvening {
		t.Errorf("fallback returned %q, want evening", s.Type)
	}
}

func TestNew_RejectsUnregisteredFallback(t *testing.T) {
	_, err := Default(WithFallback("night"))
	if !errors.Is(err, models.ErrUnknownSessionType) {
		t.Errorf("expected ErrUnknownSessionType, got %v", err)
	}
}

func TestNew_RejectsDuplicateType(t *testing.T) {
	scenarios := Builtin()
	scenarios = append(scenarios, scenarios[0])
	scenarios[len(scenarios)-1].ID = "another-morning"
	if _, err := New(scenarios); !errors.Is(err, models.ErrInvalidScenario) {
		t.Errorf("expected ErrInvalidScenario for duplicate type, got %v", err)
	}
}

func TestNew_RejectsInvalidScenario(t *testing.T) {
	scenarios := Builtin()
	scenarios[2].FollowUps[0].VariantOf = "missing"
	_, err := New(scenarios)
	if !errors.Is(err, models.ErrInvalidScenario) || !errors.Is(err, models.ErrUnknownVariantBase) {
		t.Errorf("expected wrapped ErrUnknownVariantBase, got %v", err)
	}
}

func TestParse_SampleDocument(t *testing.T) {
	c, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	s, err := c.Scenario("S")
	if err != nil {
		t.Fatalf("Scenario(S) failed: %v", err)
	}
	if len(s.Questions) != 3 || len(s.FollowUps) != 2 {
		t.Fatalf("unexpected question counts: %d base, %d follow-ups", len(s.Questions), len(s.FollowUps))
	}
	b, _ := s.Question("B")
	if got := b.SelectFollowUp(models.Text("worse"), nil); got != "B2" {
		t.Errorf("decoded follow-up rule selected %q, want B2", got)
	}
	rules := c.Recommendations()
	if len(rules) != 1 || rules[0].When.Question != "A" {
		t.Fatalf("unexpected rules: %+v", rules)
	}
	if !rules[0].When.Matches(models.Number(2)) {
		t.Error("decoded rule should match 2 <= 3")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"no scenarios", "scenarios: []\n"},
		{"unknown field", strings.Replace(sampleDocument, "title: Sample", "titel: Sample", 1)},
		{"bad kind", strings.Replace(sampleDocument, "kind: free_text\n    follow_ups", "kind: slider\n    follow_ups", 1)},
		{"missing prompt", strings.Replace(sampleDocument, "prompt: Rate it", "prompt: \"\"", 1)},
		{"bad target", strings.Replace(sampleDocument, "next: B2", "next: B9", 1)},
		{"rule without question", strings.Replace(sampleDocument, "question: A, ", "", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("expected Parse to fail for %s", tt.name)
			}
		})
	}
}

func TestLoadFile_AndEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Builtin(), nil); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v\n%s", err, buf.String())
	}
	s, err := c.Scenario(models.SessionTypeEvening)
	if err != nil {
		t.Fatalf("Scenario(evening) failed: %v", err)
	}
	q, ok := s.Question("day_direction")
	if !ok || len(q.FollowUps) != 2 {
		t.Fatalf("day_direction follow-ups lost in round trip: %+v", q)
	}
	if got := q.SelectFollowUp(models.Text("better"), nil); got != "day_better" {
		t.Errorf("round-tripped rule selected %q, want day_better", got)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
