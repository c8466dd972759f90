package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestValue_JSONDecoding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Value
		wantErr bool
	}{
		{"number", `7`, Number(7), false},
		{"text", `"worse"`, Text("worse"), false},
		{"numbers", `[1, 2.5]`, Numbers(1, 2.5), false},
		{"texts", `["calm","tired"]`, Texts("calm", "tired"), false},
		{"empty list", `[]`, Texts(), false},
		{"null", `null`, Value{}, false},
		{"mixed list", `[1,"a"]`, Value{}, true},
		{"bool", `true`, Value{}, true},
		{"object", `{"a":1}`, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error decoding %s, got value %v", tt.input, v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !v.Equal(tt.want) {
				t.Errorf("decoded %s as %#v, want %#v", tt.input, v, tt.want)
			}
		})
	}
}

func TestValue_YAMLDecoding(t *testing.T) {
	var doc struct {
		A Value `yaml:"a"`
		B Value `yaml:"b"`
		C Value `yaml:"c"`
	}
	input := "a: 3\nb: worse\nc: [low, medium]\n"
	if err := yaml.Unmarshal([]byte(input), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.A.Equal(Number(3)) {
		t.Errorf("a = %#v, want 3", doc.A)
	}
	if !doc.B.Equal(Text("worse")) {
		t.Errorf("b = %#v, want worse", doc.B)
	}
	if !doc.C.Equal(Texts("low", "medium")) {
		t.Errorf("c = %#v, want [low medium]", doc.C)
	}
}

func TestValue_String(t *testing.T) {
	if got := Number(7).String(); got != "7" {
		t.Errorf("Number(7).String() = %q", got)
	}
	if got := Numbers(1, 2.5).String(); got != "1, 2.5" {
		t.Errorf("Numbers(1, 2.5).String() = %q", got)
	}
	if got := Texts("a", "b").String(); got != "a, b" {
		t.Errorf("Texts(a, b).String() = %q", got)
	}
}

func TestPredicate_Matches(t *testing.T) {
	tests := []struct {
		name string
		p    Predicate
		v    Value
		want bool
	}{
		{"equals text", Predicate{Op: OpEquals, Value: Text("worse")}, Text("worse"), true},
		{"equals text miss", Predicate{Op: OpEquals, Value: Text("worse")}, Text("better"), false},
		{"equals number", Predicate{Op: OpEquals, Value: Number(3)}, Number(3), true},
		{"equals list contains", Predicate{Op: OpEquals, Value: Text("tired")}, Texts("calm", "tired"), true},
		{"lte hit", Predicate{Op: OpLTE, Value: Number(3)}, Number(3), true},
		{"lte miss", Predicate{Op: OpLTE, Value: Number(3)}, Number(4), false},
		{"gte hit", Predicate{Op: OpGTE, Value: Number(7)}, Number(9), true},
		{"gte on text", Predicate{Op: OpGTE, Value: Number(7)}, Text("9"), false},
		{"in scalar", Predicate{Op: OpIn, Value: Texts("a", "b")}, Text("b"), true},
		{"in list any", Predicate{Op: OpIn, Value: Texts("a", "b")}, Texts("x", "a"), true},
		{"in miss", Predicate{Op: OpIn, Value: Numbers(1, 2)}, Number(3), false},
		{"zero value", Predicate{Op: OpLTE, Value: Number(3)}, Value{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Matches(tt.v); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestPredicate_EvaluateReadsOtherQuestion(t *testing.T) {
	p := Predicate{Op: OpLTE, Question: "mood", Value: Number(3)}
	responses := map[string]Value{"mood": Number(2)}

	if !p.Evaluate(Text("ignored"), responses) {
		t.Error("expected predicate on recorded mood to match")
	}
	if p.Evaluate(Number(1), map[string]Value{}) {
		t.Error("predicate on missing question must not match")
	}
}

func TestPredicate_Validate(t *testing.T) {
	valid := []Predicate{
		{Op: OpEquals, Value: Text("x")},
		{Op: OpLTE, Value: Number(1)},
		{Op: OpIn, Value: Texts("a")},
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("Validate(%+v) unexpected error: %v", p, err)
		}
	}
	invalid := []Predicate{
		{Op: OpEquals},
		{Op: OpGTE, Value: Text("x")},
		{Op: OpIn, Value: Text("a")},
		{Op: "between", Value: Number(1)},
	}
	for _, p := range invalid {
		if err := p.Validate(); !errors.Is(err, ErrInvalidPredicate) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidPredicate", p, err)
		}
	}
}

func testQuestion(kind QuestionKind) *Question {
	q := &Question{ID: "q", Prompt: "Question?", Kind: kind, Required: true}
	switch kind {
	case KindNumericScale, KindLabeledScale:
		q.Scale = &ScaleRange{Min: 0, Max: 10}
		if kind == KindLabeledScale {
			q.Options = []Option{{Value: "0", Label: "Awful"}, {Value: "10", Label: "Great"}}
		}
	case KindSingleChoice, KindMultiChoice:
		q.Options = []Option{{Value: "better", Label: "Better"}, {Value: "worse", Label: "Worse"}}
	}
	return q
}

func TestQuestion_Check(t *testing.T) {
	tests := []struct {
		name    string
		kind    QuestionKind
		v       Value
		wantErr bool
	}{
		{"scale ok", KindNumericScale, Number(7), false},
		{"scale out of range", KindNumericScale, Number(11), true},
		{"scale fractional", KindNumericScale, Number(2.5), true},
		{"scale text", KindNumericScale, Text("7"), true},
		{"single ok", KindSingleChoice, Text("worse"), false},
		{"single unknown", KindSingleChoice, Text("same"), true},
		{"multi ok", KindMultiChoice, Texts("better", "worse"), false},
		{"multi empty required", KindMultiChoice, Texts(), true},
		{"multi unknown", KindMultiChoice, Texts("same"), true},
		{"text ok", KindFreeText, Text("hello"), false},
		{"text blank required", KindFreeText, Text("   "), true},
		{"text number", KindFreeText, Number(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testQuestion(tt.kind).Check(tt.v)
			if tt.wantErr && !errors.Is(err, ErrInvalidResponse) {
				t.Errorf("Check(%v) = %v, want ErrInvalidResponse", tt.v, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Check(%v) unexpected error: %v", tt.v, err)
			}
		})
	}
}

func TestQuestion_CheckOptionalFreeText(t *testing.T) {
	q := testQuestion(KindFreeText)
	q.Required = false
	if err := q.Check(Text("")); err != nil {
		t.Errorf("optional free text should accept empty answer: %v", err)
	}
}

func TestQuestion_OptionalQuestionsCanBeSkipped(t *testing.T) {
	for _, kind := range []QuestionKind{KindNumericScale, KindLabeledScale, KindSingleChoice} {
		q := testQuestion(kind)
		if err := q.Check(Text("")); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("%s: required question accepted a skip: %v", kind, err)
		}
		if _, err := ParseResponse(q, "  "); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("%s: required question parsed blank input: %v", kind, err)
		}

		q.Required = false
		if !q.Skippable() {
			t.Errorf("%s: optional question should be skippable", kind)
		}
		if err := q.Check(Text("")); err != nil {
			t.Errorf("%s: optional question rejected a skip: %v", kind, err)
		}
		v, err := ParseResponse(q, "  ")
		if err != nil || !v.Equal(Text("")) {
			t.Errorf("%s: ParseResponse(blank) = %v, %v", kind, v, err)
		}
		if err := q.Check(Text("nope")); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("%s: optional question accepted garbage: %v", kind, err)
		}
	}

	multi := testQuestion(KindMultiChoice)
	multi.Required = false
	if multi.Skippable() {
		t.Error("multi choice skips with an empty list, not a blank text")
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name  string
		kind  QuestionKind
		input string
		want  Value
	}{
		{"scale number", KindNumericScale, " 7 ", Number(7)},
		{"labeled scale label", KindLabeledScale, "great", Number(10)},
		{"single by value", KindSingleChoice, "worse", Text("worse")},
		{"single by label", KindSingleChoice, "Better", Text("better")},
		{"single by index", KindSingleChoice, "2", Text("worse")},
		{"multi mixed", KindMultiChoice, "1, Worse", Texts("better", "worse")},
		{"free text", KindFreeText, "  long day ", Text("long day")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(testQuestion(tt.kind), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseResponse(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseResponse(testQuestion(KindSingleChoice), "3"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected out-of-range index to fail, got %v", err)
	}
}

func validScenario() Scenario {
	return Scenario{
		ID:   "s",
		Type: "S",
		Questions: []Question{
			{ID: "A", Prompt: "A?", Kind: KindNumericScale, Scale: &ScaleRange{Min: 0, Max: 10}},
			{ID: "B", Prompt: "B?", Kind: KindSingleChoice,
				Options: []Option{{Value: "better", Label: "Better"}, {Value: "worse", Label: "Worse"}},
				FollowUps: []FollowUpRule{
					{When: Predicate{Op: OpEquals, Value: Text("better")}, Next: "B1"},
					{When: Predicate{Op: OpEquals, Value: Text("worse")}, Next: "B2"},
				}},
			{ID: "C", Prompt: "C?", Kind: KindFreeText},
		},
		FollowUps: []Question{
			{ID: "B1", Prompt: "B1?", Kind: KindFreeText, VariantOf: "B"},
			{ID: "B2", Prompt: "B2?", Kind: KindFreeText, VariantOf: "B"},
		},
	}
}

func TestScenario_Validate(t *testing.T) {
	s := validScenario()
	if err := s.Validate(); err != nil {
		t.Fatalf("valid scenario rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *Scenario)
		want   error
	}{
		{"empty id", func(s *Scenario) { s.ID = "" }, ErrEmptyScenarioID},
		{"empty type", func(s *Scenario) { s.Type = "" }, ErrEmptySessionType},
		{"no questions", func(s *Scenario) { s.Questions = nil }, ErrNoQuestions},
		{"duplicate id", func(s *Scenario) { s.FollowUps[0].ID = "A" }, ErrDuplicateQuestionID},
		{"missing prompt", func(s *Scenario) { s.Questions[2].Prompt = "" }, ErrEmptyPrompt},
		{"bad kind", func(s *Scenario) { s.Questions[2].Kind = "slider" }, ErrInvalidQuestionKind},
		{"choice without options", func(s *Scenario) { s.Questions[1].Options = nil }, ErrMissingOptions},
		{"inverted scale", func(s *Scenario) { s.Questions[0].Scale = &ScaleRange{Min: 5, Max: 1} }, ErrInvalidScale},
		{"orphan follow-up", func(s *Scenario) { s.FollowUps[0].VariantOf = "" }, ErrOrphanFollowUp},
		{"unknown base", func(s *Scenario) { s.FollowUps[0].VariantOf = "Z" }, ErrUnknownVariantBase},
		{"unknown target", func(s *Scenario) { s.Questions[1].FollowUps[0].Next = "Z" }, ErrUnknownFollowUpTarget},
		{"inline variant first", func(s *Scenario) { s.Questions[0].VariantOf = "C" }, ErrVariantBeforeBase},
		{"bad predicate", func(s *Scenario) { s.Questions[1].FollowUps[0].When.Op = "near" }, ErrInvalidPredicate},
		{"variant of another base", func(s *Scenario) {
			s.Questions[0].FollowUps = []FollowUpRule{{When: Predicate{Op: OpLTE, Value: Number(3)}, Next: "B2"}}
		}, ErrForeignVariantTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScenario_ValidateAllowsSiblingVariantTarget(t *testing.T) {
	s := validScenario()
	s.FollowUps[1].FollowUps = []FollowUpRule{{When: Predicate{Op: OpEquals, Value: Text("more")}, Next: "B1"}}
	if err := s.Validate(); err != nil {
		t.Errorf("rule from B2 to sibling B1 rejected: %v", err)
	}
}

func TestQuestion_SelectFollowUp(t *testing.T) {
	s := validScenario()
	b, _ := s.Question("B")
	if got := b.SelectFollowUp(Text("worse"), nil); got != "B2" {
		t.Errorf("SelectFollowUp(worse) = %q, want B2", got)
	}
	if got := b.SelectFollowUp(Text("other"), nil); got != "" {
		t.Errorf("SelectFollowUp(other) = %q, want empty", got)
	}
}

func TestSessionRecord_RoundTrip(t *testing.T) {
	completed := time.Date(2026, 10, 16, 20, 5, 0, 0, time.UTC)
	s := &Session{
		ID:          "s_1",
		SessionType: SessionTypeEvening,
		StartedAt:   time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC),
		Responses:   map[string]Value{"mood": Number(7), "feelings": Texts("calm")},
		StepsTaken:  4,
		TotalSteps:  3,
		Completed:   true,
		CompletedAt: &completed,
	}
	data, err := json.Marshal(NewSessionRecord(s))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	got := rec.Session()
	if got.ID != s.ID || got.SessionType != s.SessionType || !got.StartedAt.Equal(s.StartedAt) ||
		got.StepsTaken != 4 || got.TotalSteps != 3 || !got.Completed || !got.CompletedAt.Equal(completed) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Responses["mood"].Equal(Number(7)) || !got.Responses["feelings"].Equal(Texts("calm")) {
		t.Errorf("responses mismatch: %+v", got.Responses)
	}
}

func TestSessionRecord_LegacyMissingKeys(t *testing.T) {
	var rec SessionRecord
	if err := json.Unmarshal([]byte(`{"id":"old","sessionType":"morning","startedAt":"2024-01-02T08:00:00Z"}`), &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Responses == nil {
		t.Error("missing responses should decode as an empty map")
	}
	if rec.Completed || rec.StepsTaken != 0 || rec.CompletedAt != nil {
		t.Errorf("missing keys should decode to zero values: %+v", rec)
	}
}

func TestConfigurationError(t *testing.T) {
	var err error = &ConfigurationError{SessionType: "night"}
	if !errors.Is(err, ErrUnknownSessionType) {
		t.Error("ConfigurationError should unwrap to ErrUnknownSessionType")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.SessionType != "night" {
		t.Errorf("errors.As failed: %v", err)
	}
}
