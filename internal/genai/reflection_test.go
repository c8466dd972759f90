package genai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
	"github.com/BTreeMap/ReflectPipe/internal/testutil"
)

type stubGenerator struct {
	out          string
	err          error
	systemPrompt string
	userPrompt   string
}

func (g *stubGenerator) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.systemPrompt = systemPrompt
	g.userPrompt = userPrompt
	return g.out, g.err
}

func branchingSession() (*models.Scenario, *models.Session) {
	sc := testutil.BranchingScenario()
	s := testutil.CompletedSession("s_1", sc.Type, time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC), map[string]models.Value{
		"A":  models.Number(7),
		"B":  models.Text("worse"),
		"B2": models.Text("stress"),
		"C":  models.Text("a walk"),
	})
	return &sc, s
}

func TestBuildReflectionPrompt_Order(t *testing.T) {
	sc, s := branchingSession()
	prompt := BuildReflectionPrompt(sc, s, []string{"Take a break."})

	var positions []int
	for _, id := range []string{"A", "B", "B2", "C"} {
		q, ok := sc.Question(id)
		if !ok {
			t.Fatalf("fixture lacks question %s", id)
		}
		idx := strings.Index(prompt, "Q: "+q.Prompt)
		if idx < 0 {
			t.Fatalf("prompt does not contain question %s:\n%s", id, prompt)
		}
		positions = append(positions, idx)
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] < positions[i-1] {
			t.Errorf("questions out of scenario order:\n%s", prompt)
		}
	}
	if !strings.Contains(prompt, "A: 7\n") {
		t.Errorf("numeric answer missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Take a break.") {
		t.Errorf("recommendations missing:\n%s", prompt)
	}
}

func TestBuildReflectionPrompt_UsesLabels(t *testing.T) {
	sc, s := branchingSession()
	prompt := BuildReflectionPrompt(sc, s, nil)
	b, _ := sc.Question("B")
	var worse string
	for _, o := range b.Options {
		if o.Value == "worse" {
			worse = o.Label
		}
	}
	if worse == "" {
		t.Fatal("fixture lacks a label for worse")
	}
	if !strings.Contains(prompt, "A: "+worse+"\n") {
		t.Errorf("expected label %q in prompt:\n%s", worse, prompt)
	}
	if strings.Contains(prompt, "Suggestions") {
		t.Errorf("no suggestions section expected:\n%s", prompt)
	}
}

func TestBuildReflectionPrompt_SkippedAnswer(t *testing.T) {
	sc, s := branchingSession()
	s.Responses["B"] = models.Text("")
	prompt := BuildReflectionPrompt(sc, s, nil)
	b, _ := sc.Question("B")
	if !strings.Contains(prompt, "Q: "+b.Prompt+"\nA: (skipped)\n") {
		t.Errorf("skipped answer not marked:\n%s", prompt)
	}
}

func TestReflectionWriter_Write(t *testing.T) {
	sc, s := branchingSession()
	gen := &stubGenerator{out: "  You noticed stress today.\n"}
	w := NewReflectionWriter(gen)
	out, err := w.Write(context.Background(), sc, s, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "You noticed stress today." {
		t.Errorf("expected trimmed output, got %q", out)
	}
	if gen.systemPrompt != ReflectionSystemPrompt {
		t.Error("default system prompt not used")
	}
	if gen.userPrompt != BuildReflectionPrompt(sc, s, nil) {
		t.Errorf("unexpected user prompt:\n%s", gen.userPrompt)
	}
}

func TestReflectionWriter_Error(t *testing.T) {
	sc, s := branchingSession()
	w := NewReflectionWriter(&stubGenerator{err: ErrNoChoicesReturned})
	if _, err := w.Write(context.Background(), sc, s, nil); !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected wrapped ErrNoChoicesReturned, got %v", err)
	}
}
