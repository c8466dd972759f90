package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/ReflectPipe/internal/models"
	"github.com/BTreeMap/ReflectPipe/internal/testutil"
)

func TestLinePrompter_Ask(t *testing.T) {
	sc := testutil.BranchingScenario()
	a, _ := sc.Question("A")
	b, _ := sc.Question("B")

	tests := []struct {
		name  string
		q     *models.Question
		input string
		want  models.Value
	}{
		{"scale", a, "7\n", models.Number(7)},
		{"choice by value", b, "worse\n", models.Text("worse")},
		{"choice by label", b, "Better\n", models.Text("better")},
		{"choice by position", b, "2\n", models.Text("worse")},
		{"windows line ending", a, "3\r\n", models.Number(3)},
		{"last line without newline", a, "4", models.Number(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			lp := NewLinePrompter(strings.NewReader(tt.input), &out)
			got, err := lp.Ask(context.Background(), tt.q, Progress{Answered: 1, Total: 3})
			if err != nil {
				t.Fatalf("Ask failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "[1/3] "+tt.q.Prompt) {
				t.Errorf("prompt not shown with progress:\n%s", out.String())
			}
		})
	}
}

func TestLinePrompter_RetriesInvalidInput(t *testing.T) {
	sc := testutil.BranchingScenario()
	a, _ := sc.Question("A")
	var out bytes.Buffer
	lp := NewLinePrompter(strings.NewReader("eleven\n11\n\n9\n"), &out)

	got, err := lp.Ask(context.Background(), a, Progress{})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if !got.Equal(models.Number(9)) {
		t.Errorf("got %v, want 9", got)
	}
	if n := strings.Count(out.String(), "Please try again."); n != 3 {
		t.Errorf("expected 3 retries, got %d:\n%s", n, out.String())
	}
	if strings.Contains(out.String(), models.ErrInvalidResponse.Error()+":") {
		t.Errorf("sentinel prefix leaked into user output:\n%s", out.String())
	}
}

func TestLinePrompter_EOFAborts(t *testing.T) {
	sc := testutil.BranchingScenario()
	a, _ := sc.Question("A")
	for _, input := range []string{"", "not a number"} {
		lp := NewLinePrompter(strings.NewReader(input), &bytes.Buffer{})
		if _, err := lp.Ask(context.Background(), a, Progress{}); !errors.Is(err, ErrAborted) {
			t.Errorf("input %q: expected ErrAborted, got %v", input, err)
		}
	}
}

func TestLinePrompter_ContextCanceled(t *testing.T) {
	sc := testutil.BranchingScenario()
	a, _ := sc.Question("A")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lp := NewLinePrompter(strings.NewReader("5\n"), &bytes.Buffer{})
	if _, err := lp.Ask(ctx, a, Progress{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
