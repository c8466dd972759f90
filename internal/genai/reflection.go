package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// ReflectionSystemPrompt frames the model as a supportive journaling companion.
const ReflectionSystemPrompt = `You are a warm, concise journaling companion. ` +
	`Given a person's answers to a short self-reflection check-in, write two or three sentences ` +
	`that reflect back what they shared and offer one gentle, practical thought. ` +
	`Do not diagnose, do not give medical advice, and do not repeat the questions.`

// Generator produces text from a system and user prompt. *Client implements it.
type Generator interface {
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ReflectionWriter turns a completed session into a short personal reflection.
type ReflectionWriter struct {
	gen          Generator
	systemPrompt string
}

// NewReflectionWriter creates a writer using gen with the default system prompt.
func NewReflectionWriter(gen Generator) *ReflectionWriter {
	return &ReflectionWriter{gen: gen, systemPrompt: ReflectionSystemPrompt}
}

// Write asks the model for a reflection on session s.
func (w *ReflectionWriter) Write(ctx context.Context, sc *models.Scenario, s *models.Session, recommendations []string) (string, error) {
	text, err := w.gen.GeneratePrompt(ctx, w.systemPrompt, BuildReflectionPrompt(sc, s, recommendations))
	if err != nil {
		return "", fmt.Errorf("write reflection for %s: %w", s.ID, err)
	}
	return strings.TrimSpace(text), nil
}

// BuildReflectionPrompt lists the answered questions in scenario order, variants
// after their base question, followed by any recommendations already shown.
func BuildReflectionPrompt(sc *models.Scenario, s *models.Session, recommendations []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Check-in: %s\n", sc.Title)
	for _, q := range orderedQuestions(sc) {
		v, ok := s.Responses[q.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", q.Prompt, answerText(q, v))
	}
	if len(recommendations) > 0 {
		b.WriteString("Suggestions already given:\n")
		for _, r := range recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return b.String()
}

func orderedQuestions(sc *models.Scenario) []*models.Question {
	var out []*models.Question
	for i := range sc.Questions {
		q := &sc.Questions[i]
		out = append(out, q)
		for j := range sc.FollowUps {
			if sc.FollowUps[j].VariantOf == q.ID {
				out = append(out, &sc.FollowUps[j])
			}
		}
	}
	return out
}

// answerText renders choice answers by their labels.
func answerText(q *models.Question, v models.Value) string {
	if t, ok := v.Text(); ok && strings.TrimSpace(t) == "" {
		return "(skipped)"
	}
	if len(q.Options) == 0 {
		return v.String()
	}
	labels := make(map[string]string, len(q.Options))
	for _, o := range q.Options {
		labels[o.Value] = o.Label
	}
	var parts []string
	switch {
	case v.Kind() == models.ValueTextList:
		parts = v.Texts()
	case v.Len() == 1:
		parts = []string{v.String()}
	default:
		return v.String()
	}
	for i, p := range parts {
		if l, ok := labels[p]; ok && l != "" {
			parts[i] = l
		}
	}
	return strings.Join(parts, ", ")
}
