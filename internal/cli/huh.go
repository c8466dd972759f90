package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// HuhPrompter asks questions with interactive terminal forms.
type HuhPrompter struct {
	accessible bool
}

// NewHuhPrompter creates a form prompter. Accessible mode replaces the TUI with
// screen-reader friendly prompts.
func NewHuhPrompter(accessible bool) *HuhPrompter {
	return &HuhPrompter{accessible: accessible}
}

// Ask renders q as a single-field form.
func (hp *HuhPrompter) Ask(ctx context.Context, q *models.Question, p Progress) (models.Value, error) {
	title := fmt.Sprintf("%s %s", p, q.Prompt)
	var (
		field   huh.Field
		collect func() models.Value
	)

	switch {
	case q.Kind.IsScale():
		var n int
		if q.Scale != nil {
			n = q.Scale.Min
		}
		field = huh.NewSelect[int]().Title(title).Description(scaleDescription(q)).
			Options(scaleOptions(q)...).Value(&n)
		collect = func() models.Value {
			if q.Skippable() && n == skippedScaleValue(q) {
				return models.Text("")
			}
			return models.Number(float64(n))
		}
	case q.Kind == models.KindSingleChoice:
		var s string
		field = huh.NewSelect[string]().Title(title).Options(choiceOptions(q)...).Value(&s)
		collect = func() models.Value { return models.Text(s) }
	case q.Kind == models.KindMultiChoice:
		var ss []string
		field = huh.NewMultiSelect[string]().Title(title).Options(choiceOptions(q)...).Value(&ss).
			Validate(func(vs []string) error { return check(q, models.Texts(vs...)) })
		collect = func() models.Value { return models.Texts(ss...) }
	default:
		var s string
		field = huh.NewInput().Title(title).Value(&s).
			Validate(func(v string) error { return check(q, models.Text(strings.TrimSpace(v))) })
		collect = func() models.Value { return models.Text(strings.TrimSpace(s)) }
	}

	form := huh.NewForm(huh.NewGroup(field)).WithAccessible(hp.accessible)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return models.Value{}, ErrAborted
		}
		return models.Value{}, fmt.Errorf("prompt %s: %w", q.ID, err)
	}
	return collect(), nil
}

func check(q *models.Question, v models.Value) error {
	if err := q.Check(v); err != nil {
		return errors.New(reason(err))
	}
	return nil
}

// SkipLabel is the option that leaves an optional question unanswered.
const SkipLabel = "Skip"

// skippedScaleValue sits just below the scale and stands for SkipLabel.
func skippedScaleValue(q *models.Question) int {
	return q.Scale.Min - 1
}

// scaleOptions lists every point of the scale, labeled from the question's
// options or end-point labels, then Skip for optional questions.
func scaleOptions(q *models.Question) []huh.Option[int] {
	if q.Scale == nil {
		return nil
	}
	opts := make([]huh.Option[int], 0, q.Scale.Max-q.Scale.Min+2)
	for n := q.Scale.Min; n <= q.Scale.Max; n++ {
		key := strconv.Itoa(n)
		if o, ok := q.Option(key); ok {
			key = fmt.Sprintf("%d - %s", n, o.Label)
		} else if n == q.Scale.Min && q.Scale.MinLabel != "" {
			key = fmt.Sprintf("%d - %s", n, q.Scale.MinLabel)
		} else if n == q.Scale.Max && q.Scale.MaxLabel != "" {
			key = fmt.Sprintf("%d - %s", n, q.Scale.MaxLabel)
		}
		opts = append(opts, huh.NewOption(key, n))
	}
	if q.Skippable() {
		opts = append(opts, huh.NewOption(SkipLabel, skippedScaleValue(q)))
	}
	return opts
}

func scaleDescription(q *models.Question) string {
	if q.Scale == nil {
		return ""
	}
	return fmt.Sprintf("%d to %d", q.Scale.Min, q.Scale.Max)
}

func choiceOptions(q *models.Question) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(q.Options)+1)
	for _, o := range q.Options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	if q.Skippable() {
		opts = append(opts, huh.NewOption(SkipLabel, ""))
	}
	return opts
}
