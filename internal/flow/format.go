package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// Formatting constants
const (
	// OptionFormat renders one numbered option.
	OptionFormat = "\n%d. %s"
	// ScaleFormat renders the accepted range of a scale question.
	ScaleFormat = "\n(%d-%d)"
	// MultiChoiceHint tells the reader how to answer a multi-choice question.
	MultiChoiceHint = "\n(choose one or more, separated by commas)"
	// SkipHint marks an optional scale or single-choice question.
	SkipHint = "\n(optional, press Enter to skip)"
)

// Formatter renders a question as plain text for line-oriented presentation.
type Formatter interface {
	Format(q *models.Question) string
}

var registry = make(map[models.QuestionKind]Formatter)

// Register associates a QuestionKind with a Formatter implementation.
func Register(kind models.QuestionKind, f Formatter) {
	registry[kind] = f
}

// Get retrieves the Formatter for a given QuestionKind.
func Get(kind models.QuestionKind) (Formatter, bool) {
	f, ok := registry[kind]
	return f, ok
}

// FormatQuestion finds and runs the Formatter for the question's kind.
// Kinds without a formatter render as the bare prompt.
func FormatQuestion(q *models.Question) string {
	if q == nil {
		return ""
	}
	if f, ok := Get(q.Kind); ok {
		return f.Format(q)
	}
	slog.Warn("No formatter registered for question kind", "kind", q.Kind, "questionID", q.ID)
	return q.Prompt
}

// PromptFormatter returns the prompt as-is.
type PromptFormatter struct{}

// Format returns the bare prompt.
func (PromptFormatter) Format(q *models.Question) string {
	return q.Prompt
}

// ChoiceFormatter lists options as a numbered menu.
type ChoiceFormatter struct{}

// Format returns the prompt followed by numbered option labels.
func (ChoiceFormatter) Format(q *models.Question) string {
	var sb strings.Builder
	sb.WriteString(q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(&sb, OptionFormat, i+1, opt.Label)
	}
	if q.Kind == models.KindMultiChoice {
		sb.WriteString(MultiChoiceHint)
	}
	if q.Skippable() {
		sb.WriteString(SkipHint)
	}
	return sb.String()
}

// ScaleFormatter shows the range and any end-point or option labels.
type ScaleFormatter struct{}

// Format returns the prompt followed by the scale range.
func (ScaleFormatter) Format(q *models.Question) string {
	var sb strings.Builder
	sb.WriteString(q.Prompt)
	if q.Scale == nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, ScaleFormat, q.Scale.Min, q.Scale.Max)
	if len(q.Options) > 0 {
		for _, opt := range q.Options {
			fmt.Fprintf(&sb, "\n%s = %s", opt.Value, opt.Label)
		}
	} else if q.Scale.MinLabel != "" || q.Scale.MaxLabel != "" {
		fmt.Fprintf(&sb, "\n%d = %s, %d = %s", q.Scale.Min, q.Scale.MinLabel, q.Scale.Max, q.Scale.MaxLabel)
	}
	if q.Skippable() {
		sb.WriteString(SkipHint)
	}
	return sb.String()
}

// Register default formatters
func init() {
	Register(models.KindFreeText, PromptFormatter{})
	Register(models.KindSingleChoice, ChoiceFormatter{})
	Register(models.KindMultiChoice, ChoiceFormatter{})
	Register(models.KindNumericScale, ScaleFormatter{})
	Register(models.KindLabeledScale, ScaleFormatter{})
}
