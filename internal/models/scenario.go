package models

import (
	"fmt"
)

// Option is a selectable answer for choice questions, or a point label on a labeled scale.
type Option struct {
	Value string `json:"value" yaml:"value" validate:"required"`
	Label string `json:"label" yaml:"label" validate:"required"`
}

// ScaleRange bounds a scale question.
type ScaleRange struct {
	Min      int    `json:"min" yaml:"min"`
	Max      int    `json:"max" yaml:"max"`
	MinLabel string `json:"min_label,omitempty" yaml:"min_label,omitempty"`
	MaxLabel string `json:"max_label,omitempty" yaml:"max_label,omitempty"`
}

// FollowUpRule routes traversal to Next when When holds.
type FollowUpRule struct {
	When Predicate `json:"when" yaml:"when"`
	Next string    `json:"next" yaml:"next" validate:"required"`
}

// RecommendationRule appends Text to a closing message when When holds.
// When.Question names the response key the rule reads.
type RecommendationRule struct {
	When Predicate `json:"when" yaml:"when"`
	Text string    `json:"text" yaml:"text" validate:"required"`
}

// Question is a node in the interview graph.
type Question struct {
	ID       string       `json:"id" yaml:"id" validate:"required"`
	Prompt   string       `json:"prompt" yaml:"prompt" validate:"required"`
	Kind     QuestionKind `json:"kind" yaml:"kind" validate:"required,oneof=numeric_scale labeled_scale single_choice multi_choice free_text"`
	Options  []Option     `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`
	Scale    *ScaleRange  `json:"scale,omitempty" yaml:"scale,omitempty"`
	Required bool         `json:"required,omitempty" yaml:"required,omitempty"`
	// VariantOf names the base question this follow-up variant belongs to.
	VariantOf string         `json:"variant_of,omitempty" yaml:"variant_of,omitempty"`
	FollowUps []FollowUpRule `json:"follow_ups,omitempty" yaml:"follow_ups,omitempty" validate:"dive"`
}

// IsVariant reports whether the question is a follow-up variant of another question.
func (q *Question) IsVariant() bool {
	return q.VariantOf != ""
}

// Option returns the option with the given value.
func (q *Question) Option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// SelectFollowUp returns the target of the first follow-up rule that matches,
// or "" when no rule matches.
func (q *Question) SelectFollowUp(answer Value, responses map[string]Value) string {
	for _, rule := range q.FollowUps {
		if rule.When.Evaluate(answer, responses) {
			return rule.Next
		}
	}
	return ""
}

// Scenario is the immutable definition of one interview.
type Scenario struct {
	ID             string      `json:"id" yaml:"id" validate:"required"`
	Type           SessionType `json:"type" yaml:"type" validate:"required"`
	Title          string      `json:"title" yaml:"title"`
	Greeting       string      `json:"greeting" yaml:"greeting"`
	ClosingMessage string      `json:"closing_message" yaml:"closing_message"`
	// Questions is the ordered base list.
	Questions []Question `json:"questions" yaml:"questions" validate:"required,min=1,dive"`
	// FollowUps holds variant questions reachable only through a follow-up rule.
	FollowUps []Question `json:"follow_ups,omitempty" yaml:"follow_ups,omitempty" validate:"dive"`
}

// Question looks up a question by id in the base list and the follow-up list.
func (s *Scenario) Question(id string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	for i := range s.FollowUps {
		if s.FollowUps[i].ID == id {
			return &s.FollowUps[i], true
		}
	}
	return nil, false
}

// BaseIndex returns the position of id in the base list, or -1.
func (s *Scenario) BaseIndex(id string) int {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the scenario graph for structural errors.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return ErrEmptyScenarioID
	}
	if s.Type == "" {
		return ErrEmptySessionType
	}
	if len(s.Questions) == 0 {
		return ErrNoQuestions
	}

	seen := make(map[string]bool)
	for _, list := range [][]Question{s.Questions, s.FollowUps} {
		for i := range list {
			q := &list[i]
			if q.ID == "" {
				return ErrEmptyQuestionID
			}
			if seen[q.ID] {
				return fmt.Errorf("question %q: %w", q.ID, ErrDuplicateQuestionID)
			}
			seen[q.ID] = true
			if err := q.validate(); err != nil {
				return fmt.Errorf("question %q: %w", q.ID, err)
			}
		}
	}

	for i, q := range s.Questions {
		if !q.IsVariant() {
			continue
		}
		base := s.BaseIndex(q.VariantOf)
		if base < 0 {
			return fmt.Errorf("question %q: %w", q.ID, ErrUnknownVariantBase)
		}
		if base >= i {
			return fmt.Errorf("question %q: %w", q.ID, ErrVariantBeforeBase)
		}
	}
	for _, q := range s.FollowUps {
		if !q.IsVariant() {
			return fmt.Errorf("question %q: %w", q.ID, ErrOrphanFollowUp)
		}
		if s.BaseIndex(q.VariantOf) < 0 {
			return fmt.Errorf("question %q: %w", q.ID, ErrUnknownVariantBase)
		}
	}

	for _, list := range [][]Question{s.Questions, s.FollowUps} {
		for _, q := range list {
			owner := q.ID
			if q.IsVariant() {
				owner = q.VariantOf
			}
			for _, rule := range q.FollowUps {
				if !seen[rule.Next] {
					return fmt.Errorf("question %q: %w: %q", q.ID, ErrUnknownFollowUpTarget, rule.Next)
				}
				// a variant is only reachable from its own base or a sibling variant
				if target, _ := s.Question(rule.Next); target.IsVariant() && target.VariantOf != owner {
					return fmt.Errorf("question %q: %w: %q varies %q", q.ID, ErrForeignVariantTarget, rule.Next, target.VariantOf)
				}
				if rule.When.Question != "" && !seen[rule.When.Question] {
					return fmt.Errorf("question %q: %w: references unknown question %q", q.ID, ErrInvalidPredicate, rule.When.Question)
				}
			}
		}
	}
	return nil
}

// validate checks kind-specific requirements of a single question.
func (q *Question) validate() error {
	if q.Prompt == "" {
		return ErrEmptyPrompt
	}
	if !IsValidQuestionKind(q.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidQuestionKind, q.Kind)
	}
	if q.Kind.IsChoice() && len(q.Options) == 0 {
		return ErrMissingOptions
	}
	if q.Kind.IsScale() && (q.Scale == nil || q.Scale.Min >= q.Scale.Max) {
		return ErrInvalidScale
	}
	values := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if values[o.Value] {
			return fmt.Errorf("%w: %q", ErrDuplicateOption, o.Value)
		}
		values[o.Value] = true
	}
	for _, rule := range q.FollowUps {
		if err := rule.When.Validate(); err != nil {
			return err
		}
	}
	return nil
}
