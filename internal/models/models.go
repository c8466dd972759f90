// Package models defines the core data structures for ReflectPipe.
//
// It includes scenario definitions (questions and follow-up rules), interview sessions,
// response values and the persisted session record shared across modules.
package models

import (
	"errors"
	"fmt"
)

// SessionType tags a scenario. Exactly one scenario exists per tag in a catalog.
type SessionType string

// Built-in session types, one per phase of the day.
const (
	SessionTypeMorning SessionType = "morning"
	SessionTypeMidday  SessionType = "midday"
	SessionTypeEvening SessionType = "evening"
)

// QuestionKind defines how a question is answered.
type QuestionKind string

const (
	// KindNumericScale is answered with a whole number inside Scale.
	KindNumericScale QuestionKind = "numeric_scale"
	// KindLabeledScale is a numeric scale whose points carry display labels.
	KindLabeledScale QuestionKind = "labeled_scale"
	// KindSingleChoice is answered with exactly one option value.
	KindSingleChoice QuestionKind = "single_choice"
	// KindMultiChoice is answered with a list of option values.
	KindMultiChoice QuestionKind = "multi_choice"
	// KindFreeText is answered with arbitrary text.
	KindFreeText QuestionKind = "free_text"
)

// IsValidQuestionKind checks if the given question kind is supported.
func IsValidQuestionKind(k QuestionKind) bool {
	switch k {
	case KindNumericScale, KindLabeledScale, KindSingleChoice, KindMultiChoice, KindFreeText:
		return true
	default:
		return false
	}
}

// IsScale reports whether the kind is answered with a number.
func (k QuestionKind) IsScale() bool {
	return k == KindNumericScale || k == KindLabeledScale
}

// IsChoice reports whether the kind is answered from an option set.
func (k QuestionKind) IsChoice() bool {
	return k == KindSingleChoice || k == KindMultiChoice
}

// Error variables for engine, catalog and store callers.
var (
	ErrUnknownSessionType  = errors.New("unknown session type")
	ErrNoActiveSession     = errors.New("no active session")
	ErrUnknownQuestion     = errors.New("question does not belong to the scenario")
	ErrSessionCompleted    = errors.New("session already completed")
	ErrSessionNotCompleted = errors.New("session is not completed")
	ErrInvalidResponse     = errors.New("invalid response")
	ErrInvalidScenario     = errors.New("invalid scenario")
)

// Scenario validation errors.
var (
	ErrEmptyScenarioID       = errors.New("scenario id cannot be empty")
	ErrEmptySessionType      = errors.New("scenario session type cannot be empty")
	ErrNoQuestions           = errors.New("scenario has no questions")
	ErrEmptyQuestionID       = errors.New("question id cannot be empty")
	ErrDuplicateQuestionID   = errors.New("duplicate question id")
	ErrEmptyPrompt           = errors.New("question prompt cannot be empty")
	ErrInvalidQuestionKind   = errors.New("invalid question kind")
	ErrMissingOptions        = errors.New("choice question requires options")
	ErrDuplicateOption       = errors.New("duplicate option value")
	ErrInvalidScale          = errors.New("scale question requires a range with min < max")
	ErrOrphanFollowUp        = errors.New("follow-up question must name the question it varies")
	ErrUnknownVariantBase    = errors.New("variant_of does not name a base question")
	ErrVariantBeforeBase     = errors.New("inline variant must come after its base question")
	ErrUnknownFollowUpTarget = errors.New("follow-up rule targets an unknown question")
	ErrForeignVariantTarget  = errors.New("follow-up rule targets a variant of another question")
	ErrInvalidPredicate      = errors.New("invalid predicate")
)

// ConfigurationError reports a session type that is not registered in the catalog.
type ConfigurationError struct {
	SessionType SessionType
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("session type %q is not registered", e.SessionType)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrUnknownSessionType
}
