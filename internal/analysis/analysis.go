// Package analysis turns a completed session's responses into a closing message
// with rule-based recommendations.
//
// Rules are keyed by convention on well-known question ids (mood, anxiety, ...),
// not on question kind. A rule whose key is absent from a session never fires.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// ---- Thresholds ----

const (
	lowMoodThreshold      = 3
	highAnxietyThreshold  = 7
	lowEnergyThreshold    = 3
	poorSleepThreshold    = 2
	highStressThreshold   = 7
	recommendationPrefix  = "- "
	recommendationDivider = "\n\n"
)

// ErrNilSession is returned when a closing message is requested without a session.
var ErrNilSession = errors.New("session is nil")

// ScenarioSource resolves a session type to its scenario definition.
type ScenarioSource interface {
	Scenario(t models.SessionType) (*models.Scenario, error)
}

// DefaultRules returns the built-in recommendation table in evaluation order.
func DefaultRules() []models.RecommendationRule {
	return []models.RecommendationRule{
		{
			When: models.Predicate{Question: "mood", Op: models.OpLTE, Value: models.Number(lowMoodThreshold)},
			Text: "Your mood was low today. Consider reaching out to someone you trust, or doing one small thing that usually lifts you.",
		},
		{
			When: models.Predicate{Question: "anxiety", Op: models.OpGTE, Value: models.Number(highAnxietyThreshold)},
			Text: "Anxiety ran high. Try a few minutes of slow breathing: in for four counts, out for six.",
		},
		{
			When: models.Predicate{Question: "energy", Op: models.OpLTE, Value: models.Number(lowEnergyThreshold)},
			Text: "Energy is low. A short walk, some water and a proper meal can help more than caffeine.",
		},
		{
			When: models.Predicate{Question: "sleep_quality", Op: models.OpLTE, Value: models.Number(poorSleepThreshold)},
			Text: "Sleep was rough. Keep tonight's wind-down screen-free for the last half hour.",
		},
		{
			When: models.Predicate{Question: "stress", Op: models.OpGTE, Value: models.Number(highStressThreshold)},
			Text: "Stress is high. Pick one task to set down or postpone today.",
		},
		{
			When: models.Predicate{Question: "feelings", Op: models.OpEquals, Value: models.Text("lonely")},
			Text: "You mentioned feeling lonely. A quick message to a friend can go a long way.",
		},
		{
			When: models.Predicate{Question: "gratitude", Op: models.OpEquals, Value: models.Text("")},
			Text: "Tomorrow, try noting one small good moment, even an ordinary one.",
		},
	}
}

// Analyzer evaluates recommendation rules against completed sessions.
type Analyzer struct {
	src   ScenarioSource
	rules []models.RecommendationRule
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRules replaces the default rule table.
func WithRules(rules []models.RecommendationRule) Option {
	return func(a *Analyzer) {
		a.rules = append([]models.RecommendationRule(nil), rules...)
	}
}

// NewAnalyzer creates an Analyzer that reads closing templates from src.
func NewAnalyzer(src ScenarioSource, opts ...Option) *Analyzer {
	a := &Analyzer{src: src, rules: DefaultRules()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rules returns a copy of the analyzer's rule table.
func (a *Analyzer) Rules() []models.RecommendationRule {
	return append([]models.RecommendationRule(nil), a.rules...)
}

// Recommendations returns the text of every rule that holds for the session,
// in table order. Duplicates are kept.
func (a *Analyzer) Recommendations(s *models.Session) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, rule := range a.rules {
		v, ok := s.Responses[rule.When.Question]
		if !ok {
			continue
		}
		if rule.When.Matches(v) {
			out = append(out, rule.Text)
		}
	}
	return out
}

// ClosingMessage returns the scenario's closing template followed by one line per
// recommendation. It does not modify the session.
func (a *Analyzer) ClosingMessage(s *models.Session) (string, error) {
	if s == nil {
		return "", ErrNilSession
	}
	sc, err := a.src.Scenario(s.SessionType)
	if err != nil {
		slog.Error("Analyzer failed to resolve scenario", "sessionID", s.ID, "sessionType", s.SessionType, "error", err)
		return "", fmt.Errorf("closing message for session %s: %w", s.ID, err)
	}

	recs := a.Recommendations(s)
	slog.Debug("Analyzer built closing message", "sessionID", s.ID, "recommendations", len(recs))
	if len(recs) == 0 {
		return sc.ClosingMessage, nil
	}

	var sb strings.Builder
	sb.WriteString(sc.ClosingMessage)
	sb.WriteString(recommendationDivider)
	for i, rec := range recs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(recommendationPrefix)
		sb.WriteString(rec)
	}
	return sb.String(), nil
}
