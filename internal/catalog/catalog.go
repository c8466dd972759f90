// Package catalog maps session types to scenario definitions.
//
// A Catalog is immutable once built. Scenarios come from the built-in set (Default)
// or from a YAML document (Parse, LoadFile); every scenario is validated on the way in.
package catalog

import (
	"fmt"
	"log/slog"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// Catalog is a read-only registry of scenarios keyed by session type.
type Catalog struct {
	scenarios map[models.SessionType]*models.Scenario
	order     []models.SessionType
	rules     []models.RecommendationRule
	fallback  models.SessionType
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithFallback resolves unknown session types to t instead of failing.
func WithFallback(t models.SessionType) Option {
	return func(c *Catalog) {
		c.fallback = t
	}
}

// WithRecommendations attaches a recommendation rule table to the catalog.
func WithRecommendations(rules []models.RecommendationRule) Option {
	return func(c *Catalog) {
		c.rules = append([]models.RecommendationRule(nil), rules...)
	}
}

// New validates the scenarios and builds a catalog. Session types must be unique.
func New(scenarios []models.Scenario, opts ...Option) (*Catalog, error) {
	c := &Catalog{scenarios: make(map[models.SessionType]*models.Scenario, len(scenarios))}
	for _, opt := range opts {
		opt(c)
	}

	for i := range scenarios {
		s := scenarios[i]
		if err := s.Validate(); err != nil {
			slog.Error("Catalog rejected scenario", "scenario", s.ID, "error", err)
			return nil, fmt.Errorf("%w: scenario %q: %w", models.ErrInvalidScenario, s.ID, err)
		}
		if _, exists := c.scenarios[s.Type]; exists {
			return nil, fmt.Errorf("%w: session type %q registered twice", models.ErrInvalidScenario, s.Type)
		}
		c.scenarios[s.Type] = &s
		c.order = append(c.order, s.Type)
	}

	if c.fallback != "" {
		if _, ok := c.scenarios[c.fallback]; !ok {
			return nil, &models.ConfigurationError{SessionType: c.fallback}
		}
	}
	for i, rule := range c.rules {
		if err := validateRule(rule); err != nil {
			return nil, fmt.Errorf("recommendation %d: %w", i, err)
		}
	}

	slog.Debug("Catalog built", "scenarios", len(c.order), "fallback", c.fallback, "rules", len(c.rules))
	return c, nil
}

// Scenario returns the scenario registered for t. Unknown types fail with a
// *models.ConfigurationError unless the catalog was built WithFallback.
// The returned scenario must not be modified.
func (c *Catalog) Scenario(t models.SessionType) (*models.Scenario, error) {
	if s, ok := c.scenarios[t]; ok {
		return s, nil
	}
	if c.fallback != "" {
		slog.Debug("Catalog falling back to default session type", "requested", t, "fallback", c.fallback)
		return c.scenarios[c.fallback], nil
	}
	return nil, &models.ConfigurationError{SessionType: t}
}

// Types returns the registered session types in registration order.
func (c *Catalog) Types() []models.SessionType {
	return append([]models.SessionType(nil), c.order...)
}

// Recommendations returns the catalog's rule table, or nil when none was supplied.
func (c *Catalog) Recommendations() []models.RecommendationRule {
	if c.rules == nil {
		return nil
	}
	return append([]models.RecommendationRule(nil), c.rules...)
}

func validateRule(rule models.RecommendationRule) error {
	if rule.When.Question == "" {
		return fmt.Errorf("%w: recommendation rule needs a question key", models.ErrInvalidPredicate)
	}
	if rule.Text == "" {
		return fmt.Errorf("recommendation for %q has no text", rule.When.Question)
	}
	return rule.When.Validate()
}
