package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Document is the on-disk shape of a catalog file.
type Document struct {
	Scenarios       []models.Scenario           `yaml:"scenarios" validate:"required,min=1,dive"`
	Recommendations []models.RecommendationRule `yaml:"recommendations,omitempty" validate:"dive"`
}

// Parse decodes a YAML catalog document and builds a Catalog from it.
// Unknown fields are rejected so typos in scenario files fail loudly.
func Parse(data []byte, opts ...Option) (*Catalog, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty catalog document", models.ErrInvalidScenario)
		}
		return nil, fmt.Errorf("failed to decode catalog document: %w", err)
	}

	if err := validate.Struct(&doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return nil, fmt.Errorf("%w: field %s failed %q validation", models.ErrInvalidScenario, first.Namespace(), first.Tag())
		}
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidScenario, err)
	}

	if doc.Recommendations != nil {
		opts = append(opts, WithRecommendations(doc.Recommendations))
	}
	return New(doc.Scenarios, opts...)
}

// LoadFile reads and parses a YAML catalog file.
func LoadFile(path string, opts ...Option) (*Catalog, error) {
	slog.Debug("Loading scenario catalog", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read scenario catalog", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(data, opts...)
	if err != nil {
		slog.Error("Failed to parse scenario catalog", "path", path, "error", err)
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	slog.Info("Scenario catalog loaded", "path", path, "types", c.Types())
	return c, nil
}

// Encode renders scenarios and rules as a YAML catalog document.
func Encode(w io.Writer, scenarios []models.Scenario, rules []models.RecommendationRule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Scenarios: scenarios, Recommendations: rules}); err != nil {
		return fmt.Errorf("failed to encode catalog document: %w", err)
	}
	return enc.Close()
}
