package models

import "fmt"

// Operator is the comparison a Predicate applies.
type Operator string

const (
	OpEquals Operator = "equals"
	OpLTE    Operator = "lte"
	OpGTE    Operator = "gte"
	OpIn     Operator = "in"
)

// Predicate is a declarative condition over a response.
//
// Without Question it reads the response just given; with Question it reads that
// question's recorded response. A referenced question without a response never matches.
type Predicate struct {
	Op       Operator `json:"op" yaml:"op" validate:"required,oneof=equals lte gte in"`
	Question string   `json:"question,omitempty" yaml:"question,omitempty"`
	Value    Value    `json:"value" yaml:"value"`
}

// Validate checks that the operand fits the operator.
func (p Predicate) Validate() error {
	switch p.Op {
	case OpEquals:
		if p.Value.IsZero() || p.Value.IsList() {
			return fmt.Errorf("%w: %s needs a scalar operand", ErrInvalidPredicate, p.Op)
		}
	case OpLTE, OpGTE:
		if _, ok := p.Value.Float(); !ok {
			return fmt.Errorf("%w: %s needs a numeric operand", ErrInvalidPredicate, p.Op)
		}
	case OpIn:
		if !p.Value.IsList() {
			return fmt.Errorf("%w: in needs a list operand", ErrInvalidPredicate)
		}
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidPredicate, p.Op)
	}
	return nil
}

// Evaluate applies the predicate to answer, or to responses[p.Question] when set.
func (p Predicate) Evaluate(answer Value, responses map[string]Value) bool {
	if p.Question != "" {
		v, ok := responses[p.Question]
		if !ok {
			return false
		}
		answer = v
	}
	return p.Matches(answer)
}

// Matches applies the predicate to v.
func (p Predicate) Matches(v Value) bool {
	switch p.Op {
	case OpEquals:
		if v.IsList() {
			return v.Contains(p.Value)
		}
		return v.Equal(p.Value)
	case OpLTE:
		f, ok := v.Float()
		limit, ok2 := p.Value.Float()
		return ok && ok2 && f <= limit
	case OpGTE:
		f, ok := v.Float()
		limit, ok2 := p.Value.Float()
		return ok && ok2 && f >= limit
	case OpIn:
		for _, e := range v.elements() {
			if p.Value.Contains(e) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
