package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Check validates a response against the question kind, options and range.
// An optional scale or single-choice question also accepts an empty text value,
// which records the question as skipped.
func (q *Question) Check(v Value) error {
	if q.Skippable() && isBlank(v) {
		return nil
	}
	switch q.Kind {
	case KindNumericScale, KindLabeledScale:
		f, ok := v.Float()
		if !ok {
			return fmt.Errorf("%w: question %q expects a number", ErrInvalidResponse, q.ID)
		}
		if f != math.Trunc(f) {
			return fmt.Errorf("%w: question %q expects a whole number, got %s", ErrInvalidResponse, q.ID, v)
		}
		if q.Scale != nil && (f < float64(q.Scale.Min) || f > float64(q.Scale.Max)) {
			return fmt.Errorf("%w: question %q expects %d to %d, got %s", ErrInvalidResponse, q.ID, q.Scale.Min, q.Scale.Max, v)
		}
	case KindSingleChoice:
		s, ok := v.Text()
		if !ok {
			return fmt.Errorf("%w: question %q expects one option", ErrInvalidResponse, q.ID)
		}
		if _, ok := q.Option(s); !ok {
			return fmt.Errorf("%w: question %q has no option %q", ErrInvalidResponse, q.ID, s)
		}
	case KindMultiChoice:
		if v.Kind() != ValueTextList {
			return fmt.Errorf("%w: question %q expects a list of options", ErrInvalidResponse, q.ID)
		}
		if v.Len() == 0 && q.Required {
			return fmt.Errorf("%w: question %q requires at least one option", ErrInvalidResponse, q.ID)
		}
		for _, s := range v.Texts() {
			if _, ok := q.Option(s); !ok {
				return fmt.Errorf("%w: question %q has no option %q", ErrInvalidResponse, q.ID, s)
			}
		}
	case KindFreeText:
		s, ok := v.Text()
		if !ok {
			return fmt.Errorf("%w: question %q expects text", ErrInvalidResponse, q.ID)
		}
		if q.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: question %q requires an answer", ErrInvalidResponse, q.ID)
		}
	default:
		return fmt.Errorf("%w: question %q has kind %q", ErrInvalidResponse, q.ID, q.Kind)
	}
	return nil
}

// ParseResponse turns typed input into a Value for the question and checks it.
// Options match by value, label (case-insensitive) or 1-based position; multi choice
// input is comma separated.
func ParseResponse(q *Question, input string) (Value, error) {
	input = strings.TrimSpace(input)
	if input == "" && q.Skippable() {
		return Text(""), nil
	}
	var v Value
	switch q.Kind {
	case KindNumericScale, KindLabeledScale:
		if f, err := strconv.ParseFloat(input, 64); err == nil {
			v = Number(f)
			break
		}
		opt, ok := q.matchOption(input)
		if !ok {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrInvalidResponse, input)
		}
		f, err := strconv.ParseFloat(opt.Value, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: option %q of question %q is not numeric", ErrInvalidResponse, opt.Value, q.ID)
		}
		v = Number(f)
	case KindSingleChoice:
		opt, ok := q.matchOption(input)
		if !ok {
			return Value{}, fmt.Errorf("%w: %q is not an option", ErrInvalidResponse, input)
		}
		v = Text(opt.Value)
	case KindMultiChoice:
		var values []string
		for _, part := range strings.Split(input, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			opt, ok := q.matchOption(part)
			if !ok {
				return Value{}, fmt.Errorf("%w: %q is not an option", ErrInvalidResponse, part)
			}
			values = append(values, opt.Value)
		}
		v = Texts(values...)
	case KindFreeText:
		v = Text(input)
	}
	if err := q.Check(v); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (q *Question) matchOption(input string) (Option, bool) {
	if opt, ok := q.Option(input); ok {
		return opt, true
	}
	for _, o := range q.Options {
		if strings.EqualFold(o.Label, input) {
			return o, true
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(q.Options) && !q.Kind.IsScale() {
		return q.Options[n-1], true
	}
	return Option{}, false
}

// Skippable reports whether q is an optional scale or single-choice question.
// Optional free text and multi choice questions take an empty answer natively.
func (q *Question) Skippable() bool {
	return !q.Required && (q.Kind.IsScale() || q.Kind == KindSingleChoice)
}

func isBlank(v Value) bool {
	s, ok := v.Text()
	return ok && strings.TrimSpace(s) == ""
}
