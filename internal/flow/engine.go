// Package flow implements the branching interview engine.
//
// The Engine is stateless: every call receives the *models.Session it operates on,
// so any number of sessions can be driven side by side. Interview wraps an Engine
// for callers that want a single current session.
package flow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/ReflectPipe/internal/models"
	"github.com/BTreeMap/ReflectPipe/internal/util"
)

// ScenarioSource resolves a session type to its scenario definition.
// *catalog.Catalog satisfies it.
type ScenarioSource interface {
	Scenario(t models.SessionType) (*models.Scenario, error)
}

// StepResult is the outcome of a processed response.
type StepResult struct {
	NextQuestion *models.Question
	IsCompleted  bool
}

// Engine walks sessions through their scenario's question graph.
type Engine struct {
	src   ScenarioSource
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for StartedAt and CompletedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// NewEngine creates an Engine reading scenarios from src.
func NewEngine(src ScenarioSource, opts ...Option) *Engine {
	e := &Engine{src: src, now: time.Now, newID: util.GenerateSessionID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scenario looks up the scenario for t without side effects.
func (e *Engine) Scenario(t models.SessionType) (*models.Scenario, error) {
	return e.src.Scenario(t)
}

// Start creates a new session of type t.
func (e *Engine) Start(t models.SessionType) (*models.Session, error) {
	slog.Debug("Engine.Start invoked", "sessionType", t)
	sc, err := e.src.Scenario(t)
	if err != nil {
		slog.Error("Engine.Start failed to resolve scenario", "sessionType", t, "error", err)
		return nil, err
	}

	s := &models.Session{
		ID:          e.newID(),
		SessionType: sc.Type,
		StartedAt:   e.now(),
		Responses:   make(map[string]models.Value),
		TotalSteps:  len(sc.Questions),
	}
	slog.Debug("Engine.Start succeeded", "sessionID", s.ID, "sessionType", s.SessionType, "scenario", sc.ID, "totalSteps", s.TotalSteps)
	return s, nil
}

// CurrentQuestion returns the first base question s has not answered yet,
// skipping variants whose base is unanswered. It returns nil when s is nil,
// its scenario cannot be resolved, or every applicable question is answered.
func (e *Engine) CurrentQuestion(s *models.Session) *models.Question {
	if s == nil {
		return nil
	}
	sc, err := e.src.Scenario(s.SessionType)
	if err != nil {
		slog.Warn("Engine.CurrentQuestion cannot resolve scenario", "sessionID", s.ID, "sessionType", s.SessionType, "error", err)
		return nil
	}
	return scan(sc, s, 0)
}

// ProcessResponse records value as the answer to questionID and resolves the
// next question. Guard failures return a zero StepResult, leave s untouched and
// report ErrNoActiveSession, ErrSessionCompleted, ErrUnknownQuestion or
// ErrInvalidResponse.
func (e *Engine) ProcessResponse(s *models.Session, questionID string, value models.Value) (StepResult, error) {
	if s == nil {
		slog.Debug("Engine.ProcessResponse without session", "questionID", questionID)
		return StepResult{}, models.ErrNoActiveSession
	}
	slog.Debug("Engine.ProcessResponse invoked", "sessionID", s.ID, "questionID", questionID, "value", value.String())

	if s.Completed {
		slog.Warn("Engine.ProcessResponse on completed session", "sessionID", s.ID, "questionID", questionID)
		return StepResult{}, models.ErrSessionCompleted
	}
	sc, err := e.src.Scenario(s.SessionType)
	if err != nil {
		slog.Error("Engine.ProcessResponse failed to resolve scenario", "sessionID", s.ID, "sessionType", s.SessionType, "error", err)
		return StepResult{}, err
	}
	q, ok := sc.Question(questionID)
	if !ok {
		slog.Warn("Engine.ProcessResponse unknown question", "sessionID", s.ID, "scenario", sc.ID, "questionID", questionID)
		return StepResult{}, fmt.Errorf("%w: %q in scenario %q", models.ErrUnknownQuestion, questionID, sc.ID)
	}
	if err := q.Check(value); err != nil {
		slog.Debug("Engine.ProcessResponse rejected value", "sessionID", s.ID, "questionID", questionID, "error", err)
		return StepResult{}, err
	}

	if s.Responses == nil {
		s.Responses = make(map[string]models.Value)
	}
	s.Responses[questionID] = value
	s.StepsTaken++

	next := e.next(sc, s, q, value)
	if next == nil {
		now := e.now()
		s.Completed = true
		s.CompletedAt = &now
		slog.Debug("Engine.ProcessResponse completed session", "sessionID", s.ID, "stepsTaken", s.StepsTaken, "totalSteps", s.TotalSteps)
		return StepResult{IsCompleted: true}, nil
	}

	slog.Debug("Engine.ProcessResponse succeeded", "sessionID", s.ID, "questionID", questionID, "next", next.ID)
	return StepResult{NextQuestion: next}, nil
}

// Progress reports answered base questions against TotalSteps. The ratio never
// exceeds one; StepsTaken also counts follow-up detours.
func (e *Engine) Progress(s *models.Session) (answered, total int) {
	if s == nil {
		return 0, 0
	}
	sc, err := e.src.Scenario(s.SessionType)
	if err != nil {
		return 0, s.TotalSteps
	}
	for i := range sc.Questions {
		if s.Answered(sc.Questions[i].ID) {
			answered++
		}
	}
	return answered, s.TotalSteps
}

// next resolves the question after q was answered with value.
func (e *Engine) next(sc *models.Scenario, s *models.Session, q *models.Question, value models.Value) *models.Question {
	if target := q.SelectFollowUp(value, s.Responses); target != "" {
		if nq, ok := sc.Question(target); ok && !s.Answered(target) {
			return nq
		}
		slog.Debug("Follow-up target already answered, continuing scan", "sessionID", s.ID, "target", target)
	}

	pos := sc.BaseIndex(q.ID)
	if pos < 0 {
		// out-of-line variants resume after their base question
		pos = sc.BaseIndex(q.VariantOf)
	}
	return scan(sc, s, pos+1)
}

// scan returns the first unanswered, applicable base question at or after from.
func scan(sc *models.Scenario, s *models.Session, from int) *models.Question {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(sc.Questions); i++ {
		q := &sc.Questions[i]
		if s.Answered(q.ID) || !applicable(q, s) {
			continue
		}
		return q
	}
	return nil
}

// applicable reports whether the linear scan may offer q.
func applicable(q *models.Question, s *models.Session) bool {
	if !q.IsVariant() {
		return true
	}
	return s.Answered(q.VariantOf)
}
