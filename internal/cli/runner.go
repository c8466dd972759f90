package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/BTreeMap/ReflectPipe/internal/analysis"
	"github.com/BTreeMap/ReflectPipe/internal/flow"
	"github.com/BTreeMap/ReflectPipe/internal/models"
	"github.com/BTreeMap/ReflectPipe/internal/store"
)

var (
	// ErrAlreadyDoneToday is returned when the session type was already completed
	// today and repeats are not allowed.
	ErrAlreadyDoneToday = errors.New("session type already completed today")
	// ErrTooManyInvalidResponses is returned when the prompter keeps answering a
	// question with values it does not accept.
	ErrTooManyInvalidResponses = errors.New("too many invalid responses")
)

// MaxInvalidResponses is how often one question is asked again before Run gives up.
const MaxInvalidResponses = 5

// Reflector writes an optional personal reflection for a completed session.
type Reflector interface {
	Write(ctx context.Context, sc *models.Scenario, s *models.Session, recommendations []string) (string, error)
}

// Result is the outcome of a completed interview.
type Result struct {
	Session        *models.Session
	ClosingMessage string
	Reflection     string
}

// Runner walks a user through one interview and persists the result.
type Runner struct {
	engine      *flow.Engine
	analyzer    *analysis.Analyzer
	sessions    *store.SessionStore
	prompter    Prompter
	reflector   Reflector
	out         io.Writer
	allowRepeat bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithReflector appends an LLM reflection after the closing message.
func WithReflector(r Reflector) RunnerOption {
	return func(rn *Runner) {
		rn.reflector = r
	}
}

// WithOutput sets where greetings and closing messages are written.
func WithOutput(w io.Writer) RunnerOption {
	return func(rn *Runner) {
		rn.out = w
	}
}

// WithAllowRepeat permits a session type that was already completed today.
func WithAllowRepeat(allow bool) RunnerOption {
	return func(rn *Runner) {
		rn.allowRepeat = allow
	}
}

// NewRunner creates a Runner.
func NewRunner(engine *flow.Engine, analyzer *analysis.Analyzer, sessions *store.SessionStore, prompter Prompter, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:   engine,
		analyzer: analyzer,
		sessions: sessions,
		prompter: prompter,
		out:      io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run conducts an interview of type t. Aborted interviews are not saved.
func (r *Runner) Run(ctx context.Context, t models.SessionType) (*Result, error) {
	slog.Debug("Runner.Run invoked", "sessionType", t)
	sc, err := r.engine.Scenario(t)
	if err != nil {
		return nil, err
	}
	if !r.allowRepeat && r.sessions.TypesUsedToday(ctx)[sc.Type] {
		slog.Info("Session type already completed today", "sessionType", sc.Type)
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDoneToday, sc.Type)
	}

	iv := flow.NewInterview(r.engine)
	s, err := iv.StartSession(t)
	if err != nil {
		return nil, err
	}
	if sc.Greeting != "" {
		fmt.Fprintf(r.out, "%s\n", sc.Greeting)
	}

	q := iv.GetCurrentQuestion()
	invalid := 0
	for q != nil {
		if err := ctx.Err(); err != nil {
			slog.Info("Interview cancelled, session not saved", "sessionID", s.ID, "questionID", q.ID)
			return nil, ErrAborted
		}
		answered, total := r.engine.Progress(s)
		v, err := r.prompter.Ask(ctx, q, Progress{Answered: answered, Total: total})
		if err != nil {
			if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
				slog.Info("Interview aborted, session not saved", "sessionID", s.ID, "questionID", q.ID)
				return nil, ErrAborted
			}
			return nil, err
		}

		if err := q.Check(v); err != nil {
			invalid++
			if invalid >= MaxInvalidResponses {
				slog.Error("Prompter kept returning invalid values", "sessionID", s.ID, "questionID", q.ID, "attempts", invalid, "error", err)
				return nil, fmt.Errorf("%w: question %s: %w", ErrTooManyInvalidResponses, q.ID, err)
			}
			slog.Warn("Prompter returned an invalid value, asking again", "questionID", q.ID, "error", err)
			fmt.Fprintf(r.out, "Sorry, %s.\n", reason(err))
			continue
		}
		invalid = 0

		res := iv.ProcessResponse(q.ID, v)
		if res.IsCompleted {
			break
		}
		if res.NextQuestion == nil {
			return nil, fmt.Errorf("response to %s was not accepted", q.ID)
		}
		q = res.NextQuestion
	}

	closing, err := r.analyzer.ClosingMessage(s)
	if err != nil {
		return nil, err
	}
	result := &Result{Session: s, ClosingMessage: closing}

	if err := r.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	fmt.Fprintf(r.out, "\n%s\n", closing)

	if r.reflector != nil {
		reflection, err := r.reflector.Write(ctx, sc, s, r.analyzer.Recommendations(s))
		if err != nil {
			slog.Warn("Reflection unavailable", "sessionID", s.ID, "error", err)
		} else if reflection != "" {
			result.Reflection = reflection
			fmt.Fprintf(r.out, "\n%s\n", reflection)
		}
	}

	slog.Info("Interview completed", "sessionID", s.ID, "sessionType", s.SessionType, "stepsTaken", s.StepsTaken)
	return result, nil
}
