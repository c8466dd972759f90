package flow

import (
	"log/slog"

	"github.com/BTreeMap/ReflectPipe/internal/models"
)

// Interview holds exactly one current session on top of an Engine. It is the
// surface presentation code drives; callers juggling several sessions use the
// Engine directly. Starting a new session drops the previous one.
// Not safe for concurrent use.
type Interview struct {
	engine  *Engine
	session *models.Session
}

// NewInterview creates an Interview with no active session.
func NewInterview(engine *Engine) *Interview {
	return &Interview{engine: engine}
}

// StartSession starts a session of type t and makes it current.
// On error the previous session, if any, stays current.
func (iv *Interview) StartSession(t models.SessionType) (*models.Session, error) {
	s, err := iv.engine.Start(t)
	if err != nil {
		return nil, err
	}
	if iv.session != nil && !iv.session.Completed {
		slog.Debug("Interview discarding unfinished session", "sessionID", iv.session.ID)
	}
	iv.session = s
	return s, nil
}

// GetCurrentQuestion returns the current question, or nil without a session.
func (iv *Interview) GetCurrentQuestion() *models.Question {
	return iv.engine.CurrentQuestion(iv.session)
}

// ProcessResponse records a response for the current session. Without a session,
// or for an unknown question or rejected value, it returns the zero StepResult.
func (iv *Interview) ProcessResponse(questionID string, value models.Value) StepResult {
	res, err := iv.engine.ProcessResponse(iv.session, questionID, value)
	if err != nil {
		slog.Debug("Interview ignored response", "questionID", questionID, "error", err)
		return StepResult{}
	}
	return res
}

// Session returns the current session, or nil.
func (iv *Interview) Session() *models.Session {
	return iv.session
}

// Reset drops the current session without persisting it.
func (iv *Interview) Reset() {
	iv.session = nil
}
