package models

import (
	"encoding/json"
	"time"
)

// Session is a single run of a Scenario. It is owned by whoever started it;
// the engine only mutates the Session it is handed.
type Session struct {
	ID          string
	SessionType SessionType
	StartedAt   time.Time
	// Responses maps question id to the recorded response.
	Responses map[string]Value
	// StepsTaken counts accepted responses, follow-up detours included.
	StepsTaken int
	// TotalSteps is the length of the scenario's base list at start.
	TotalSteps  int
	Completed   bool
	CompletedAt *time.Time
}

// Answered reports whether questionID has a recorded response.
func (s *Session) Answered(questionID string) bool {
	_, ok := s.Responses[questionID]
	return ok
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Responses = make(map[string]Value, len(s.Responses))
	for k, v := range s.Responses {
		c.Responses[k] = v
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// SessionRecord is the persisted snapshot of a completed session.
// Field names are part of the storage format; readers tolerate missing keys.
type SessionRecord struct {
	ID          string           `json:"id"`
	SessionType SessionType      `json:"sessionType"`
	StartedAt   time.Time        `json:"startedAt"`
	Responses   map[string]Value `json:"responses"`
	StepsTaken  int              `json:"stepsTaken"`
	TotalSteps  int              `json:"totalSteps"`
	Completed   bool             `json:"completed"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// NewSessionRecord snapshots a session.
func NewSessionRecord(s *Session) SessionRecord {
	c := s.Clone()
	return SessionRecord{
		ID:          c.ID,
		SessionType: c.SessionType,
		StartedAt:   c.StartedAt,
		Responses:   c.Responses,
		StepsTaken:  c.StepsTaken,
		TotalSteps:  c.TotalSteps,
		Completed:   c.Completed,
		CompletedAt: c.CompletedAt,
	}
}

// Session converts the record back into a Session.
func (r SessionRecord) Session() *Session {
	s := &Session{
		ID:          r.ID,
		SessionType: r.SessionType,
		StartedAt:   r.StartedAt,
		Responses:   r.Responses,
		StepsTaken:  r.StepsTaken,
		TotalSteps:  r.TotalSteps,
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
	}
	return s.Clone()
}

// UnmarshalJSON decodes a record, defaulting missing responses to an empty map.
func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	type plain SessionRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Responses == nil {
		p.Responses = make(map[string]Value)
	}
	*r = SessionRecord(p)
	return nil
}

// ResponsesJSON encodes the responses map for column-oriented stores.
func (r SessionRecord) ResponsesJSON() (string, error) {
	responses := r.Responses
	if responses == nil {
		responses = map[string]Value{}
	}
	data, err := json.Marshal(responses)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetResponsesJSON decodes a responses column written by ResponsesJSON.
func (r *SessionRecord) SetResponsesJSON(data string) error {
	r.Responses = make(map[string]Value)
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), &r.Responses)
}
