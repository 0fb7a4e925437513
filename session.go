package reagent

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TranscriptEntry pairs one executed action with the observation it
// produced. Entries are append-only; their order defines the thought history
// replayed into every later prompt.
type TranscriptEntry struct {
	Action      Action `json:"action"`
	Observation string `json:"observation"`
}

// Session is the state of one agent run: the original query, the transcript
// accumulated so far, and the number of executed steps. A session is owned
// by exactly one Run or Resume invocation at a time.
type Session struct {
	ID         string            `json:"id"`
	Query      string            `json:"query"`
	Transcript []TranscriptEntry `json:"transcript,omitempty"`
	Steps      int               `json:"steps"`
}

// NewSession creates an empty session for query.
func NewSession(query string) *Session {
	return &Session{ID: uuid.NewString(), Query: query}
}

// append records an executed action and advances the step counter.
func (s *Session) append(action Action, observation string) {
	s.Transcript = append(s.Transcript, TranscriptEntry{Action: action, Observation: observation})
	s.Steps++
}

// Checkpoint serializes the session so an interrupted run can be resumed
// later, transcript included.
func (s *Session) Checkpoint() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("checkpoint session %s: %w", s.ID, err)
	}
	return data, nil
}

// RestoreSession rebuilds a session from Checkpoint output.
func RestoreSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if s.Query == "" {
		return nil, fmt.Errorf("restore session: missing query")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Steps < len(s.Transcript) {
		s.Steps = len(s.Transcript)
	}
	return &s, nil
}
