// -----------------------------------------------------------------------
// Worker message protocol - newline-delimited JSON between the scheduler
// and the spawned worker process
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
)

// Worker message types. The worker emits zero or more progress/result/account
// messages followed by exactly one terminal message (done or error); the
// terminal message is always the last message on the stream.
const (
	MessageTypeStartSession = "start-session"
	MessageTypeProgress     = "progress"
	MessageTypeResult       = "result"
	MessageTypeAccount      = "account"
	MessageTypeDone         = "done"
	MessageTypeError        = "error"
)

// Account events carried by account messages
const (
	AccountEventLeased  = "leased"
	AccountEventErrored = "errored"
	AccountEventCookies = "cookies"
)

// SessionOptions is the per-run behavior snapshot sent to the worker
type SessionOptions struct {
	Headless           bool `json:"headless"`
	MinutePacing       bool `json:"minute_pacing"`
	MaxRetries         int  `json:"max_retries"`
	MaxAcquireAttempts int  `json:"max_acquire_attempts"`
	PacingMinMs        int  `json:"pacing_min_ms"`
	PacingMaxMs        int  `json:"pacing_max_ms"`
}

// StartSession is the single message sent to a worker process on stdin
// immediately after spawn.
type StartSession struct {
	Type     string         `json:"type"` // Always MessageTypeStartSession
	JobID    string         `json:"job_id"`
	Items    []Lead         `json:"items"`
	Accounts []Account      `json:"accounts"` // Eligible pool, newest first
	Options  SessionOptions `json:"options"`
}

// Validate checks a decoded start-session message
func (s *StartSession) Validate() error {
	if s.Type != MessageTypeStartSession {
		return fmt.Errorf("unexpected message type %q, want %q", s.Type, MessageTypeStartSession)
	}
	if s.JobID == "" {
		return fmt.Errorf("start-session missing job_id")
	}
	if len(s.Items) == 0 {
		return fmt.Errorf("start-session contains no items")
	}
	return nil
}

// WorkerMessage is one upstream message from the worker process. The flat
// shape mirrors the wire format; fields are populated per Type.
type WorkerMessage struct {
	Type string `json:"type"`

	// progress / done
	Success int `json:"success,omitempty"`
	Failure int `json:"failure,omitempty"`
	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`

	// result
	LeadID  string       `json:"lead_id,omitempty"`
	Profile *LeadProfile `json:"profile,omitempty"`

	// account
	Email         string   `json:"email,omitempty"`
	Event         string   `json:"event,omitempty"`
	Cookies       []Cookie `json:"cookies,omitempty"`
	LoginAttempts int      `json:"login_attempts,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

// IsTerminal reports whether this message ends the worker stream
func (m *WorkerMessage) IsTerminal() bool {
	return m.Type == MessageTypeDone || m.Type == MessageTypeError
}

// ProgressMessage builds a progress message
func ProgressMessage(success, failure, current, total int) WorkerMessage {
	return WorkerMessage{Type: MessageTypeProgress, Success: success, Failure: failure, Current: current, Total: total}
}

// ResultMessage builds a result message carrying an extracted profile
func ResultMessage(leadID string, profile *LeadProfile) WorkerMessage {
	return WorkerMessage{Type: MessageTypeResult, LeadID: leadID, Profile: profile}
}

// DoneMessage builds the successful terminal message
func DoneMessage(success, failure int) WorkerMessage {
	return WorkerMessage{Type: MessageTypeDone, Success: success, Failure: failure}
}

// ErrorMessage builds the failure terminal message
func ErrorMessage(message string) WorkerMessage {
	return WorkerMessage{Type: MessageTypeError, Error: message}
}

// DecodeWorkerMessage parses one NDJSON line from the worker stream
func DecodeWorkerMessage(line []byte) (*WorkerMessage, error) {
	var msg WorkerMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode worker message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("worker message missing type")
	}
	return &msg, nil
}
