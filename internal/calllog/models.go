package calllog

import "time"

// Event is an immutable, append-only record of one step in a call's lifecycle.
//
// Invariants:
// - Events are never updated or deleted.
// - Type is required; CallSID or RecordingSID identifies the call.
// - Recording the event is best-effort; call handling never waits on it.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	CallSID      string `json:"call_sid,omitempty" db:"call_sid"`
	RecordingSID string `json:"recording_sid,omitempty" db:"recording_sid"`
	Caller       string `json:"caller,omitempty" db:"caller"`

	// Detail is a short human-readable note (file path, error text).
	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventCallStarted        EventType = "call_started"
	EventRecordingReceived  EventType = "recording_received"
	EventRecordingDuplicate EventType = "recording_duplicate"
	EventRecordingSaved     EventType = "recording_saved"
	EventRecordingFailed    EventType = "recording_failed"
)

// Summary counts events per type.
type Summary struct {
	Calls              int `json:"calls"`
	RecordingsReceived int `json:"recordings_received"`
	RecordingsSaved    int `json:"recordings_saved"`
	RecordingsFailed   int `json:"recordings_failed"`
	Duplicates         int `json:"duplicates"`
}
