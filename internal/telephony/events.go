package telephony

import (
	"errors"
	"strings"
)

// Twilio posts voice webhooks as application/x-www-form-urlencoded.
// Ref: https://www.twilio.com/docs/voice/twiml#request-parameters
//
// Field names mirror Twilio's parameters. These types live only for the
// duration of one request and are never stored.

// CallEvent is the "call started" webhook.
type CallEvent struct {
	CallSID       string `form:"CallSid" json:"call_sid"`
	Caller        string `form:"Caller" json:"caller"`
	CallerCity    string `form:"CallerCity" json:"caller_city,omitempty"`
	CallerState   string `form:"CallerState" json:"caller_state,omitempty"`
	CallerZip     string `form:"CallerZip" json:"caller_zip,omitempty"`
	CallerCountry string `form:"CallerCountry" json:"caller_country,omitempty"`
}

// RecordingEvent is the <Record action> callback. Twilio repeats the call
// parameters on it, so the caller geography is available here too.
type RecordingEvent struct {
	CallEvent

	RecordingURL      string `form:"RecordingUrl" json:"recording_url" binding:"required"`
	RecordingSID      string `form:"RecordingSid" json:"recording_sid" binding:"required"`
	RecordingDuration string `form:"RecordingDuration" json:"recording_duration,omitempty"`
}

var (
	ErrMissingRecordingFields = errors.New("telephony: missing RecordingUrl or RecordingSid")
	ErrInvalidRecordingSID    = errors.New("telephony: invalid RecordingSid")
)

// Validate checks the fields required before any side effect.
func (e RecordingEvent) Validate() error {
	if strings.TrimSpace(e.RecordingURL) == "" || strings.TrimSpace(e.RecordingSID) == "" {
		return ErrMissingRecordingFields
	}
	if !ValidSID(e.RecordingSID) {
		return ErrInvalidRecordingSID
	}
	return nil
}

// Attributes flattens the caller fields for notification formatting.
func (e CallEvent) Attributes() map[string]string {
	return map[string]string{
		"CallSid":       e.CallSID,
		"Caller":        e.Caller,
		"CallerCity":    e.CallerCity,
		"CallerState":   e.CallerState,
		"CallerZip":     e.CallerZip,
		"CallerCountry": e.CallerCountry,
	}
}

// Attributes adds the recording fields. Duration is rendered as "N seconds".
func (e RecordingEvent) Attributes() map[string]string {
	out := e.CallEvent.Attributes()
	out["RecordingSid"] = e.RecordingSID
	if d := strings.TrimSpace(e.RecordingDuration); d != "" {
		out["Duration"] = d + " seconds"
	}
	return out
}

// ValidSID reports whether s is safe to use as a file name stem.
// Twilio SIDs are two letters followed by 32 hex characters.
func ValidSID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
