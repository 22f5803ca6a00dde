package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// Only the verbs the hotline needs are modelled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type twimlRecord struct {
	XMLName   xml.Name `xml:"Record"`
	MaxLength int      `xml:"maxLength,attr,omitempty"`
	Action    string   `xml:"action,attr,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RecordMessage is the hotline call flow: greeting, message, hang up.
type RecordMessage struct {
	GreetingURL string
	// MaxLength is in seconds.
	MaxLength int
	// Action is where Twilio posts the recording once it is ready.
	Action string
}

// RenderRecordMessage renders the call-control document for an incoming call.
func RenderRecordMessage(m RecordMessage) (string, error) {
	if strings.TrimSpace(m.GreetingURL) == "" {
		return "", errors.New("telephony: greeting url required")
	}
	if strings.TrimSpace(m.Action) == "" {
		return "", errors.New("telephony: record action required")
	}

	r := twimlResponse{Verbs: []any{
		twimlPlay{URL: m.GreetingURL},
		twimlRecord{MaxLength: m.MaxLength, Action: m.Action},
		twimlHangup{},
	}}
	return render(r)
}

func render(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
