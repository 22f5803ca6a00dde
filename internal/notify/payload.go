package notify

import "strings"

// FieldSpec maps an attribute key to the label shown in the notification.
type FieldSpec struct {
	Key   string
	Label string
}

// Field is one labeled value in a notification.
type Field struct {
	Label  string
	Value  string
	Inline bool
}

// Payload is a single chat notification. It is built fresh per event and never stored.
type Payload struct {
	Title  string
	URL    string
	Fields []Field
	Footer string
}

const TranscriptionLabel = "Transcription"

// CallFields are the caller attributes shown for every call, in display order.
var CallFields = []FieldSpec{
	{Key: "Caller", Label: "Caller"},
	{Key: "CallerCity", Label: "City"},
	{Key: "CallerState", Label: "State"},
	{Key: "CallerZip", Label: "Zip"},
	{Key: "CallerCountry", Label: "Country"},
}

// RecordingFields extends CallFields with recording attributes.
var RecordingFields = append(append([]FieldSpec{}, CallFields...),
	FieldSpec{Key: "Duration", Label: "Duration"},
	FieldSpec{Key: "RecordingSid", Label: "Recording ID"},
)

// Fields keeps the entries whose value in bag is present and non-empty, in the given order.
func Fields(specs []FieldSpec, bag map[string]string) []Field {
	out := make([]Field, 0, len(specs))
	for _, s := range specs {
		v := strings.TrimSpace(bag[s.Key])
		if v == "" {
			continue
		}
		out = append(out, Field{Label: s.Label, Value: v, Inline: true})
	}
	return out
}

// WithTranscript appends a non-inline transcription field when text is non-empty.
func WithTranscript(fields []Field, text string) []Field {
	text = strings.TrimSpace(text)
	if text == "" {
		return fields
	}
	return append(fields, Field{Label: TranscriptionLabel, Value: text})
}
