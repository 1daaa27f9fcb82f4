package aggregate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnknownPhase is the group key for lines that carry no phase.
const UnknownPhase = "unknown"

// ErrNotObject is returned for lines that are valid JSON but not an object.
var ErrNotObject = errors.New("log line is not a JSON object")

// LogLine is one parsed line of a fragment.
type LogLine struct {
	Phase string
	Time  string
	Msg   string
}

// Format renders the line as "[time] msg".
func (l LogLine) Format() string {
	return "[" + l.Time + "] " + l.Msg
}

// rawLine keeps each field undecoded so time may be a string or a number.
type rawLine struct {
	Phase json.RawMessage `json:"phase"`
	Time  json.RawMessage `json:"time"`
	Msg   json.RawMessage `json:"msg"`
}

// ParseLine parses one JSON Lines record.
// Missing or null phase maps to UnknownPhase; missing time or msg render empty.
func ParseLine(line string) (LogLine, error) {
	data := bytes.TrimSpace([]byte(line))
	if len(data) == 0 || data[0] != '{' {
		return LogLine{}, ErrNotObject
	}

	var raw rawLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogLine{}, fmt.Errorf("failed to decode log line: %w", err)
	}

	phase, ok := text(raw.Phase)
	if !ok {
		phase = UnknownPhase
	}
	t, _ := text(raw.Time)
	msg, _ := text(raw.Msg)

	return LogLine{Phase: phase, Time: t, Msg: msg}, nil
}

// text renders a JSON value the way it should appear in the document:
// strings unquoted, everything else as compact JSON. ok is false for absent or null.
func text(v json.RawMessage) (string, bool) {
	if len(v) == 0 || string(v) == "null" {
		return "", false
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, true
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return strings.TrimSpace(string(v)), true
	}
	return buf.String(), true
}
