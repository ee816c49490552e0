package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// timestampLayouts are tried in order when decoding. Documents written by
// older tooling carry naive ISO-8601 values without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateOnly,
}

// Timestamp is a creation time stored in the metadata document.
// Values that cannot be parsed are kept verbatim so a load/save cycle never
// rewrites them.
type Timestamp struct {
	time.Time
	raw string
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses s with the accepted layouts. ok is false when no
// layout matched; the returned Timestamp then preserves s verbatim.
func ParseTimestamp(s string) (ts Timestamp, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, true
	}
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return Timestamp{Time: t}, true
		}
	}
	return Timestamp{raw: s}, false
}

// IsZero reports whether the timestamp holds neither a time nor a raw value.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.raw == ""
}

// String formats the timestamp as RFC 3339, or returns the raw value.
func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339Nano)
}

// Date returns the YYYY-MM-DD portion for display, or "" when unknown.
func (t Timestamp) Date() string {
	if t.raw != "" || t.Time.IsZero() {
		if len(t.raw) >= len(time.DateOnly) {
			return t.raw[:len(time.DateOnly)]
		}
		return ""
	}
	return t.Time.Format(time.DateOnly)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*t = Timestamp{}
		return nil
	}
	*t, _ = ParseTimestamp(*s)
	return nil
}
