package types

import (
	"fmt"
	"strconv"
	"time"
)

// Time wraps time.Time to accept the API's timestamps, which may come
// without a zone ("2024-03-01T10:00:00.123456"). Zone-less values are UTC.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// NewTime returns t in UTC.
func NewTime(t time.Time) Time { return Time{Time: t.UTC()} }

// ParseTime parses any of the layouts the API is known to emit.
func ParseTime(s string) (Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTime(t), nil
		}
	}
	return Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = Time{}
		return nil
	}

	unquoted, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("timestamp must be a JSON string: %w", err)
	}

	parsed, err := ParseTime(unquoted)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Date formats t for list views.
func (t *Time) Date() string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format("Jan 2, 2006")
}
