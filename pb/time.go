package pb

import "time"

// FormatTime serializes a timestamp for a report field. The zero time is
// serialized as an empty string.
func FormatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(time.RFC3339Nano)
}

// ParseTime deserializes a timestamp from a report field; an empty string is
// parsed as the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
