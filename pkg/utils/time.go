package utils

import "time"

// TimestampLayout is the format used for persisted timestamps.
const TimestampLayout = time.RFC3339Nano

// NowTimestamp returns the current time in the persisted timestamp format.
func NowTimestamp() string {
	return time.Now().Format(TimestampLayout)
}

// ParseTimestamp parses a persisted timestamp. The zero time is returned
// for values that fail to parse, so a corrupt attribute degrades to an
// unset time instead of failing the whole item.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
