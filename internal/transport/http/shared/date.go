package shared

import (
	"errors"
	"time"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD. Empty input is an error, not the
// zero time; callers that allow a blank field check before parsing.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}
