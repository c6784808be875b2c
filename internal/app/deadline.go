package app

import (
	"errors"
	"strings"
	"time"
)

// errBadDeadline is recoverable: the deadline-entry step re-prompts on it.
var errBadDeadline = errors.New("unrecognized deadline format")

// ParseDeadline accepts "HH:MM DD.MM.YYYY" for an explicit instant, or a
// bare "HH:MM" meaning the next occurrence of that wall-clock time (today if
// still ahead, otherwise tomorrow). Both are interpreted in loc.
func ParseDeadline(input string, now time.Time, loc *time.Location) (time.Time, error) {
	input = strings.TrimSpace(input)

	if t, err := time.ParseInLocation(deadlineFormat, input, loc); err == nil {
		return t, nil
	}

	clock, err := time.ParseInLocation("15:04", input, loc)
	if err != nil {
		return time.Time{}, errBadDeadline
	}
	local := now.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate, nil
}
