package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned for text that is not DD/MM/YYYY[ HH:MM[:SS]]
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ParseTimestamp reads "DD/MM/YYYY[ HH:MM[:SS]]" on the account clock.
// Missing time means 00:00. Out of range components (31/02, 25:00) are
// rejected instead of being rolled over.
func ParseTimestamp(text string, loc *time.Location) (time.Time, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 || len(parts) > 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}

	dateParts := strings.Split(parts[0], "/")
	if len(dateParts) != 3 || len(dateParts[2]) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}

	day, errD := strconv.Atoi(dateParts[0])
	month, errM := strconv.Atoi(dateParts[1])
	year, errY := strconv.Atoi(dateParts[2])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}

	hour, minute, second := 0, 0, 0
	if len(parts) == 2 {
		timeParts := strings.Split(parts[1], ":")
		if len(timeParts) < 2 || len(timeParts) > 3 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
		}

		values := make([]int, len(timeParts))
		for i, tp := range timeParts {
			v, err := strconv.Atoi(tp)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
			}
			values[i] = v
		}
		hour, minute = values[0], values[1]
		if len(values) == 3 {
			second = values[2]
		}
	}

	if month < 1 || month > 12 || day < 1 || hour < 0 || hour > 23 ||
		minute < 0 || minute > 59 || second < 0 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		// time.Date normalized an impossible day such as 31/02
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, text)
	}

	return t, nil
}

// MinuteOfDay returns hour*60 + minute of t on its own clock
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
