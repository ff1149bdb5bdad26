package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/propdesk/internal/contracts"
)

// =============================================================================
// Economic calendar
// ⭐ SSOT: 경제지표 일정 판단은 이 패키지에서만
// The table is illustrative, not an official feed. Every match carries a
// confidence tier.
// =============================================================================

// Schedule kinds
const (
	KindWeekly       = "weekly"        // every <weekday>
	KindFirstWeekday = "first_weekday" // first <weekday> of the month
	KindDayRange     = "day_range"     // days [from_day, to_day], optionally weekdays only
	KindBusinessDay  = "business_day"  // n-th Monday..Friday of the month
	KindDates        = "dates"         // literal whitelist (YYYY-MM-DD)
)

// Event is one recurring macro release
type Event struct {
	Name           string               `json:"name" yaml:"name"`
	Impact         string               `json:"impact" yaml:"impact"`
	Time           string               `json:"time" yaml:"time"` // HH:MM market time
	Confidence     contracts.Confidence `json:"confidence" yaml:"confidence"`
	Schedule       Schedule             `json:"schedule" yaml:"schedule"`
	Description    string               `json:"description,omitempty" yaml:"description"`
	Recommendation string               `json:"recommendation,omitempty" yaml:"recommendation"`

	minuteOfDay int
	weekday     time.Weekday
	dates       map[string]struct{}
}

// Schedule is the plausibility filter of an event
type Schedule struct {
	Kind         string   `json:"kind" yaml:"kind"`
	Weekday      string   `json:"weekday,omitempty" yaml:"weekday"`
	FromDay      int      `json:"from_day,omitempty" yaml:"from_day"`
	ToDay        int      `json:"to_day,omitempty" yaml:"to_day"`
	WeekdaysOnly bool     `json:"weekdays_only,omitempty" yaml:"weekdays_only"`
	BusinessDay  int      `json:"business_day,omitempty" yaml:"business_day"`
	Dates        []string `json:"dates,omitempty" yaml:"dates"`
}

// Occurrence is an event that plausibly happens on a given date
type Occurrence struct {
	Event       *Event
	MinuteOfDay int // market clock
}

// Calendar is an immutable, validated set of events. Safe for concurrent use.
type Calendar struct {
	source string
	events []Event
}

// New validates the events and builds a calendar
func New(source string, events []Event) (*Calendar, error) {
	prepared := make([]Event, len(events))
	for i := range events {
		ev := events[i]
		if err := ev.prepare(); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, ev.Name, err)
		}
		prepared[i] = ev
	}
	return &Calendar{source: source, events: prepared}, nil
}

// Source tells where the table came from (embedded default or a file path)
func (c *Calendar) Source() string {
	return c.source
}

// Events returns a copy of the table
func (c *Calendar) Events() []Event {
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of events
func (c *Calendar) Len() int {
	return len(c.events)
}

// On returns the events plausible on the civil date of day (market calendar)
func (c *Calendar) On(day time.Time) []Occurrence {
	out := make([]Occurrence, 0)
	for i := range c.events {
		ev := &c.events[i]
		if ev.matches(day) {
			out = append(out, Occurrence{Event: ev, MinuteOfDay: ev.minuteOfDay})
		}
	}
	return out
}

func (e *Event) prepare() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("name is required")
	}

	minute, err := parseClock(e.Time)
	if err != nil {
		return err
	}
	e.minuteOfDay = minute

	switch e.Confidence {
	case contracts.ConfidenceConfirmed, contracts.ConfidenceHighProbability,
		contracts.ConfidenceLowProbability, contracts.ConfidenceEstimated:
	default:
		return fmt.Errorf("unknown confidence %q", e.Confidence)
	}

	s := e.Schedule
	switch s.Kind {
	case KindWeekly, KindFirstWeekday:
		wd, err := parseWeekday(s.Weekday)
		if err != nil {
			return err
		}
		e.weekday = wd
	case KindDayRange:
		if s.FromDay < 1 || s.ToDay > 31 || s.FromDay > s.ToDay {
			return fmt.Errorf("invalid day range %d-%d", s.FromDay, s.ToDay)
		}
	case KindBusinessDay:
		if s.BusinessDay < 1 || s.BusinessDay > 23 {
			return fmt.Errorf("invalid business day %d", s.BusinessDay)
		}
	case KindDates:
		if len(s.Dates) == 0 {
			return fmt.Errorf("dates schedule needs at least one date")
		}
		e.dates = make(map[string]struct{}, len(s.Dates))
		for _, d := range s.Dates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("invalid date %q", d)
			}
			e.dates[d] = struct{}{}
		}
	default:
		return fmt.Errorf("unknown schedule kind %q", s.Kind)
	}

	return nil
}

func (e *Event) matches(day time.Time) bool {
	wd := day.Weekday()
	s := e.Schedule

	switch s.Kind {
	case KindWeekly:
		return wd == e.weekday
	case KindFirstWeekday:
		return wd == e.weekday && day.Day() <= 7
	case KindDayRange:
		if s.WeekdaysOnly && (wd == time.Saturday || wd == time.Sunday) {
			return false
		}
		return day.Day() >= s.FromDay && day.Day() <= s.ToDay
	case KindBusinessDay:
		return businessDayOfMonth(day) == s.BusinessDay
	case KindDates:
		_, ok := e.dates[day.Format("2006-01-02")]
		return ok
	}
	return false
}

// businessDayOfMonth returns the ordinal of day among Monday..Friday of its
// month, or 0 on weekends. Holidays are not modeled.
func businessDayOfMonth(day time.Time) int {
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return 0
	}

	n := 0
	for d := 1; d <= day.Day(); d++ {
		wd := time.Date(day.Year(), day.Month(), d, 12, 0, 0, 0, time.UTC).Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

func parseClock(hhmm string) (int, error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", hhmm)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", hhmm)
	}
	return h*60 + m, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}
