package rules

import (
	"fmt"
	"time"
	_ "time/tzdata" // exact DST transitions without system zoneinfo
)

// DefaultMarketTimezone is the reference exchange clock
const DefaultMarketTimezone = "America/New_York"

// Forbidden opening window, market clock
const (
	marketOpenStartMinute = 9*60 + 15
	marketOpenEndMinute   = 9*60 + 45
)

// MarketClock converts market wall times into instants using the real
// timezone rules of the exchange, so DST follows the actual transition dates.
type MarketClock struct {
	loc *time.Location
}

// NewMarketClock loads an IANA zone
func NewMarketClock(name string) (*MarketClock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load market timezone %q: %w", name, err)
	}
	return &MarketClock{loc: loc}, nil
}

// DefaultMarketClock returns the New York clock
func DefaultMarketClock() *MarketClock {
	clock, err := NewMarketClock(DefaultMarketTimezone)
	if err != nil {
		// tzdata is embedded, this cannot fail
		panic(err)
	}
	return clock
}

// Name returns the IANA zone name
func (c *MarketClock) Name() string {
	return c.loc.String()
}

// At returns the instant of minuteOfDay (market clock) on the civil date of day
func (c *MarketClock) At(day time.Time, minuteOfDay int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minuteOfDay/60, minuteOfDay%60, 0, 0, c.loc)
}

// OpeningWindow returns 09:15 to 09:45 market time on the civil date of day
func (c *MarketClock) OpeningWindow(day time.Time) (time.Time, time.Time) {
	return c.At(day, marketOpenStartMinute), c.At(day, marketOpenEndMinute)
}

func formatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
