package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
)

// =============================================================================
// Rule predicates
// ⭐ SSOT: 파일 전체 평가와 일별 분석이 같은 판정 함수를 공유
// =============================================================================

const (
	newsWindow  = 5 * time.Minute
	maxSpanDays = 7 // calendar days scanned for a single operation
)

var hundred = decimal.NewFromInt(100)

// DayKey is the civil date of t on its own clock (YYYY-MM-DD)
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsOvernight compares full calendar dates of open and close
func IsOvernight(op contracts.TradeOperation) bool {
	y1, m1, d1 := op.OpenedAt.Date()
	y2, m2, d2 := op.ClosedAt.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// Overlaps reports whether the position was open at some instant of [start, end]
func Overlaps(op contracts.TradeOperation, start, end time.Time) bool {
	return !op.OpenedAt.After(end) && !op.ClosedAt.Before(start)
}

// ExceedsDailyCap reports a day whose profit-only sum is above the limit
func ExceedsDailyCap(profitOnly, limit decimal.Decimal) bool {
	return profitOnly.GreaterThan(limit)
}

// ExceedsShare reports part/total*100 > maxPercent, computed without division.
// Zero or negative inputs never exceed.
func ExceedsShare(part, total, maxPercent decimal.Decimal) bool {
	if !total.IsPositive() || !part.IsPositive() {
		return false
	}
	return part.Mul(hundred).GreaterThan(maxPercent.Mul(total))
}

// SharePercent returns part/total*100, 0 when total is not positive
func SharePercent(part, total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	return part.Mul(hundred).Div(total).Round(4).InexactFloat64()
}

// IsWinningDay uses the net result, not the profit-only sum
func IsWinningDay(net, minDailyWin decimal.Decimal) bool {
	return net.GreaterThanOrEqual(minDailyWin)
}

// IsInsufficientWinningDay is a positive day below the winning minimum
func IsInsufficientWinningDay(net, minDailyWin decimal.Decimal) bool {
	return net.IsPositive() && net.LessThan(minDailyWin)
}

// TouchesMarketOpen checks the opening window on every civil date the
// position spans.
func TouchesMarketOpen(op contracts.TradeOperation, clock *MarketClock) bool {
	day := op.OpenedAt
	for i := 0; i < maxSpanDays; i++ {
		start, end := clock.OpeningWindow(day)
		if Overlaps(op, start, end) {
			return true
		}
		if DayKey(day) >= DayKey(op.ClosedAt) {
			break
		}
		day = day.AddDate(0, 0, 1)
	}
	return false
}

// NewsEvents returns the calendar events whose ±5 minute window overlaps the
// operation. Every civil date the position spans is checked.
func NewsEvents(op contracts.TradeOperation, cal *calendar.Calendar, clock *MarketClock) []contracts.EventMatch {
	if cal == nil {
		return nil
	}

	var matches []contracts.EventMatch
	seen := make(map[string]struct{})

	day := op.OpenedAt
	for i := 0; i < maxSpanDays; i++ {
		for _, occ := range cal.On(day) {
			release := clock.At(day, occ.MinuteOfDay)
			if !Overlaps(op, release.Add(-newsWindow), release.Add(newsWindow)) {
				continue
			}

			key := occ.Event.Name + "@" + release.UTC().Format(time.RFC3339)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			matches = append(matches, contracts.EventMatch{
				Event:          occ.Event.Name,
				Impact:         occ.Event.Impact,
				ReleaseAt:      release.In(op.OpenedAt.Location()),
				MarketTime:     formatMinute(occ.MinuteOfDay),
				Confidence:     occ.Event.Confidence,
				Description:    occ.Event.Description,
				Recommendation: occ.Event.Recommendation,
			})
		}

		if DayKey(day) >= DayKey(op.ClosedAt) {
			break
		}
		day = day.AddDate(0, 0, 1)
	}

	return matches
}
