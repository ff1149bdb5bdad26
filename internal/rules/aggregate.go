package rules

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/contracts"
)

// DayBucket groups the operations opened on one civil date
type DayBucket struct {
	Key        string
	Operations []int // indices into the operation slice, file order
	Net        decimal.Decimal
	ProfitOnly decimal.Decimal
	Averaged   int
}

// Aggregates are the file-wide numbers every rule reads
type Aggregates struct {
	Days              []DayBucket // ascending by Key
	TotalNet          decimal.Decimal
	TotalProfitOnly   decimal.Decimal
	BestDay           string
	BestDayProfitOnly decimal.Decimal
	WinningDays       int
	AveragedDays      int
}

// Aggregate groups operations by the civil date of openedAt and keeps net
// and profit-only sums side by side.
func Aggregate(ops []contracts.TradeOperation, minDailyWin decimal.Decimal) Aggregates {
	agg := Aggregates{
		TotalNet:          decimal.Zero,
		TotalProfitOnly:   decimal.Zero,
		BestDayProfitOnly: decimal.Zero,
	}

	index := make(map[string]int)
	for i, op := range ops {
		key := DayKey(op.OpenedAt)
		pos, ok := index[key]
		if !ok {
			pos = len(agg.Days)
			index[key] = pos
			agg.Days = append(agg.Days, DayBucket{Key: key, Net: decimal.Zero, ProfitOnly: decimal.Zero})
		}

		b := &agg.Days[pos]
		b.Operations = append(b.Operations, i)
		b.Net = b.Net.Add(op.OperationResult)
		if op.OperationResult.IsPositive() {
			b.ProfitOnly = b.ProfitOnly.Add(op.OperationResult)
			agg.TotalProfitOnly = agg.TotalProfitOnly.Add(op.OperationResult)
		}
		if op.IsAveraged {
			b.Averaged++
		}
		agg.TotalNet = agg.TotalNet.Add(op.OperationResult)
	}

	sort.Slice(agg.Days, func(i, j int) bool {
		return agg.Days[i].Key < agg.Days[j].Key
	})

	for _, b := range agg.Days {
		if b.ProfitOnly.GreaterThan(agg.BestDayProfitOnly) {
			agg.BestDay = b.Key
			agg.BestDayProfitOnly = b.ProfitOnly
		}
		if IsWinningDay(b.Net, minDailyWin) {
			agg.WinningDays++
		}
		if b.Averaged > 0 {
			agg.AveragedDays++
		}
	}

	return agg
}

// OperatedDays is the number of distinct civil dates
func (a Aggregates) OperatedDays() int {
	return len(a.Days)
}

// Day returns the bucket for key
func (a Aggregates) Day(key string) (DayBucket, bool) {
	for _, b := range a.Days {
		if b.Key == key {
			return b, true
		}
	}
	return DayBucket{}, false
}
