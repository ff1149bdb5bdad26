package daily

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/contracts"
)

// Filter values
const (
	StatusAll = "all"

	SortByDate       = "date"
	SortByNetResult  = "netResult"
	SortByOperations = "operations"
	SortByWinRate    = "winRate"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultFilter shows every day, newest first
func DefaultFilter() contracts.DailyFilter {
	return contracts.DailyFilter{Status: StatusAll, SortBy: SortByDate, SortOrder: SortDesc}
}

// Normalize fills empty fields with defaults and rejects unknown values
func Normalize(f contracts.DailyFilter) (contracts.DailyFilter, error) {
	def := DefaultFilter()
	if f.Status == "" {
		f.Status = def.Status
	}
	if f.SortBy == "" {
		f.SortBy = def.SortBy
	}
	if f.SortOrder == "" {
		f.SortOrder = def.SortOrder
	}
	f.Status = strings.ToLower(f.Status)
	f.SortOrder = strings.ToLower(f.SortOrder)

	switch contracts.DayStatus(f.Status) {
	case StatusAll, contracts.DayApproved, contracts.DayWarning, contracts.DayCritical:
	default:
		return f, &contracts.ConfigError{Field: "status", Reason: fmt.Sprintf("unknown status %q", f.Status)}
	}

	switch f.SortBy {
	case SortByDate, SortByNetResult, SortByOperations, SortByWinRate:
	default:
		return f, &contracts.ConfigError{Field: "sort_by", Reason: fmt.Sprintf("unknown sort field %q", f.SortBy)}
	}

	if f.SortOrder != SortAsc && f.SortOrder != SortDesc {
		return f, &contracts.ConfigError{Field: "sort_order", Reason: fmt.Sprintf("unknown sort order %q", f.SortOrder)}
	}

	return f, nil
}

// Query filters by status and sorts. The input slice is not modified.
func Query(days []contracts.DayAnalysis, filter contracts.DailyFilter) ([]contracts.DayAnalysis, error) {
	f, err := Normalize(filter)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.DayAnalysis, 0, len(days))
	for _, d := range days {
		if f.Status == StatusAll || string(d.Status) == f.Status {
			out = append(out, d)
		}
	}

	less := lessFunc(f.SortBy)
	desc := f.SortOrder == SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	return out, nil
}

func lessFunc(sortBy string) func(a, b contracts.DayAnalysis) bool {
	switch sortBy {
	case SortByNetResult:
		return func(a, b contracts.DayAnalysis) bool { return a.NetResult.LessThan(b.NetResult) }
	case SortByOperations:
		return func(a, b contracts.DayAnalysis) bool { return a.TotalOperations < b.TotalOperations }
	case SortByWinRate:
		return func(a, b contracts.DayAnalysis) bool { return a.WinRate < b.WinRate }
	default:
		return func(a, b contracts.DayAnalysis) bool { return a.Date < b.Date }
	}
}

// Summarize counts statuses and sums the money columns
func Summarize(days []contracts.DayAnalysis) contracts.DailySummary {
	s := contracts.DailySummary{
		TotalDays:   len(days),
		TotalProfit: decimal.Zero,
		TotalLoss:   decimal.Zero,
		NetTotal:    decimal.Zero,
	}

	for _, d := range days {
		switch d.Status {
		case contracts.DayApproved:
			s.Approved++
		case contracts.DayWarning:
			s.Warning++
		case contracts.DayCritical:
			s.Critical++
		}
		if d.IsWinningDay {
			s.WinningDays++
		}
		s.TotalProfit = s.TotalProfit.Add(d.GrossProfit)
		s.TotalLoss = s.TotalLoss.Add(d.GrossLoss)
		s.NetTotal = s.NetTotal.Add(d.NetResult)
	}

	return s
}
