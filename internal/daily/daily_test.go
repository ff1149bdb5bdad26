package daily

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/rules"
)

var brt = time.FixedZone("UTC-03", -3*3600)

func op(row int, opened, closed, result string) contracts.TradeOperation {
	parse := func(s string) time.Time {
		t, err := time.ParseInLocation("2006-01-02 15:04", s, brt)
		if err != nil {
			panic(err)
		}
		return t
	}
	return contracts.TradeOperation{
		Row:             row,
		Asset:           "WDOF24",
		OpenedAt:        parse(opened),
		ClosedAt:        parse(closed),
		OperationResult: decimal.RequireFromString(result),
	}
}

func analyze(t *testing.T, acct contracts.AccountType, ops []contracts.TradeOperation) []contracts.DayAnalysis {
	t.Helper()
	th, err := rules.ResolveThresholds(contracts.AccountConfig{
		AccountType:    acct,
		CurrentBalance: decimal.NewFromInt(50000),
	}, rules.DefaultWithdrawalTable)
	require.NoError(t, err)

	agg := rules.Aggregate(ops, th.MinDailyWinAmount)
	return NewAnalyzer(calendar.Default(), rules.DefaultMarketClock(), nil).Analyze(ops, th, agg)
}

func dayCodes(d contracts.DayAnalysis) []string {
	out := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}

func TestAnalyze_Metrics(t *testing.T) {
	ops := []contracts.TradeOperation{
		op(2, "2024-01-02 13:00", "2024-01-02 13:10", "300"),
		op(3, "2024-01-02 13:20", "2024-01-02 13:30", "-100"),
		op(4, "2024-01-02 13:40", "2024-01-02 13:50", "100"),
		op(5, "2024-01-02 14:00", "2024-01-02 14:10", "0"),
		op(6, "2024-01-03 13:00", "2024-01-03 13:10", "250"),
	}

	days := analyze(t, contracts.AccountInstantFunding, ops)
	require.Len(t, days, 2)

	d := days[0]
	assert.Equal(t, "2024-01-02", d.Date)
	assert.Equal(t, "ter.", d.DayOfWeek)
	assert.Equal(t, 4, d.TotalOperations)
	assert.Equal(t, 2, d.WinningOperations)
	assert.Equal(t, 1, d.LosingOperations)
	assert.Equal(t, 50.0, d.WinRate)
	assert.True(t, decimal.NewFromInt(400).Equal(d.GrossProfit))
	assert.True(t, decimal.NewFromInt(100).Equal(d.GrossLoss))
	assert.True(t, decimal.NewFromInt(300).Equal(d.NetResult))
	assert.True(t, decimal.NewFromInt(300).Equal(d.MaxSingleWin))
	assert.True(t, decimal.NewFromInt(-100).Equal(d.MaxSingleLoss))
	assert.True(t, decimal.NewFromInt(200).Equal(d.AverageWin))
	assert.True(t, decimal.NewFromInt(100).Equal(d.AverageLoss))
	assert.Equal(t, 4.0, d.ProfitFactor)
	assert.Equal(t, contracts.RiskLow, d.RiskLevel)
	assert.True(t, d.IsWinningDay)
	assert.Len(t, d.Operations, 4)

	assert.Equal(t, "qua.", days[1].DayOfWeek)
	assert.Equal(t, float64(profitFactorNoLoss), days[1].ProfitFactor)
}

func TestAnalyze_RiskLevel(t *testing.T) {
	tests := []struct {
		name    string
		results []string
		want    contracts.RiskLevel
	}{
		{"small losses", []string{"-100", "-100"}, contracts.RiskLow},
		{"single loss over 200", []string{"-201"}, contracts.RiskMedium},
		{"gross loss over 400", []string{"-150", "-150", "-150"}, contracts.RiskMedium},
		{"single loss over 500", []string{"-501"}, contracts.RiskHigh},
		{"gross loss over 1000", []string{"-200", "-200", "-200", "-200", "-200", "-1"}, contracts.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := make([]contracts.TradeOperation, 0, len(tt.results))
			for i, r := range tt.results {
				ops = append(ops, op(i+2, "2024-01-02 13:00", "2024-01-02 13:05", r))
			}
			days := analyze(t, contracts.AccountInstantFunding, ops)
			require.Len(t, days, 1)
			assert.Equal(t, tt.want, days[0].RiskLevel)
			assert.Equal(t, 0.0, days[0].ProfitFactor)
		})
	}
}

func TestAnalyze_Violations(t *testing.T) {
	// INSTANT at 50000: daily limit 780, max share 30%, winning minimum 200
	ops := []contracts.TradeOperation{
		op(2, "2024-01-02 13:00", "2024-01-02 13:10", "800"),
		op(3, "2024-01-03 13:00", "2024-01-03 13:10", "150"),
		op(4, "2024-01-04 13:00", "2024-01-04 13:10", "300"),
		op(5, "2024-01-05 13:00", "2024-01-05 13:10", "300"),
		op(6, "2024-01-08 13:00", "2024-01-08 13:10", "300"),
		op(7, "2024-01-09 23:50", "2024-01-10 00:10", "300"),
	}
	for i := 0; i < 4; i++ {
		a := op(10+i, "2024-01-04 14:00", "2024-01-04 14:05", "0")
		a.IsAveraged = true
		ops = append(ops, a)
	}

	days := analyze(t, contracts.AccountInstantFunding, ops)
	require.Len(t, days, 6)

	assert.Equal(t, []string{contracts.DayCodeDailyLimit, contracts.DayCodeConsistency}, dayCodes(days[0]))
	assert.Equal(t, contracts.DayCritical, days[0].Status)
	assert.True(t, days[0].ExceedsDailyLimit)
	assert.True(t, days[0].ExceedsConsistencyLimit)
	assert.Equal(t, "Ganhos de $800.00 excedem limite de $780.00", days[0].Violations[0].Description)

	assert.Equal(t, []string{contracts.DayCodeWinningDay}, dayCodes(days[1]))
	assert.Equal(t, contracts.DayWarning, days[1].Status)
	assert.False(t, days[1].IsWinningDay)

	assert.Equal(t, []string{contracts.DayCodeDCA}, dayCodes(days[2]))
	assert.Equal(t, contracts.DayWarning, days[2].Status)

	assert.Empty(t, days[3].Violations)
	assert.Equal(t, contracts.DayApproved, days[3].Status)

	require.Equal(t, []string{contracts.DayCodeOvernight}, dayCodes(days[5]))
	assert.Equal(t, contracts.SeverityWarning, days[5].Violations[0].Severity)
}

func TestAnalyze_MasterOnlyChecks(t *testing.T) {
	ops := []contracts.TradeOperation{
		// 09:20 New York in winter
		op(2, "2024-01-10 11:20", "2024-01-10 11:25", "100"),
		// NFP 08:30 New York
		op(3, "2024-01-05 10:28", "2024-01-05 10:40", "100"),
		op(4, "2024-01-08 23:50", "2024-01-09 00:10", "100"),
	}

	master := analyze(t, contracts.AccountMasterFunded, ops)
	require.Len(t, master, 3)
	assert.Equal(t, []string{contracts.DayCodeNews}, dayCodes(master[0]))
	assert.Equal(t, []string{contracts.DayCodeOvernight}, dayCodes(master[1]))
	assert.Equal(t, contracts.SeverityCritical, master[1].Violations[0].Severity)
	assert.Equal(t, []string{contracts.DayCodeNYOpening}, dayCodes(master[2]))

	instant := analyze(t, contracts.AccountInstantFunding, ops)
	for _, d := range instant {
		assert.NotContains(t, dayCodes(d), contracts.DayCodeNews)
		assert.NotContains(t, dayCodes(d), contracts.DayCodeNYOpening)
	}
}

func sampleDays() []contracts.DayAnalysis {
	return []contracts.DayAnalysis{
		{Date: "2024-01-02", Status: contracts.DayApproved, NetResult: decimal.NewFromInt(100), GrossProfit: decimal.NewFromInt(150), GrossLoss: decimal.NewFromInt(50), TotalOperations: 3, WinRate: 66.67, IsWinningDay: true},
		{Date: "2024-01-03", Status: contracts.DayCritical, NetResult: decimal.NewFromInt(900), GrossProfit: decimal.NewFromInt(900), GrossLoss: decimal.Zero, TotalOperations: 1, WinRate: 100, IsWinningDay: true},
		{Date: "2024-01-04", Status: contracts.DayWarning, NetResult: decimal.NewFromInt(-200), GrossProfit: decimal.Zero, GrossLoss: decimal.NewFromInt(200), TotalOperations: 5, WinRate: 0},
	}
}

func dates(days []contracts.DayAnalysis) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Date)
	}
	return out
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter contracts.DailyFilter
		want   []string
	}{
		{"defaults newest first", contracts.DailyFilter{}, []string{"2024-01-04", "2024-01-03", "2024-01-02"}},
		{"date ascending", contracts.DailyFilter{SortBy: SortByDate, SortOrder: SortAsc}, []string{"2024-01-02", "2024-01-03", "2024-01-04"}},
		{"net result descending", contracts.DailyFilter{SortBy: SortByNetResult, SortOrder: SortDesc}, []string{"2024-01-03", "2024-01-02", "2024-01-04"}},
		{"operations ascending", contracts.DailyFilter{SortBy: SortByOperations, SortOrder: SortAsc}, []string{"2024-01-03", "2024-01-02", "2024-01-04"}},
		{"win rate ascending", contracts.DailyFilter{SortBy: SortByWinRate, SortOrder: SortAsc}, []string{"2024-01-04", "2024-01-02", "2024-01-03"}},
		{"critical only", contracts.DailyFilter{Status: "critical"}, []string{"2024-01-03"}},
		{"status is case insensitive", contracts.DailyFilter{Status: "WARNING"}, []string{"2024-01-04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(sampleDays(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dates(got))
		})
	}
}

func TestQuery_DoesNotModifyInput(t *testing.T) {
	days := sampleDays()
	_, err := Query(days, contracts.DailyFilter{SortBy: SortByNetResult, SortOrder: SortDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, dates(days))
}

func TestQuery_InvalidFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter contracts.DailyFilter
		field  string
	}{
		{"status", contracts.DailyFilter{Status: "pending"}, "status"},
		{"sort field", contracts.DailyFilter{SortBy: "profit"}, "sort_by"},
		{"sort order", contracts.DailyFilter{SortOrder: "up"}, "sort_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Query(sampleDays(), tt.filter)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrInvalidConfiguration))

			var cfgErr *contracts.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleDays())

	assert.Equal(t, 3, s.TotalDays)
	assert.Equal(t, 1, s.Approved)
	assert.Equal(t, 1, s.Warning)
	assert.Equal(t, 1, s.Critical)
	assert.Equal(t, 2, s.WinningDays)
	assert.True(t, decimal.NewFromInt(1050).Equal(s.TotalProfit))
	assert.True(t, decimal.NewFromInt(250).Equal(s.TotalLoss))
	assert.True(t, decimal.NewFromInt(800).Equal(s.NetTotal))

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalDays)
	assert.True(t, empty.NetTotal.IsZero())
}
