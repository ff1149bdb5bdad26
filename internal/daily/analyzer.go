package daily

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/rules"
	"github.com/wonny/propdesk/pkg/logger"
)

// =============================================================================
// Per-day analyzer (dashboard view)
// ⭐ SSOT: 판정은 rules 패키지의 predicate 를 그대로 사용
// =============================================================================

const (
	// profitFactorNoLoss is reported for days with profit and no loss
	profitFactorNoLoss = 999

	maxAveragedPerDay = 3
)

var (
	highRiskSingleLoss   = decimal.NewFromInt(-500)
	highRiskGrossLoss    = decimal.NewFromInt(1000)
	mediumRiskSingleLoss = decimal.NewFromInt(-200)
	mediumRiskGrossLoss  = decimal.NewFromInt(400)
)

var weekdayNames = [...]string{"dom.", "seg.", "ter.", "qua.", "qui.", "sex.", "sáb."}

// Analyzer builds the day-by-day breakdown
type Analyzer struct {
	calendar *calendar.Calendar
	clock    *rules.MarketClock
	logger   *logger.Logger
}

// NewAnalyzer creates an analyzer. A nil calendar disables the NEWS check.
func NewAnalyzer(cal *calendar.Calendar, clock *rules.MarketClock, log *logger.Logger) *Analyzer {
	if clock == nil {
		clock = rules.DefaultMarketClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{calendar: cal, clock: clock, logger: log}
}

// Analyze returns one entry per operated day in ascending date order.
// agg must come from rules.Aggregate over the same ops.
func (a *Analyzer) Analyze(ops []contracts.TradeOperation, th contracts.RuleThresholds, agg rules.Aggregates) []contracts.DayAnalysis {
	days := make([]contracts.DayAnalysis, 0, len(agg.Days))
	for _, bucket := range agg.Days {
		days = append(days, a.analyzeDay(ops, bucket, th, agg.TotalProfitOnly))
	}

	a.logger.WithFields(map[string]interface{}{
		"days":       len(days),
		"operations": len(ops),
	}).Debug("Daily analysis built")

	return days
}

func (a *Analyzer) analyzeDay(ops []contracts.TradeOperation, bucket rules.DayBucket, th contracts.RuleThresholds, totalProfitOnly decimal.Decimal) contracts.DayAnalysis {
	day := contracts.DayAnalysis{
		Date:          bucket.Key,
		GrossProfit:   decimal.Zero,
		GrossLoss:     decimal.Zero,
		NetResult:     bucket.Net,
		MaxSingleWin:  decimal.Zero,
		MaxSingleLoss: decimal.Zero,
		AverageWin:    decimal.Zero,
		AverageLoss:   decimal.Zero,
		Violations:    make([]contracts.DayViolation, 0),
		Operations:    make([]contracts.OperationRef, 0, len(bucket.Operations)),
	}

	var overnight, opening, news int
	master := th.AccountType == contracts.AccountMasterFunded

	for _, idx := range bucket.Operations {
		op := ops[idx]
		result := op.OperationResult
		day.TotalOperations++
		day.Operations = append(day.Operations, op.Ref())

		switch {
		case result.IsPositive():
			day.WinningOperations++
			day.GrossProfit = day.GrossProfit.Add(result)
			if result.GreaterThan(day.MaxSingleWin) {
				day.MaxSingleWin = result
			}
		case result.IsNegative():
			day.LosingOperations++
			day.GrossLoss = day.GrossLoss.Add(result.Abs())
			if result.LessThan(day.MaxSingleLoss) {
				day.MaxSingleLoss = result
			}
		}

		if rules.IsOvernight(op) {
			overnight++
		}
		if master && rules.TouchesMarketOpen(op, a.clock) {
			opening++
		}
		if master && len(rules.NewsEvents(op, a.calendar, a.clock)) > 0 {
			news++
		}
	}

	if day.WinningOperations > 0 {
		day.AverageWin = day.GrossProfit.Div(decimal.NewFromInt(int64(day.WinningOperations))).Round(2)
	}
	if day.LosingOperations > 0 {
		day.AverageLoss = day.GrossLoss.Div(decimal.NewFromInt(int64(day.LosingOperations))).Round(2)
	}
	if day.TotalOperations > 0 {
		day.WinRate = round2(float64(day.WinningOperations) / float64(day.TotalOperations) * 100)
	}
	day.ProfitFactor = profitFactor(day.GrossProfit, day.GrossLoss)
	day.RiskLevel = riskLevel(day.MaxSingleLoss, day.GrossLoss)
	day.ConsistencySharePercent = rules.SharePercent(bucket.ProfitOnly, totalProfitOnly)
	day.DayOfWeek = weekdayName(ops[bucket.Operations[0]].OpenedAt)

	day.IsWinningDay = rules.IsWinningDay(day.NetResult, th.MinDailyWinAmount)
	day.ExceedsDailyLimit = rules.ExceedsDailyCap(bucket.ProfitOnly, th.DailyProfitLimit)
	day.ExceedsConsistencyLimit = rules.ExceedsShare(bucket.ProfitOnly, totalProfitOnly, th.MaxDayProfitSharePercent)

	if day.ExceedsDailyLimit {
		day.Violations = append(day.Violations, contracts.DayViolation{
			Code:        contracts.DayCodeDailyLimit,
			Title:       "Limite Diário Excedido",
			Description: fmt.Sprintf("Ganhos de $%s excedem limite de $%s", bucket.ProfitOnly.StringFixed(2), th.DailyProfitLimit.StringFixed(2)),
			Severity:    contracts.SeverityCritical,
			Value:       bucket.ProfitOnly.InexactFloat64(),
			Limit:       th.DailyProfitLimit.InexactFloat64(),
		})
	}

	if day.ExceedsConsistencyLimit {
		day.Violations = append(day.Violations, contracts.DayViolation{
			Code:        contracts.DayCodeConsistency,
			Title:       "Regra de Consistência",
			Description: fmt.Sprintf("Dia representa %.1f%% dos ganhos totais (máx. %s%%)", day.ConsistencySharePercent, th.MaxDayProfitSharePercent.String()),
			Severity:    contracts.SeverityCritical,
			Value:       day.ConsistencySharePercent,
			Limit:       th.MaxDayProfitSharePercent.InexactFloat64(),
		})
	}

	if rules.IsInsufficientWinningDay(day.NetResult, th.MinDailyWinAmount) {
		day.Violations = append(day.Violations, contracts.DayViolation{
			Code:        contracts.DayCodeWinningDay,
			Title:       "Dia Vencedor Insuficiente",
			Description: fmt.Sprintf("Lucro de $%s abaixo do mínimo de $%s", day.NetResult.StringFixed(2), th.MinDailyWinAmount.String()),
			Severity:    contracts.SeverityWarning,
			Value:       day.NetResult.InexactFloat64(),
			Limit:       th.MinDailyWinAmount.InexactFloat64(),
		})
	}

	if bucket.Averaged > maxAveragedPerDay {
		day.Violations = append(day.Violations, contracts.DayViolation{
			Code:        contracts.DayCodeDCA,
			Title:       "Uso Excessivo de Médio",
			Description: fmt.Sprintf("%d operações com preço médio no dia (máx. %d)", bucket.Averaged, maxAveragedPerDay),
			Severity:    contracts.SeverityWarning,
			Value:       float64(bucket.Averaged),
			Limit:       maxAveragedPerDay,
		})
	}

	if overnight > 0 {
		severity := contracts.SeverityWarning
		if master {
			severity = contracts.SeverityCritical
		}
		day.Violations = append(day.Violations, contracts.DayViolation{
			Code:        contracts.DayCodeOvernight,
			Title:       "Posição Overnight",
			Description: fmt.Sprintf("%d operação(ões) encerrada(s) em outra data", overnight),
			Severity:    severity,
			Value:       float64(overnight),
		})
	}

	if opening > 0 {
		day.Violations = append(day.Violations, contracts.DayViolation{
			Code:        contracts.DayCodeNYOpening,
			Title:       "Abertura de Nova York",
			Description: fmt.Sprintf("%d operação(ões) abertas entre 09:15 e 09:45 (%s)", opening, a.clock.Name()),
			Severity:    contracts.SeverityCritical,
			Value:       float64(opening),
		})
	}

	if news > 0 {
		day.Violations = append(day.Violations, contracts.DayViolation{
			Code:        contracts.DayCodeNews,
			Title:       "Exposição a Notícias",
			Description: fmt.Sprintf("%d operação(ões) durante eventos de alto impacto", news),
			Severity:    contracts.SeverityWarning,
			Value:       float64(news),
		})
	}

	day.Status = status(day.Violations)
	return day
}

func status(violations []contracts.DayViolation) contracts.DayStatus {
	result := contracts.DayApproved
	for _, v := range violations {
		switch v.Severity {
		case contracts.SeverityCritical:
			return contracts.DayCritical
		case contracts.SeverityWarning:
			result = contracts.DayWarning
		}
	}
	return result
}

func profitFactor(grossProfit, grossLoss decimal.Decimal) float64 {
	if grossLoss.IsPositive() {
		return grossProfit.Div(grossLoss).Round(2).InexactFloat64()
	}
	if grossProfit.IsPositive() {
		return profitFactorNoLoss
	}
	return 0
}

func riskLevel(maxSingleLoss, grossLoss decimal.Decimal) contracts.RiskLevel {
	switch {
	case maxSingleLoss.LessThan(highRiskSingleLoss) || grossLoss.GreaterThan(highRiskGrossLoss):
		return contracts.RiskHigh
	case maxSingleLoss.LessThan(mediumRiskSingleLoss) || grossLoss.GreaterThan(mediumRiskGrossLoss):
		return contracts.RiskMedium
	default:
		return contracts.RiskLow
	}
}

func weekdayName(t time.Time) string {
	return weekdayNames[t.Weekday()]
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
