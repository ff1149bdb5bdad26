package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/pkg/logger"
)

// =============================================================================
// Rule evaluator
// ⭐ SSOT: 출금 규칙 평가 순서는 여기서만 정의
// =============================================================================

// maxAveragedDays is the number of days with averaged entries tolerated
const maxAveragedDays = 3

// Evaluation is the outcome of the file-wide rules
type Evaluation struct {
	Thresholds contracts.RuleThresholds
	Aggregates Aggregates
	Statistics contracts.Statistics
	Violations []contracts.Violation
	News       []contracts.NewsExposure
}

// Approved is true when no CRITICAL violation was found
func (e Evaluation) Approved() bool {
	for _, v := range e.Violations {
		if v.IsCritical() {
			return false
		}
	}
	return true
}

// Evaluator applies the withdrawal rules to a set of operations
type Evaluator struct {
	calendar *calendar.Calendar
	clock    *MarketClock
	logger   *logger.Logger
}

// NewEvaluator creates an evaluator bound to one calendar snapshot
func NewEvaluator(cal *calendar.Calendar, clock *MarketClock, log *logger.Logger) *Evaluator {
	if clock == nil {
		clock = DefaultMarketClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Evaluator{calendar: cal, clock: clock, logger: log}
}

// Clock returns the market clock used for window checks
func (e *Evaluator) Clock() *MarketClock {
	return e.clock
}

// Calendar returns the event table snapshot
func (e *Evaluator) Calendar() *calendar.Calendar {
	return e.calendar
}

// Evaluate runs every rule in order. The news rule attaches detected events
// to ops in place; callers pass a slice they own.
func (e *Evaluator) Evaluate(ops []contracts.TradeOperation, th contracts.RuleThresholds) Evaluation {
	agg := Aggregate(ops, th.MinDailyWinAmount)

	ev := Evaluation{
		Thresholds: th,
		Aggregates: agg,
		Violations: make([]contracts.Violation, 0),
	}

	e.checkTradingDays(&ev)
	e.checkWinningDays(&ev)
	e.checkConsistency(&ev, ops)
	e.checkDailyCap(&ev, ops)
	e.checkAveraging(&ev, ops)
	overnight := e.checkOvernight(&ev, ops)

	if th.AccountType == contracts.AccountMasterFunded {
		e.checkMarketOpening(&ev, ops)
		e.checkNews(&ev, ops)
	}

	ev.Statistics = contracts.Statistics{
		TotalNetProfit:      agg.TotalNet,
		TotalProfitOnly:     agg.TotalProfitOnly,
		BestDay:             agg.BestDay,
		BestDayProfitOnly:   agg.BestDayProfitOnly,
		BestDaySharePercent: SharePercent(agg.BestDayProfitOnly, agg.TotalProfitOnly),
		AveragedDays:        agg.AveragedDays,
		OvernightOperations: overnight,
	}

	e.logger.WithFields(map[string]interface{}{
		"account_type": th.AccountType,
		"operations":   len(ops),
		"days":         agg.OperatedDays(),
		"violations":   len(ev.Violations),
	}).Debug("Rules evaluated")

	return ev
}

// 1. minimum trading days
func (e *Evaluator) checkTradingDays(ev *Evaluation) {
	days := ev.Aggregates.OperatedDays()
	if days >= ev.Thresholds.MinTradingDays {
		return
	}
	ev.Violations = append(ev.Violations, contracts.Violation{
		Code:     contracts.CodeMinTradingDays,
		Title:    "Dias Mínimos de Operação",
		Severity: contracts.SeverityCritical,
		Description: fmt.Sprintf("Foram operados %d dias, o mínimo exigido para %s é %d dias",
			days, ev.Thresholds.AccountType.Label(), ev.Thresholds.MinTradingDays),
		Detail: contracts.CountDetail{Observed: days, Threshold: ev.Thresholds.MinTradingDays},
	})
}

// 2. minimum winning days (net >= minimum)
func (e *Evaluator) checkWinningDays(ev *Evaluation) {
	winning := ev.Aggregates.WinningDays
	if winning >= ev.Thresholds.MinWinningDays {
		return
	}
	ev.Violations = append(ev.Violations, contracts.Violation{
		Code:     contracts.CodeMinWinningDays,
		Title:    "Dias Vencedores Insuficientes",
		Severity: contracts.SeverityCritical,
		Description: fmt.Sprintf("Apenas %d dias com lucro líquido de pelo menos %s, mínimo exigido: %d",
			winning, money(ev.Thresholds.MinDailyWinAmount), ev.Thresholds.MinWinningDays),
		Detail: contracts.CountDetail{Observed: winning, Threshold: ev.Thresholds.MinWinningDays},
	})
}

// 3. share of the best day in the profit-only total
func (e *Evaluator) checkConsistency(ev *Evaluation, ops []contracts.TradeOperation) {
	agg := ev.Aggregates
	maxPct := ev.Thresholds.MaxDayProfitSharePercent
	if !ExceedsShare(agg.BestDayProfitOnly, agg.TotalProfitOnly, maxPct) {
		return
	}

	share := SharePercent(agg.BestDayProfitOnly, agg.TotalProfitOnly)
	allowed := agg.TotalProfitOnly.Mul(maxPct).Div(hundred)
	excess := agg.BestDayProfitOnly.Sub(allowed).Round(2)

	var affected []contracts.OperationRef
	if bucket, ok := agg.Day(agg.BestDay); ok {
		affected = profitableRefs(ops, bucket)
	}

	ev.Violations = append(ev.Violations, contracts.Violation{
		Code:     contracts.CodeConsistency,
		Title:    "Regra de Consistência Violada",
		Severity: contracts.SeverityCritical,
		Description: fmt.Sprintf("O melhor dia (%s) representa %.2f%% dos lucros totais, máximo permitido: %s%%",
			agg.BestDay, share, maxPct.String()),
		ImpactValue:        &excess,
		AffectedOperations: affected,
		Detail: contracts.ConsistencyDetail{
			BestDay:       agg.BestDay,
			BestDayProfit: agg.BestDayProfitOnly,
			TotalProfit:   agg.TotalProfitOnly,
			SharePercent:  share,
			MaxPercent:    maxPct.InexactFloat64(),
		},
	})
}

// 4. daily profit cap, one violation per offending day
func (e *Evaluator) checkDailyCap(ev *Evaluation, ops []contracts.TradeOperation) {
	limit := ev.Thresholds.DailyProfitLimit
	for _, bucket := range ev.Aggregates.Days {
		if !ExceedsDailyCap(bucket.ProfitOnly, limit) {
			continue
		}

		excess := bucket.ProfitOnly.Sub(limit)
		ev.Violations = append(ev.Violations, contracts.Violation{
			Code:     contracts.CodeDailyProfitCap,
			Title:    "Limite Diário de Lucro Excedido",
			Severity: contracts.SeverityCritical,
			Description: fmt.Sprintf("Em %s os ganhos de %s excederam o limite diário de %s",
				bucket.Key, money(bucket.ProfitOnly), money(limit)),
			ImpactValue:        &excess,
			AffectedOperations: profitableRefs(ops, bucket),
			Detail:             contracts.DailyCapDetail{Day: bucket.Key, Profit: bucket.ProfitOnly, Limit: limit},
		})
	}
}

// 5. averaged entries spread over too many days
func (e *Evaluator) checkAveraging(ev *Evaluation, ops []contracts.TradeOperation) {
	days := ev.Aggregates.AveragedDays
	if days <= maxAveragedDays {
		return
	}

	affected := make([]contracts.OperationRef, 0)
	for _, op := range ops {
		if op.IsAveraged {
			affected = append(affected, op.Ref())
		}
	}

	ev.Violations = append(ev.Violations, contracts.Violation{
		Code:               contracts.CodeExcessiveAverage,
		Title:              "Uso Excessivo de Preço Médio",
		Severity:           contracts.SeverityWarning,
		Description:        fmt.Sprintf("Estratégia de médio utilizada em %d dias (máximo recomendado: %d)", days, maxAveragedDays),
		AffectedOperations: affected,
		Detail:             contracts.CountDetail{Observed: days, Threshold: maxAveragedDays},
	})
}

// 6. positions crossing a calendar date
func (e *Evaluator) checkOvernight(ev *Evaluation, ops []contracts.TradeOperation) int {
	affected := make([]contracts.OperationRef, 0)
	for _, op := range ops {
		if IsOvernight(op) {
			affected = append(affected, op.Ref())
		}
	}
	if len(affected) == 0 {
		return 0
	}

	severity := contracts.SeverityWarning
	if ev.Thresholds.AccountType == contracts.AccountMasterFunded {
		severity = contracts.SeverityCritical
	}

	ev.Violations = append(ev.Violations, contracts.Violation{
		Code:               contracts.CodeOvernight,
		Title:              "Posição Overnight",
		Severity:           severity,
		Description:        fmt.Sprintf("%d operação(ões) mantida(s) de um dia para o outro", len(affected)),
		AffectedOperations: affected,
		Detail:             contracts.OvernightDetail{Operations: len(affected)},
	})
	return len(affected)
}

// 7. open during 09:15-09:45 New York (MASTER_FUNDED)
func (e *Evaluator) checkMarketOpening(ev *Evaluation, ops []contracts.TradeOperation) {
	affected := make([]contracts.OperationRef, 0)
	for _, op := range ops {
		if TouchesMarketOpen(op, e.clock) {
			affected = append(affected, op.Ref())
		}
	}
	if len(affected) == 0 {
		return
	}

	ev.Violations = append(ev.Violations, contracts.Violation{
		Code:     contracts.CodeMarketOpening,
		Title:    "Operação na Abertura de Nova York",
		Severity: contracts.SeverityCritical,
		Description: fmt.Sprintf("%d operação(ões) com posição aberta entre %s e %s (%s)",
			len(affected), formatMinute(marketOpenStartMinute), formatMinute(marketOpenEndMinute), e.clock.Name()),
		AffectedOperations: affected,
		Detail: contracts.MarketWindowDetail{
			Timezone:    e.clock.Name(),
			WindowStart: formatMinute(marketOpenStartMinute),
			WindowEnd:   formatMinute(marketOpenEndMinute),
		},
	})
}

// 8. exposure to calendar events (MASTER_FUNDED)
func (e *Evaluator) checkNews(ev *Evaluation, ops []contracts.TradeOperation) {
	if e.calendar == nil {
		return
	}

	affected := make([]contracts.OperationRef, 0)
	exposures := make([]contracts.NewsExposure, 0)
	for i := range ops {
		matches := NewsEvents(ops[i], e.calendar, e.clock)
		if len(matches) == 0 {
			continue
		}
		ops[i].DetectedEvents = matches
		affected = append(affected, ops[i].Ref())
		exposures = append(exposures, contracts.NewsExposure{Operation: ops[i].Ref(), Events: matches})
	}
	if len(affected) == 0 {
		return
	}

	ev.News = exposures
	ev.Violations = append(ev.Violations, contracts.Violation{
		Code:     contracts.CodeNewsExposure,
		Title:    "Posicionamento Durante Notícias",
		Severity: contracts.SeverityWarning,
		Description: fmt.Sprintf("%d operação(ões) expostas a eventos de alto impacto. Calendário estimado, confirme cada evento na fonte oficial",
			len(affected)),
		AffectedOperations: affected,
		Detail:             contracts.NewsExposureDetail{Exposures: exposures},
	})
}

func profitableRefs(ops []contracts.TradeOperation, bucket DayBucket) []contracts.OperationRef {
	refs := make([]contracts.OperationRef, 0, len(bucket.Operations))
	for _, idx := range bucket.Operations {
		if ops[idx].OperationResult.IsPositive() {
			refs = append(refs, ops[idx].Ref())
		}
	}
	return refs
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
