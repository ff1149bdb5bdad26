package report

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/daily"
	"github.com/wonny/propdesk/internal/ingest"
	"github.com/wonny/propdesk/internal/rules"
	"github.com/wonny/propdesk/pkg/logger"
)

// =============================================================================
// Report assembler
// ⭐ SSOT: CSV 텍스트 + 계정 설정 -> AnalysisResult 의 유일한 진입점
// =============================================================================

const approvedDescription = "Sem violações"

// Engine runs the whole analysis pipeline. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	calendars *calendar.Store
	clock     *rules.MarketClock
	table     []rules.WithdrawalTier
	logger    *logger.Logger
}

// NewEngine creates an engine. A nil store disables news detection, a nil
// clock uses New York and a nil table uses the published withdrawal table.
func NewEngine(calendars *calendar.Store, clock *rules.MarketClock, table []rules.WithdrawalTier, log *logger.Logger) *Engine {
	if clock == nil {
		clock = rules.DefaultMarketClock()
	}
	if table == nil {
		table = rules.DefaultWithdrawalTable
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{calendars: calendars, clock: clock, table: table, logger: log}
}

// Thresholds resolves the rule parameters of an account without analyzing
func (e *Engine) Thresholds(acct contracts.AccountConfig) (contracts.RuleThresholds, error) {
	return rules.ResolveThresholds(acct, e.table)
}

// Calendar returns the event table snapshot used by the next analysis
func (e *Engine) Calendar() *calendar.Calendar {
	if e.calendars == nil {
		return nil
	}
	return e.calendars.Current()
}

// CalendarVersion changes whenever a new snapshot is installed
func (e *Engine) CalendarVersion() string {
	cal := e.Calendar()
	if cal == nil {
		return "none"
	}
	return fmt.Sprintf("%s@%d", cal.Source(), e.calendars.LoadedAt().UnixNano())
}

// Analyze is deterministic for the same input and calendar snapshot.
// Errors: *contracts.ConfigError, contracts.ErrNoOperations or
// contracts.ErrInternal. A result is never returned together with an error.
func (e *Engine) Analyze(csvText string, acct contracts.AccountConfig) (result *contracts.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(map[string]interface{}{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Error("Analysis panicked")
			result = nil
			err = fmt.Errorf("%w: %v", contracts.ErrInternal, r)
		}
	}()

	if err := acct.Validate(); err != nil {
		return nil, err
	}
	th, err := rules.ResolveThresholds(acct, e.table)
	if err != nil {
		return nil, err
	}
	loc, err := acct.Location()
	if err != nil {
		return nil, err
	}

	ing := ingest.NewParser(loc, e.logger).Parse(csvText)
	if len(ing.Operations) == 0 {
		return nil, fmt.Errorf("%w (%d rows skipped)", contracts.ErrNoOperations, ing.Stats.SkippedRows)
	}

	cal := e.Calendar()
	ops := ing.Operations
	ev := rules.NewEvaluator(cal, e.clock, e.logger).Evaluate(ops, th)
	days := daily.NewAnalyzer(cal, e.clock, e.logger).Analyze(ops, th, ev.Aggregates)

	result = &contracts.AnalysisResult{
		Approved:          ev.Approved(),
		TotalOperations:   len(ops),
		OperatedDays:      ev.Aggregates.OperatedDays(),
		WinningDays:       ev.Aggregates.WinningDays,
		TotalProfit:       ev.Aggregates.TotalNet,
		BestDayProfit:     ev.Aggregates.BestDayProfitOnly,
		ConsistencyPassed: !hasCode(ev.Violations, contracts.CodeConsistency),
		Violations:        ev.Violations,
		NewsDetails:       ev.News,
		Recommendations:   rules.Recommendations(ev.Violations),
		NextSteps:         rules.NextSteps(ev.Violations),
		Account:           normalizedAccount(acct),
		Thresholds:        th,
		Statistics:        ev.Statistics,
		Period:            period(ops),
		Operations:        annotate(ops, ev.Violations),
		Daily:             days,
		Summary:           daily.Summarize(days),
		Ingestion:         ing.Stats,
	}

	e.logger.WithFields(map[string]interface{}{
		"account_type": acct.AccountType,
		"operations":   result.TotalOperations,
		"days":         result.OperatedDays,
		"violations":   len(result.Violations),
		"approved":     result.Approved,
	}).Info("Analysis completed")

	return result, nil
}

func normalizedAccount(acct contracts.AccountConfig) contracts.AccountConfig {
	acct.UTCOffset = acct.Offset()
	return acct
}

func hasCode(violations []contracts.Violation, code contracts.ViolationCode) bool {
	for _, v := range violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// period spans the civil dates of the first and last opened operation
func period(ops []contracts.TradeOperation) contracts.AnalyzedPeriod {
	first, last := ops[0].OpenedAt, ops[0].OpenedAt
	for _, op := range ops[1:] {
		if op.OpenedAt.Before(first) {
			first = op.OpenedAt
		}
		if op.OpenedAt.After(last) {
			last = op.OpenedAt
		}
	}

	start := civilDate(first)
	end := civilDate(last)
	return contracts.AnalyzedPeriod{
		Start:     start.Format("2006-01-02"),
		End:       end.Format("2006-01-02"),
		TotalDays: int(end.Sub(start).Hours()/24) + 1,
	}
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// annotate marks each operation with the worst severity of the violations
// listing it, by row.
func annotate(ops []contracts.TradeOperation, violations []contracts.Violation) []contracts.AnnotatedOperation {
	type mark struct {
		status contracts.OperationStatus
		titles []string
	}
	marks := make(map[int]*mark)

	for _, v := range violations {
		status := contracts.OperationWarning
		if v.IsCritical() {
			status = contracts.OperationRejected
		}
		for _, ref := range v.AffectedOperations {
			m, ok := marks[ref.Row]
			if !ok {
				m = &mark{status: status}
				marks[ref.Row] = m
			}
			if status == contracts.OperationRejected {
				m.status = status
			}
			m.titles = append(m.titles, v.Title)
		}
	}

	out := make([]contracts.AnnotatedOperation, 0, len(ops))
	for _, op := range ops {
		a := contracts.AnnotatedOperation{
			TradeOperation:    op,
			Status:            contracts.OperationApproved,
			StatusDescription: approvedDescription,
		}
		if m, ok := marks[op.Row]; ok {
			a.Status = m.status
			a.StatusDescription = strings.Join(m.titles, "; ")
		}
		out = append(out, a)
	}
	return out
}
