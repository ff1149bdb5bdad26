package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleThresholds are derived from the account type and balance
type RuleThresholds struct {
	AccountType              AccountType     `json:"conta_type"`
	MinTradingDays           int             `json:"min_trading_days"`
	MinWinningDays           int             `json:"min_winning_days"`
	MinDailyWinAmount        decimal.Decimal `json:"min_daily_win_amount"`
	MaxDayProfitSharePercent decimal.Decimal `json:"max_day_profit_share_percent"`
	ConsistencyDecimal       decimal.Decimal `json:"consistency_decimal"`
	NominalAccountSize       decimal.Decimal `json:"nominal_account_size"`
	WithdrawalThreshold      decimal.Decimal `json:"withdrawal_threshold"`
	DailyProfitLimit         decimal.Decimal `json:"daily_profit_limit"`
}

// Statistics are the file-wide aggregates the rules consume
type Statistics struct {
	TotalNetProfit      decimal.Decimal `json:"total_net_profit"`
	TotalProfitOnly     decimal.Decimal `json:"total_profit_only"`
	BestDay             string          `json:"best_day,omitempty"`
	BestDayProfitOnly   decimal.Decimal `json:"best_day_profit_only"`
	BestDaySharePercent float64         `json:"best_day_share_percent"`
	AveragedDays        int             `json:"averaged_days"`
	OvernightOperations int             `json:"overnight_operations"`
}

// AnalyzedPeriod is the inclusive date range of opened operations
type AnalyzedPeriod struct {
	Start     string `json:"inicio"`
	End       string `json:"fim"`
	TotalDays int    `json:"total_dias"`
}

// AnalysisResult is the deterministic output of one analysis
type AnalysisResult struct {
	Approved          bool            `json:"aprovado"`
	TotalOperations   int             `json:"total_operacoes"`
	OperatedDays      int             `json:"dias_operados"`
	WinningDays       int             `json:"dias_vencedores"`
	TotalProfit       decimal.Decimal `json:"lucro_total"`
	BestDayProfit     decimal.Decimal `json:"maior_lucro_dia"`
	ConsistencyPassed bool            `json:"consistencia_40_percent"`
	Violations        []Violation     `json:"violacoes"`
	NewsDetails       []NewsExposure  `json:"detalhes_noticias,omitempty"`
	Recommendations   []string        `json:"recomendacoes"`
	NextSteps         []string        `json:"proximos_passos"`

	Account    AccountConfig        `json:"conta"`
	Thresholds RuleThresholds       `json:"thresholds"`
	Statistics Statistics           `json:"statistics"`
	Period     AnalyzedPeriod       `json:"analyzed_period"`
	Operations []AnnotatedOperation `json:"operations"`
	Daily      []DayAnalysis        `json:"daily"`
	Summary    DailySummary         `json:"daily_summary"`
	Ingestion  IngestionStats       `json:"ingestion"`
}

// CriticalCount returns the number of blocking violations
func (r *AnalysisResult) CriticalCount() int {
	count := 0
	for _, v := range r.Violations {
		if v.IsCritical() {
			count++
		}
	}
	return count
}

// Report wraps a result with the non-deterministic envelope fields
type Report struct {
	*AnalysisResult
	RequestID   string    `json:"request_id,omitempty"`
	GeneratedAt time.Time `json:"gerado_em"`
	Cached      bool      `json:"cached"`
}
