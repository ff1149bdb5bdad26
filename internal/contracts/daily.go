package contracts

import "github.com/shopspring/decimal"

// =============================================================================
// Daily breakdown (dashboard view)
// =============================================================================

// RiskLevel of a trading day
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DayStatus is the verdict of one trading day
type DayStatus string

const (
	DayApproved DayStatus = "approved"
	DayWarning  DayStatus = "warning"
	DayCritical DayStatus = "critical"
)

// Day level violation codes
const (
	DayCodeDailyLimit  = "DAILY_LIMIT"
	DayCodeConsistency = "CONSISTENCY"
	DayCodeWinningDay  = "WINNING_DAY"
	DayCodeDCA         = "DCA"
	DayCodeOvernight   = "OVERNIGHT"
	DayCodeNYOpening   = "NY_OPENING"
	DayCodeNews        = "NEWS"
)

// DayViolation is a rule broken inside one day
type DayViolation struct {
	Code        string   `json:"code"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Value       float64  `json:"value"`
	Limit       float64  `json:"limit"`
}

// DayAnalysis holds the metrics and violations of one trading day
type DayAnalysis struct {
	Date                    string          `json:"date"`
	DayOfWeek               string          `json:"dayOfWeek"`
	TotalOperations         int             `json:"totalOperations"`
	WinningOperations       int             `json:"winningOperations"`
	LosingOperations        int             `json:"losingOperations"`
	WinRate                 float64         `json:"winRate"`
	GrossProfit             decimal.Decimal `json:"grossProfit"`
	GrossLoss               decimal.Decimal `json:"grossLoss"`
	NetResult               decimal.Decimal `json:"netResult"`
	MaxSingleWin            decimal.Decimal `json:"maxSingleWin"`
	MaxSingleLoss           decimal.Decimal `json:"maxSingleLoss"`
	AverageWin              decimal.Decimal `json:"averageWin"`
	AverageLoss             decimal.Decimal `json:"averageLoss"`
	ProfitFactor            float64         `json:"profitFactor"`
	RiskLevel               RiskLevel       `json:"riskLevel"`
	ConsistencySharePercent float64         `json:"consistencySharePercent"`
	Violations              []DayViolation  `json:"violations"`
	Status                  DayStatus       `json:"status"`
	Operations              []OperationRef  `json:"operationsDetails"`
	IsWinningDay            bool            `json:"isWinningDay"`
	ExceedsConsistencyLimit bool            `json:"exceedsConsistencyLimit"`
	ExceedsDailyLimit       bool            `json:"exceedsDailyLimit"`
}

// DailySummary aggregates a (possibly filtered) set of days
type DailySummary struct {
	TotalDays   int             `json:"total"`
	Approved    int             `json:"approved"`
	Warning     int             `json:"warning"`
	Critical    int             `json:"critical"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	TotalLoss   decimal.Decimal `json:"totalLoss"`
	NetTotal    decimal.Decimal `json:"netTotal"`
	WinningDays int             `json:"winningDays"`
}

// DailyFilter selects and orders days for the dashboard
type DailyFilter struct {
	Status    string `json:"status"`     // all, approved, warning, critical
	SortBy    string `json:"sort_by"`    // date, netResult, operations, winRate
	SortOrder string `json:"sort_order"` // asc, desc
}
