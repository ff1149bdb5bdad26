package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Violations
// =============================================================================

// Severity of a violation. Only CRITICAL blocks the withdrawal.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// ViolationCode identifies a file-wide rule
type ViolationCode string

// Rule codes in evaluation order
const (
	CodeMinTradingDays   ViolationCode = "DIAS_MINIMOS"
	CodeMinWinningDays   ViolationCode = "DIAS_VENCEDORES"
	CodeConsistency      ViolationCode = "CONSISTENCIA"
	CodeDailyProfitCap   ViolationCode = "LIMITE_DIARIO"
	CodeExcessiveAverage ViolationCode = "DCA_EXCESSIVO"
	CodeOvernight        ViolationCode = "OVERNIGHT"
	CodeMarketOpening    ViolationCode = "ABERTURA_NY"
	CodeNewsExposure     ViolationCode = "NOTICIAS"
)

// Violation is one broken rule. Detail carries the typed payload of the code.
type Violation struct {
	Code               ViolationCode    `json:"codigo"`
	Title              string           `json:"titulo"`
	Description        string           `json:"descricao"`
	Severity           Severity         `json:"severidade"`
	ImpactValue        *decimal.Decimal `json:"valor_impacto,omitempty"`
	AffectedOperations []OperationRef   `json:"operacoes_afetadas,omitempty"`
	Detail             ViolationDetail  `json:"detalhe,omitempty"`
}

// IsCritical reports whether the violation blocks approval
func (v Violation) IsCritical() bool {
	return v.Severity == SeverityCritical
}

// ViolationDetail is implemented by every typed payload
type ViolationDetail interface {
	violationDetail()
}

// CountDetail: day counts and averaged-day counts against their minimum/maximum
type CountDetail struct {
	Observed  int `json:"observado"`
	Threshold int `json:"limite"`
}

// ConsistencyDetail: share of the best day in the profit-only total
type ConsistencyDetail struct {
	BestDay       string          `json:"melhor_dia"`
	BestDayProfit decimal.Decimal `json:"lucro_melhor_dia"`
	TotalProfit   decimal.Decimal `json:"lucro_total_positivo"`
	SharePercent  float64         `json:"percentual"`
	MaxPercent    float64         `json:"percentual_maximo"`
}

// DailyCapDetail: one day whose profit-only sum exceeds the daily limit
type DailyCapDetail struct {
	Day    string          `json:"dia"`
	Profit decimal.Decimal `json:"lucro"`
	Limit  decimal.Decimal `json:"limite"`
}

// OvernightDetail: operations crossing a calendar date
type OvernightDetail struct {
	Operations int `json:"operacoes"`
}

// MarketWindowDetail: forbidden market window, in market time
type MarketWindowDetail struct {
	Timezone    string `json:"fuso"`
	WindowStart string `json:"inicio"`
	WindowEnd   string `json:"fim"`
}

// NewsExposure pairs an operation with the events it overlapped
type NewsExposure struct {
	Operation OperationRef `json:"operacao"`
	Events    []EventMatch `json:"eventos"`
}

// NewsExposureDetail: every operation exposed to a calendar event
type NewsExposureDetail struct {
	Exposures []NewsExposure `json:"exposicoes"`
}

func (CountDetail) violationDetail()        {}
func (ConsistencyDetail) violationDetail()  {}
func (DailyCapDetail) violationDetail()     {}
func (OvernightDetail) violationDetail()    {}
func (MarketWindowDetail) violationDetail() {}
func (NewsExposureDetail) violationDetail() {}

// newDetail returns the empty payload for a code
func newDetail(code ViolationCode) (ViolationDetail, error) {
	switch code {
	case CodeMinTradingDays, CodeMinWinningDays, CodeExcessiveAverage:
		return &CountDetail{}, nil
	case CodeConsistency:
		return &ConsistencyDetail{}, nil
	case CodeDailyProfitCap:
		return &DailyCapDetail{}, nil
	case CodeOvernight:
		return &OvernightDetail{}, nil
	case CodeMarketOpening:
		return &MarketWindowDetail{}, nil
	case CodeNewsExposure:
		return &NewsExposureDetail{}, nil
	}
	return nil, fmt.Errorf("unknown violation code %q", code)
}

// UnmarshalJSON decodes Detail according to Code (cached results)
func (v *Violation) UnmarshalJSON(data []byte) error {
	type plain Violation
	aux := struct {
		*plain
		Detail json.RawMessage `json:"detalhe,omitempty"`
	}{plain: (*plain)(v)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	v.Detail = nil
	if len(aux.Detail) == 0 || string(aux.Detail) == "null" {
		return nil
	}

	detail, err := newDetail(v.Code)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(aux.Detail, detail); err != nil {
		return fmt.Errorf("decode %s detail: %w", v.Code, err)
	}

	// Store the value form so decoded results compare equal to fresh ones
	switch d := detail.(type) {
	case *CountDetail:
		v.Detail = *d
	case *ConsistencyDetail:
		v.Detail = *d
	case *DailyCapDetail:
		v.Detail = *d
	case *OvernightDetail:
		v.Detail = *d
	case *MarketWindowDetail:
		v.Detail = *d
	case *NewsExposureDetail:
		v.Detail = *d
	}
	return nil
}
