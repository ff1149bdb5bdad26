package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Monetary values travel as JSON numbers, like the upload form expects
	decimal.MarshalJSONWithoutQuotes = true
}

// Side of the opening execution
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeOperation is one executed round-trip trade from the broker export
type TradeOperation struct {
	Row             int             `json:"linha"` // 1-based source line, operation identity
	Asset           string          `json:"ativo"`
	OpenedAt        time.Time       `json:"abertura"`
	ClosedAt        time.Time       `json:"fechamento"`
	Duration        string          `json:"tempo_operacao,omitempty"`
	Side            Side            `json:"lado,omitempty"`
	BuyQty          float64         `json:"qtd_compra"`
	SellQty         float64         `json:"qtd_venda"`
	BuyPrice        decimal.Decimal `json:"preco_compra"`
	SellPrice       decimal.Decimal `json:"preco_venda"`
	MarketPrice     decimal.Decimal `json:"preco_mercado"`
	IsAveraged      bool            `json:"medio"`
	IntervalResult  decimal.Decimal `json:"res_intervalo"`
	OperationResult decimal.Decimal `json:"res_operacao"`
	Total           decimal.Decimal `json:"total"`

	// Filled by the news rule only
	DetectedEvents []EventMatch `json:"eventos_detectados,omitempty"`
}

// Ref returns the compact reference used in violation payloads
func (op TradeOperation) Ref() OperationRef {
	return OperationRef{
		Row:      op.Row,
		Asset:    op.Asset,
		OpenedAt: op.OpenedAt,
		ClosedAt: op.ClosedAt,
		Result:   op.OperationResult,
	}
}

// OperationRef identifies an operation inside a violation
type OperationRef struct {
	Row      int             `json:"linha"`
	Asset    string          `json:"ativo"`
	OpenedAt time.Time       `json:"abertura"`
	ClosedAt time.Time       `json:"fechamento"`
	Result   decimal.Decimal `json:"resultado"`
}

// Confidence tags how trustworthy a calendar based detection is
type Confidence string

const (
	ConfidenceConfirmed       Confidence = "CONFIRMED"
	ConfidenceHighProbability Confidence = "HIGH_PROBABILITY"
	ConfidenceLowProbability  Confidence = "LOW_PROBABILITY"
	ConfidenceEstimated       Confidence = "ESTIMATED"
)

// EventMatch is one economic event overlapping an operation
type EventMatch struct {
	Event          string     `json:"evento"`
	Impact         string     `json:"impacto"`
	ReleaseAt      time.Time  `json:"horario"` // account clock
	MarketTime     string     `json:"horario_ny"`
	Confidence     Confidence `json:"confianca"`
	Description    string     `json:"descricao,omitempty"`
	Recommendation string     `json:"recomendacao,omitempty"`
}

// OperationStatus is the per-operation verdict
type OperationStatus string

const (
	OperationApproved OperationStatus = "APPROVED"
	OperationWarning  OperationStatus = "WARNING"
	OperationRejected OperationStatus = "REJECTED"
)

// AnnotatedOperation is an operation with its verdict
type AnnotatedOperation struct {
	TradeOperation
	Status            OperationStatus `json:"status"`
	StatusDescription string          `json:"status_descricao"`
}

// IngestionStats describes how the CSV text was read
type IngestionStats struct {
	HeaderLine   int            `json:"header_line"`
	Delimiter    string         `json:"delimiter"`
	AcceptedRows int            `json:"accepted_rows"`
	SkippedRows  int            `json:"skipped_rows"`
	SkipReasons  map[string]int `json:"skip_reasons,omitempty"`
}
