package report

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/rules"
)

const header = "Ativo;Abertura;Fechamento;Tempo Operação;Qtd Compra;Qtd Venda;Lado;Preço Compra;Preço Venda;" +
	"Preço de Mercado;Médio;Res. Intervalo;Res. Intervalo (%);Res. Operação;Res. Operação (%);TET;Total"

func row(opened, closed, result string) string {
	return strings.Join([]string{
		"WINJ24", opened, closed, "30min", "1", "1", "C", "127.500", "127.650", "127.650", "Não",
		result, "0,12", result, "0,12", "-", result,
	}, ";")
}

// twelveRows spans ten trading days, every day above the instant minimum
func twelveRows() string {
	lines := []string{
		header,
		row("02/01/2024 13:00", "02/01/2024 13:30", "250,00"),
		row("02/01/2024 14:00", "02/01/2024 14:20", "100,00"),
		row("03/01/2024 13:00", "03/01/2024 13:30", "300,00"),
		row("03/01/2024 14:00", "03/01/2024 14:10", "-50,00"),
		row("04/01/2024 13:00", "04/01/2024 13:30", "300,00"),
		row("05/01/2024 13:00", "05/01/2024 13:30", "300,00"),
		row("08/01/2024 13:00", "08/01/2024 13:30", "300,00"),
		row("09/01/2024 13:00", "09/01/2024 13:30", "300,00"),
		row("10/01/2024 13:00", "10/01/2024 13:30", "300,00"),
		row("11/01/2024 13:00", "11/01/2024 13:30", "300,00"),
		row("12/01/2024 13:00", "12/01/2024 13:30", "300,00"),
		row("15/01/2024 13:00", "15/01/2024 13:30", "1.200,00"),
	}
	return strings.Join(lines, "\r\n")
}

func instant() contracts.AccountConfig {
	return contracts.AccountConfig{
		AccountType:    contracts.AccountInstantFunding,
		CurrentBalance: decimal.NewFromInt(50000),
	}
}

func newEngine() *Engine {
	return NewEngine(calendar.NewStaticStore(calendar.Default()), nil, nil, nil)
}

func TestAnalyze_EndToEnd(t *testing.T) {
	csv := strings.ReplaceAll(twelveRows(), "1.200,00", "300,00")

	res, err := newEngine().Analyze(csv, instant())
	require.NoError(t, err)

	assert.True(t, res.Approved)
	assert.Equal(t, 12, res.TotalOperations)
	assert.Equal(t, 10, res.OperatedDays)
	assert.Equal(t, 10, res.WinningDays)
	assert.True(t, res.ConsistencyPassed)
	assert.Empty(t, res.Violations)
	assert.True(t, decimal.NewFromInt(3000).Equal(res.TotalProfit), res.TotalProfit.String())
	assert.True(t, decimal.NewFromInt(350).Equal(res.BestDayProfit), res.BestDayProfit.String())

	assert.Equal(t, []string{"Parabéns! Suas operações estão em conformidade com as regras da YLOS"}, res.Recommendations)
	assert.Len(t, res.NextSteps, 3)

	assert.Equal(t, contracts.AnalyzedPeriod{Start: "2024-01-02", End: "2024-01-15", TotalDays: 14}, res.Period)
	assert.Equal(t, "-03", res.Account.UTCOffset)
	assert.Equal(t, ";", res.Ingestion.Delimiter)
	assert.Equal(t, 12, res.Ingestion.AcceptedRows)

	require.Len(t, res.Operations, 12)
	for _, op := range res.Operations {
		assert.Equal(t, contracts.OperationApproved, op.Status)
	}

	require.Len(t, res.Daily, 10)
	assert.Equal(t, 10, res.Summary.Approved)
	assert.Equal(t, 10, res.Summary.WinningDays)
}

func TestAnalyze_RejectedWithAnnotations(t *testing.T) {
	// 1200 on the last day breaks the daily cap (780) and the 30% share
	res, err := newEngine().Analyze(twelveRows(), instant())
	require.NoError(t, err)

	assert.False(t, res.Approved)
	assert.False(t, res.ConsistencyPassed)
	require.Len(t, res.Violations, 2)
	assert.Equal(t, contracts.CodeConsistency, res.Violations[0].Code)
	assert.Equal(t, contracts.CodeDailyProfitCap, res.Violations[1].Code)
	assert.Equal(t, 2, res.CriticalCount())

	last := res.Operations[len(res.Operations)-1]
	assert.Equal(t, 13, last.Row)
	assert.Equal(t, contracts.OperationRejected, last.Status)
	assert.Equal(t, "Regra de Consistência Violada; Limite Diário de Lucro Excedido", last.StatusDescription)
	assert.Equal(t, contracts.OperationApproved, res.Operations[0].Status)

	assert.Equal(t, "Seu saque NÃO está aprovado devido às violações encontradas", res.NextSteps[0])
	assert.Equal(t, contracts.DayCritical, res.Daily[len(res.Daily)-1].Status)
}

func TestAnalyze_Idempotent(t *testing.T) {
	engine := newEngine()
	acct := instant()

	first, err := engine.Analyze(twelveRows(), acct)
	require.NoError(t, err)
	second, err := engine.Analyze(twelveRows(), acct)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		csv    string
		acct   contracts.AccountConfig
		target error
	}{
		{
			name:   "no header",
			csv:    "just some text\nwithout columns",
			acct:   instant(),
			target: contracts.ErrNoOperations,
		},
		{
			name:   "header only",
			csv:    header,
			acct:   instant(),
			target: contracts.ErrNoOperations,
		},
		{
			name:   "every row invalid",
			csv:    header + "\n" + row("31/02/2024 10:00", "31/02/2024 10:30", "10"),
			acct:   instant(),
			target: contracts.ErrNoOperations,
		},
		{
			name:   "unknown account type",
			csv:    twelveRows(),
			acct:   contracts.AccountConfig{AccountType: "GOLD", CurrentBalance: decimal.NewFromInt(50000)},
			target: contracts.ErrInvalidConfiguration,
		},
		{
			name:   "zero balance",
			csv:    twelveRows(),
			acct:   contracts.AccountConfig{AccountType: contracts.AccountMasterFunded},
			target: contracts.ErrInvalidConfiguration,
		},
		{
			name: "bad offset",
			csv:  twelveRows(),
			acct: contracts.AccountConfig{
				AccountType:    contracts.AccountMasterFunded,
				CurrentBalance: decimal.NewFromInt(50000),
				UTCOffset:      "BRT",
			},
			target: contracts.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newEngine().Analyze(tt.csv, tt.acct)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.target), err.Error())
		})
	}
}

func TestAnalyze_RecoversPanics(t *testing.T) {
	// a clock without a location panics inside time.Date
	engine := NewEngine(calendar.NewStaticStore(calendar.Default()), &rules.MarketClock{}, nil, nil)

	res, err := engine.Analyze(twelveRows(), contracts.AccountConfig{
		AccountType:    contracts.AccountMasterFunded,
		CurrentBalance: decimal.NewFromInt(50000),
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, contracts.ErrInternal))
}

func TestAnalyze_ViolationJSONRoundTrip(t *testing.T) {
	res, err := newEngine().Analyze(twelveRows(), instant())
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded contracts.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Violations, 2)

	detail, ok := decoded.Violations[0].Detail.(contracts.ConsistencyDetail)
	require.True(t, ok)
	assert.Equal(t, "2024-01-15", detail.BestDay)

	capped, ok := decoded.Violations[1].Detail.(contracts.DailyCapDetail)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(780).Equal(capped.Limit))
}

func TestAnalyze_MasterNewsDetails(t *testing.T) {
	csv := twelveRows() + "\r\n" + row("05/01/2024 10:28", "05/01/2024 10:40", "10,00")

	res, err := newEngine().Analyze(csv, contracts.AccountConfig{
		AccountType:     contracts.AccountMasterFunded,
		CurrentBalance:  decimal.NewFromInt(50000),
		CheckNewsEvents: true,
	})
	require.NoError(t, err)

	require.Len(t, res.NewsDetails, 1)
	assert.Equal(t, 14, res.NewsDetails[0].Operation.Row)
	assert.True(t, res.Account.CheckNewsEvents)

	last := res.Operations[len(res.Operations)-1]
	require.Len(t, last.DetectedEvents, 1)
	assert.Equal(t, contracts.OperationWarning, last.Status)
}
