package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/analysis"
	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/pkg/config"
	"github.com/wonny/propdesk/pkg/logger"
)

// defaultCSVExample is served when CSV_EXAMPLE_TEMPLATE is not set
const defaultCSVExample = "Ativo\tAbertura\tFechamento\tTempo Operação\tQtd Compra\tQtd Venda\tLado\tPreço Compra\tPreço Venda\tPreço de Mercado\tMédio\tRes. Intervalo\tRes. Intervalo (%)\tRes. Operação\tRes. Operação (%)\tTET\tTotal\n" +
	"ESFUT\t[DATA] [HORA]\t[DATA] [HORA]\t[TEMPO]\t[QTD]\t[QTD]\t[C/V]\t[PREÇO]\t[PREÇO]\t[PREÇO]\t[SIM/NÃO]\t[VALOR]\t[%]\t[VALOR]\t[%]\t[TEMPO]\t[VALOR]"

// rulesReferenceBalance sizes the thresholds shown by the rules endpoint
// when no balance is given
var rulesReferenceBalance = decimal.NewFromInt(50000)

// AnalysisHandler handles the withdrawal analysis endpoints
// ⭐ SSOT: 분석 API 핸들러는 이 구조체에서만
type AnalysisHandler struct {
	service       *analysis.Service
	maxUploadMB   int
	csvTemplate   string
	defaultOffset string
	logger        *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler. Zero config fields
// fall back to a 10MB upload limit, the built-in CSV example and the
// account clock of contracts.DefaultUTCOffset.
func NewAnalysisHandler(service *analysis.Service, cfg config.AnalysisConfig, log *logger.Logger) *AnalysisHandler {
	h := &AnalysisHandler{
		service:       service,
		maxUploadMB:   cfg.MaxUploadMB,
		csvTemplate:   cfg.CSVExampleTemplate,
		defaultOffset: cfg.AccountUTCOffset,
		logger:        log,
	}
	if h.maxUploadMB <= 0 {
		h.maxUploadMB = 10
	}
	if h.csvTemplate == "" {
		h.csvTemplate = defaultCSVExample
	}
	if h.defaultOffset == "" {
		h.defaultOffset = contracts.DefaultUTCOffset
	}
	if h.logger == nil {
		h.logger = logger.Nop()
	}
	return h
}

// Analyze runs the full analysis
// POST /api/v1/ylos/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.parse(w, r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	report, err := h.service.Analyze(r.Context(), analysis.Request{
		CSV:       req.csv,
		Account:   req.account,
		RequestID: RequestIDFromContext(r.Context()),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Daily returns the filtered, sorted per-day breakdown
// POST /api/v1/ylos/daily
func (h *AnalysisHandler) Daily(w http.ResponseWriter, r *http.Request) {
	req, err := h.parse(w, r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	view, err := h.service.Daily(r.Context(), analysis.Request{
		CSV:       req.csv,
		Account:   req.account,
		RequestID: RequestIDFromContext(r.Context()),
	}, req.filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Rules returns the thresholds of an account type
// GET /api/v1/ylos/rules/{conta_type}?saldo=50000
func (h *AnalysisHandler) Rules(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["conta_type"]
	acctType, err := contracts.ParseAccountType(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidAccount)
		return
	}

	balance := rulesReferenceBalance
	if q := r.URL.Query().Get("saldo"); q != "" {
		balance, err = decimal.NewFromString(q)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Saldo inválido: %q", q))
			return
		}
	}

	th, err := h.service.Engine().Thresholds(contracts.AccountConfig{AccountType: acctType, CurrentBalance: balance})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conta_type": strings.ToLower(string(acctType)),
		"regras":     th,
		"descricao": map[string]string{
			"min_trading_days":             "Mínimo de dias que deve operar para solicitar saque",
			"min_winning_days":             "Mínimo de dias vencedores necessários",
			"min_daily_win_amount":         "Lucro mínimo em USD para considerar dia vencedor",
			"max_day_profit_share_percent": "Máximo % que um dia pode representar do lucro total",
			"daily_profit_limit":           "Limite de ganhos em um único dia (limite de saque x consistência)",
			"withdrawal_threshold":         "Valor mínimo de saque para o tamanho nominal da conta",
			"averaging":                    "Preço médio em no máximo 3 dias",
			"overnight":                    "Posições devem ser encerradas no mesmo dia",
			"news":                         "Master Funded: evitar posição durante notícias de alto impacto",
		},
	})
}

// CSVExample describes the expected CSV layout
// GET /api/v1/ylos/csv-example
func (h *AnalysisHandler) CSVExample(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exemplo_csv": h.csvTemplate,
		"formato":     "Separado por TAB (\\t), ponto e vírgula, vírgula ou barra vertical",
		"colunas_obrigatorias": []string{
			"Ativo", "Abertura", "Fechamento", "Tempo Operação",
			"Qtd Compra", "Qtd Venda", "Lado", "Preço Compra",
			"Preço Venda", "Médio", "Res. Operação", "Total",
		},
		"formato_data": "dd/mm/yyyy HH:MM",
		"observacoes": []string{
			"Use vírgula como separador decimal",
			"Lado: C para Compra, V para Venda",
			"Médio: Sim ou Não",
			"Salve o arquivo como CSV com codificação UTF-8",
		},
	})
}

// calendarView is the public form of the event table
type calendarView struct {
	Source string           `json:"source"`
	Total  int              `json:"total"`
	Events []calendar.Event `json:"events"`
	Notice string           `json:"aviso"`
}

// Calendar returns the event table used for news detection
// GET /api/v1/ylos/calendar
func (h *AnalysisHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	view := calendarView{
		Source: "none",
		Events: make([]calendar.Event, 0),
		Notice: "Calendário estimado por regras de recorrência. Confirme cada evento na fonte oficial.",
	}
	if cal := h.service.Engine().Calendar(); cal != nil {
		view.Source = cal.Source()
		view.Events = cal.Events()
		view.Total = cal.Len()
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *AnalysisHandler) parse(w http.ResponseWriter, r *http.Request) (*parsedRequest, error) {
	req, err := parseAnalyzeRequest(w, r, h.maxUploadMB)
	if err != nil {
		return nil, err
	}
	if req.account.UTCOffset == "" {
		req.account.UTCOffset = h.defaultOffset
	}
	return req, nil
}

// handleError maps analysis errors to status codes. Internal details never
// reach the client.
func (h *AnalysisHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.logger.WithFields(map[string]interface{}{
		"request_id": RequestIDFromContext(r.Context()),
		"path":       r.URL.Path,
	}).WithError(err)

	var reqErr *requestError
	var cfgErr *contracts.ConfigError

	switch {
	case errors.As(err, &reqErr):
		log.Debug("Rejected request")
		respondError(w, http.StatusBadRequest, reqErr.msg)
	case errors.As(err, &cfgErr):
		log.Debug("Invalid configuration")
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Configuração inválida (%s): %s", cfgErr.Field, cfgErr.Reason))
	case errors.Is(err, contracts.ErrNoOperations):
		log.Info("No valid operations in upload")
		respondError(w, http.StatusBadRequest, msgNoOperations)
	default:
		log.Error("Analysis failed")
		respondError(w, http.StatusInternalServerError, msgInternal)
	}
}
