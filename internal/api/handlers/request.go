package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/ingest"
)

const multipartMemory = 8 << 20

var allowedExtensions = map[string]bool{".csv": true, ".txt": true}

// requestError is a malformed request, reported to the client as is
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// accountTypeValue accepts "MASTER_FUNDED", "master_funded" or the numeric 1/2
type accountTypeValue string

func (a *accountTypeValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = accountTypeValue(s)
		return nil
	}
	if string(data) == "null" {
		*a = ""
		return nil
	}
	*a = accountTypeValue(data)
	return nil
}

// analyzeBody is the JSON form of an analysis request
type analyzeBody struct {
	CSVContent        string           `json:"csv_content"`
	ContaType         accountTypeValue `json:"conta_type"`
	SaldoAtual        decimal.Decimal  `json:"saldo_atual"`
	FusoHorario       string           `json:"fuso_horario"`
	VerificarNoticias bool             `json:"verificar_noticias"`
	SaquesRealizados  int              `json:"saques_realizados"`

	Status    string `json:"status"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// parsedRequest is the transport independent analysis input
type parsedRequest struct {
	csv     string
	account contracts.AccountConfig
	filter  contracts.DailyFilter
}

// parseAnalyzeRequest reads either a JSON body or a multipart upload
func parseAnalyzeRequest(w http.ResponseWriter, r *http.Request, maxUploadMB int) (*parsedRequest, error) {
	maxBytes := int64(maxUploadMB) << 20
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
		return parseMultipart(r, maxUploadMB)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	var body analyzeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest("Arquivo muito grande. Máximo: %dMB", maxUploadMB)
		}
		return nil, badRequest(msgInvalidBody)
	}

	if strings.TrimSpace(body.CSVContent) == "" {
		return nil, badRequest(msgMissingCSV)
	}
	if !utf8.ValidString(body.CSVContent) {
		return nil, badRequest(msgInvalidEncoding)
	}

	acctType, err := contracts.ParseAccountType(string(body.ContaType))
	if err != nil {
		return nil, err
	}

	return &parsedRequest{
		csv: body.CSVContent,
		account: contracts.AccountConfig{
			AccountType:      acctType,
			CurrentBalance:   body.SaldoAtual,
			UTCOffset:        body.FusoHorario,
			CheckNewsEvents:  body.VerificarNoticias,
			WithdrawalsTaken: body.SaquesRealizados,
		},
		filter: contracts.DailyFilter{Status: body.Status, SortBy: body.SortBy, SortOrder: body.SortOrder},
	}, nil
}

func parseMultipart(r *http.Request, maxUploadMB int) (*parsedRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest("Arquivo muito grande. Máximo: %dMB", maxUploadMB)
		}
		return nil, badRequest(msgInvalidBody)
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		return nil, badRequest(msgMissingCSV)
	}
	defer file.Close()

	if !allowedExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		return nil, badRequest(msgCSVOnly)
	}
	if header.Size > int64(maxUploadMB)<<20 {
		return nil, badRequest("Arquivo muito grande. Máximo: %dMB", maxUploadMB)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, badRequest(msgInvalidBody)
	}
	if !utf8.Valid(content) {
		return nil, badRequest(msgInvalidEncoding)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, badRequest(msgMissingCSV)
	}

	acctType, err := contracts.ParseAccountType(r.FormValue("conta_type"))
	if err != nil {
		return nil, err
	}

	acct := contracts.AccountConfig{
		AccountType: acctType,
		UTCOffset:   r.FormValue("fuso_horario"),
	}

	if raw := r.FormValue("saldo_atual"); raw != "" {
		// "50.000,00" and "50000.00" are both accepted
		balance := ingest.ParseLocaleDecimal(raw)
		if !balance.IsPositive() {
			return nil, &contracts.ConfigError{Field: "saldo_atual", Reason: fmt.Sprintf("invalid balance %q", raw)}
		}
		acct.CurrentBalance = balance
	}

	if raw := r.FormValue("verificar_noticias"); raw != "" {
		check, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &contracts.ConfigError{Field: "verificar_noticias", Reason: fmt.Sprintf("invalid boolean %q", raw)}
		}
		acct.CheckNewsEvents = check
	}

	withdrawals := r.FormValue("saques_realizados")
	if withdrawals == "" {
		withdrawals = r.FormValue("num_saques_realizados")
	}
	if withdrawals != "" {
		n, err := strconv.Atoi(withdrawals)
		if err != nil {
			return nil, &contracts.ConfigError{Field: "saques_realizados", Reason: fmt.Sprintf("invalid count %q", withdrawals)}
		}
		acct.WithdrawalsTaken = n
	}

	return &parsedRequest{
		csv:     string(content),
		account: acct,
		filter: contracts.DailyFilter{
			Status:    r.FormValue("status"),
			SortBy:    r.FormValue("sort_by"),
			SortOrder: r.FormValue("sort_order"),
		},
	}, nil
}
