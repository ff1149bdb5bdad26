package ingest

import (
	"encoding/csv"
	"strings"
	"time"

	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/pkg/logger"
)

// =============================================================================
// CSV ingester
// ⭐ SSOT: 브로커 CSV 컬럼 매핑은 여기서만
// =============================================================================

// Delimiter candidates, tried in this order on every line until a header matches
var delimiterCandidates = []rune{'\t', ';', ',', '|'}

// Required header substrings
var headerMarkers = []string{"Ativo", "Abertura", "Fechamento"}

const (
	minHeaderColumns = 11 // header must have more than 10 columns
	minDataColumns   = 10
)

// Positional column layout of the broker export
const (
	colAsset           = 0
	colOpened          = 1
	colClosed          = 2
	colDuration        = 3
	colBuyQty          = 4
	colSellQty         = 5
	colSide            = 6
	colBuyPrice        = 7
	colSellPrice       = 8
	colMarketPrice     = 9
	colAveraged        = 10
	colIntervalResult  = 11
	colOperationResult = 13
	colTotal           = 16
)

// Skip reasons reported in IngestionStats
const (
	SkipShortRow         = "short_row"
	SkipEmptyAsset       = "empty_asset"
	SkipMissingTimestamp = "missing_timestamp"
	SkipInvalidTimestamp = "invalid_timestamp"
)

// Ingestion is the outcome of reading one CSV document
type Ingestion struct {
	Operations []contracts.TradeOperation
	Stats      contracts.IngestionStats
}

// Parser turns broker CSV text into trade operations
type Parser struct {
	loc    *time.Location
	logger *logger.Logger
}

// NewParser creates a parser whose timestamps live on the loc clock
func NewParser(loc *time.Location, log *logger.Logger) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Parser{loc: loc, logger: log}
}

// Parse reads the whole document. Malformed rows are skipped and counted;
// a document without a recognizable header yields zero operations.
func (p *Parser) Parse(text string) Ingestion {
	result := Ingestion{
		Operations: make([]contracts.TradeOperation, 0),
		Stats:      contracts.IngestionStats{SkipReasons: make(map[string]int)},
	}

	lines := strings.Split(strings.TrimRight(text, " \t\r\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	headerIdx, delim, ok := detectHeader(lines)
	if !ok {
		p.logger.WithField("lines", len(lines)).Warn("CSV header not found")
		return result
	}
	result.Stats.HeaderLine = headerIdx + 1
	result.Stats.Delimiter = string(delim)

	for i := headerIdx + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		lineNo := i + 1
		op, reason, err := p.parseRow(splitLine(line, delim), lineNo)
		if reason != "" {
			result.Stats.SkippedRows++
			result.Stats.SkipReasons[reason]++

			entry := p.logger.WithFields(map[string]interface{}{
				"line":   lineNo,
				"reason": reason,
			})
			if err != nil {
				entry.WithError(err).Warn("CSV row dropped")
			} else {
				entry.Debug("CSV row skipped")
			}
			continue
		}

		result.Operations = append(result.Operations, op)
	}

	result.Stats.AcceptedRows = len(result.Operations)
	if len(result.Stats.SkipReasons) == 0 {
		result.Stats.SkipReasons = nil
	}

	p.logger.WithFields(map[string]interface{}{
		"delimiter": result.Stats.Delimiter,
		"accepted":  result.Stats.AcceptedRows,
		"skipped":   result.Stats.SkippedRows,
	}).Debug("CSV ingested")

	return result
}

// detectHeader finds the first (line, delimiter) pair that looks like a header
func detectHeader(lines []string) (int, rune, bool) {
	for i, line := range lines {
		if !containsAll(line, headerMarkers) {
			continue
		}
		for _, delim := range delimiterCandidates {
			if len(splitLine(line, delim)) >= minHeaderColumns {
				return i, delim, true
			}
		}
	}
	return 0, 0, false
}

// parseRow maps one split line onto a TradeOperation.
// A non-empty reason means the row must be skipped.
func (p *Parser) parseRow(fields []string, lineNo int) (contracts.TradeOperation, string, error) {
	if len(fields) < minDataColumns {
		return contracts.TradeOperation{}, SkipShortRow, nil
	}

	asset := column(fields, colAsset)
	if asset == "" {
		return contracts.TradeOperation{}, SkipEmptyAsset, nil
	}

	openedText := column(fields, colOpened)
	closedText := column(fields, colClosed)
	if openedText == "" || closedText == "" {
		return contracts.TradeOperation{}, SkipMissingTimestamp, nil
	}

	openedAt, err := ParseTimestamp(openedText, p.loc)
	if err != nil {
		return contracts.TradeOperation{}, SkipInvalidTimestamp, err
	}
	closedAt, err := ParseTimestamp(closedText, p.loc)
	if err != nil {
		return contracts.TradeOperation{}, SkipInvalidTimestamp, err
	}

	return contracts.TradeOperation{
		Row:             lineNo,
		Asset:           asset,
		OpenedAt:        openedAt,
		ClosedAt:        closedAt,
		Duration:        column(fields, colDuration),
		Side:            parseSide(column(fields, colSide)),
		BuyQty:          ParseLocaleNumber(column(fields, colBuyQty)),
		SellQty:         ParseLocaleNumber(column(fields, colSellQty)),
		BuyPrice:        ParseLocaleDecimal(column(fields, colBuyPrice)),
		SellPrice:       ParseLocaleDecimal(column(fields, colSellPrice)),
		MarketPrice:     ParseLocaleDecimal(column(fields, colMarketPrice)),
		IsAveraged:      parseFlag(column(fields, colAveraged)),
		IntervalResult:  ParseLocaleDecimal(column(fields, colIntervalResult)),
		OperationResult: ParseLocaleDecimal(column(fields, colOperationResult)),
		Total:           ParseLocaleDecimal(column(fields, colTotal)),
	}, "", nil
}

// splitLine splits a single line honoring quotes, so "1.234,56" survives
// inside a comma separated file.
func splitLine(line string, delim rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err != nil {
		return strings.Split(line, string(delim))
	}
	return record
}

func column(fields []string, idx int) string {
	if idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

func containsAll(line string, markers []string) bool {
	for _, m := range markers {
		if !strings.Contains(line, m) {
			return false
		}
	}
	return true
}

func parseSide(raw string) contracts.Side {
	switch strings.ToUpper(raw) {
	case "C", "COMPRA", "BUY", "B":
		return contracts.SideBuy
	case "V", "VENDA", "SELL", "S":
		return contracts.SideSell
	}
	return ""
}

func parseFlag(raw string) bool {
	switch strings.ToLower(raw) {
	case "sim", "s", "yes", "y", "true", "1":
		return true
	}
	return false
}
