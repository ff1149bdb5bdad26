package contracts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/pkg/config"
)

// =============================================================================
// Account
// ⭐ SSOT: 계정 유형과 분석 파라미터는 여기서만 정의
// =============================================================================

// AccountType selects every rule threshold
type AccountType string

const (
	AccountMasterFunded   AccountType = "MASTER_FUNDED"
	AccountInstantFunding AccountType = "INSTANT_FUNDING"
)

// DefaultUTCOffset is the account clock used when none is supplied
const DefaultUTCOffset = "-03"

// Valid reports whether the account type is known
func (a AccountType) Valid() bool {
	return a == AccountMasterFunded || a == AccountInstantFunding
}

// Label returns the display name used in reports
func (a AccountType) Label() string {
	switch a {
	case AccountMasterFunded:
		return "Master Funded"
	case AccountInstantFunding:
		return "Instant Funding"
	default:
		return string(a)
	}
}

// ParseAccountType accepts the canonical names, lowercase aliases and the
// numeric form used by the upload form (1=Master Funded, 2=Instant Funding).
func ParseAccountType(raw string) (AccountType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MASTER_FUNDED", "MASTER", "1":
		return AccountMasterFunded, nil
	case "INSTANT_FUNDING", "INSTANT", "2":
		return AccountInstantFunding, nil
	}
	return "", &ConfigError{Field: "conta_type", Reason: fmt.Sprintf("unknown account type %q", raw)}
}

// AccountConfig is the caller supplied context of one analysis
type AccountConfig struct {
	AccountType      AccountType     `json:"conta_type"`
	CurrentBalance   decimal.Decimal `json:"saldo_atual"`
	UTCOffset        string          `json:"fuso_horario"`
	CheckNewsEvents  bool            `json:"verificar_noticias"`
	WithdrawalsTaken int             `json:"saques_realizados"`
}

// Validate fails fast on input that would collapse the thresholds
func (c AccountConfig) Validate() error {
	if !c.AccountType.Valid() {
		return &ConfigError{Field: "conta_type", Reason: fmt.Sprintf("unknown account type %q", c.AccountType)}
	}
	if !c.CurrentBalance.IsPositive() {
		return &ConfigError{Field: "saldo_atual", Reason: "balance must be greater than zero"}
	}
	if c.WithdrawalsTaken < 0 {
		return &ConfigError{Field: "saques_realizados", Reason: "withdrawals taken cannot be negative"}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if offset := c.Offset(); !config.IsAllowedUTCOffset(offset) {
		return &ConfigError{Field: "fuso_horario", Reason: fmt.Sprintf("UTC offset %q must be one of: %s", offset, strings.Join(config.AllowedUTCOffsets, ", "))}
	}
	return nil
}

// Offset returns the configured account clock or the default one
func (c AccountConfig) Offset() string {
	if c.UTCOffset == "" {
		return DefaultUTCOffset
	}
	return c.UTCOffset
}

// Location builds the fixed zone of the account clock ("-03" -> UTC-3)
func (c AccountConfig) Location() (*time.Location, error) {
	return ParseUTCOffset(c.Offset())
}

// ParseUTCOffset converts "-03" / "+01" / "-0330" into a fixed zone
func ParseUTCOffset(offset string) (*time.Location, error) {
	raw := strings.TrimSpace(offset)
	if len(raw) < 2 || (raw[0] != '+' && raw[0] != '-') {
		return nil, &ConfigError{Field: "fuso_horario", Reason: fmt.Sprintf("invalid UTC offset %q", offset)}
	}

	digits := raw[1:]
	minutes := 0
	if len(digits) == 4 {
		m, err := strconv.Atoi(digits[2:])
		if err != nil || m >= 60 {
			return nil, &ConfigError{Field: "fuso_horario", Reason: fmt.Sprintf("invalid UTC offset %q", offset)}
		}
		minutes = m
		digits = digits[:2]
	}

	hours, err := strconv.Atoi(digits)
	if err != nil || len(digits) > 2 || hours > 14 {
		return nil, &ConfigError{Field: "fuso_horario", Reason: fmt.Sprintf("invalid UTC offset %q", offset)}
	}

	seconds := hours*3600 + minutes*60
	if raw[0] == '-' {
		seconds = -seconds
	}
	return time.FixedZone("UTC"+raw, seconds), nil
}
