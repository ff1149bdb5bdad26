package rules

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/propdesk/internal/contracts"
)

// WithdrawalTier maps a nominal account size to its withdrawal threshold
type WithdrawalTier struct {
	AccountSize decimal.Decimal
	Threshold   decimal.Decimal
}

// DefaultWithdrawalTable is the firm's published table
var DefaultWithdrawalTable = []WithdrawalTier{
	{AccountSize: decimal.NewFromInt(25000), Threshold: decimal.NewFromInt(1600)},
	{AccountSize: decimal.NewFromInt(50000), Threshold: decimal.NewFromInt(2600)},
	{AccountSize: decimal.NewFromInt(100000), Threshold: decimal.NewFromInt(3100)},
	{AccountSize: decimal.NewFromInt(150000), Threshold: decimal.NewFromInt(5100)},
	{AccountSize: decimal.NewFromInt(250000), Threshold: decimal.NewFromInt(6600)},
	{AccountSize: decimal.NewFromInt(300000), Threshold: decimal.NewFromInt(7600)},
}

type accountRules struct {
	minTradingDays     int
	minWinningDays     int
	minDailyWin        decimal.Decimal
	maxDaySharePercent decimal.Decimal
	consistencyDecimal decimal.Decimal
}

// ⭐ SSOT: 계정 유형별 규칙 수치는 여기서만
var rulesByAccount = map[contracts.AccountType]accountRules{
	contracts.AccountMasterFunded: {
		minTradingDays:     10,
		minWinningDays:     7,
		minDailyWin:        decimal.NewFromInt(50),
		maxDaySharePercent: decimal.NewFromInt(40),
		consistencyDecimal: decimal.RequireFromString("0.40"),
	},
	contracts.AccountInstantFunding: {
		minTradingDays:     5,
		minWinningDays:     5,
		minDailyWin:        decimal.NewFromInt(200),
		maxDaySharePercent: decimal.NewFromInt(30),
		consistencyDecimal: decimal.RequireFromString("0.30"),
	},
}

var (
	nominalLowerBound = decimal.RequireFromString("0.95")
	nominalUpperBound = decimal.RequireFromString("1.5")
	fallbackRate      = decimal.RequireFromString("0.052")
)

// ResolveThresholds derives every rule parameter from the account.
// Unknown account types and non-positive balances are rejected.
func ResolveThresholds(acct contracts.AccountConfig, table []WithdrawalTier) (contracts.RuleThresholds, error) {
	r, ok := rulesByAccount[acct.AccountType]
	if !ok {
		return contracts.RuleThresholds{}, &contracts.ConfigError{
			Field:  "conta_type",
			Reason: fmt.Sprintf("unknown account type %q", acct.AccountType),
		}
	}
	if !acct.CurrentBalance.IsPositive() {
		return contracts.RuleThresholds{}, &contracts.ConfigError{
			Field:  "saldo_atual",
			Reason: "balance must be greater than zero",
		}
	}

	nominal, threshold := lookupWithdrawal(acct.CurrentBalance, table)

	return contracts.RuleThresholds{
		AccountType:              acct.AccountType,
		MinTradingDays:           r.minTradingDays,
		MinWinningDays:           r.minWinningDays,
		MinDailyWinAmount:        r.minDailyWin,
		MaxDayProfitSharePercent: r.maxDaySharePercent,
		ConsistencyDecimal:       r.consistencyDecimal,
		NominalAccountSize:       nominal,
		WithdrawalThreshold:      threshold,
		DailyProfitLimit:         threshold.Mul(r.consistencyDecimal),
	}, nil
}

// lookupWithdrawal picks the first tier (ascending) whose size lies within
// [0.95, 1.5] x balance, else the tier nearest to the balance. An empty
// table falls back to balance x 0.052.
func lookupWithdrawal(balance decimal.Decimal, table []WithdrawalTier) (decimal.Decimal, decimal.Decimal) {
	if len(table) == 0 {
		return balance, balance.Mul(fallbackRate)
	}

	tiers := make([]WithdrawalTier, len(table))
	copy(tiers, table)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].AccountSize.LessThan(tiers[j].AccountSize)
	})

	low := balance.Mul(nominalLowerBound)
	high := balance.Mul(nominalUpperBound)
	for _, tier := range tiers {
		if tier.AccountSize.GreaterThanOrEqual(low) && tier.AccountSize.LessThanOrEqual(high) {
			return tier.AccountSize, tier.Threshold
		}
	}

	nearest := tiers[0]
	bestDiff := nearest.AccountSize.Sub(balance).Abs()
	for _, tier := range tiers[1:] {
		if diff := tier.AccountSize.Sub(balance).Abs(); diff.LessThan(bestDiff) {
			nearest, bestDiff = tier, diff
		}
	}
	return nearest.AccountSize, nearest.Threshold
}
