package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/rules"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules [master|instant]",
	Short: "계정 유형별 규정 조회",
	Long: `계정 유형과 잔고로부터 계산된 규정 수치를 출력합니다.
유형을 생략하면 두 유형을 모두 출력합니다.

Example:
  go run ./cmd/propdesk rules
  go run ./cmd/propdesk rules instant --balance 100000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRulesCmd,
}

var rulesBalance string

func init() {
	rootCmd.AddCommand(rulesCmd)

	// Flags
	rulesCmd.Flags().StringVarP(&rulesBalance, "balance", "b", "50000", "잔고 USD")
}

func runRulesCmd(cmd *cobra.Command, args []string) error {
	balance, err := decimal.NewFromString(rulesBalance)
	if err != nil {
		return fmt.Errorf("invalid balance %q: %w", rulesBalance, err)
	}

	types := []contracts.AccountType{contracts.AccountMasterFunded, contracts.AccountInstantFunding}
	if len(args) == 1 {
		t, err := contracts.ParseAccountType(args[0])
		if err != nil {
			return err
		}
		types = []contracts.AccountType{t}
	}

	for _, t := range types {
		th, err := rules.ResolveThresholds(contracts.AccountConfig{AccountType: t, CurrentBalance: balance}, rules.DefaultWithdrawalTable)
		if err != nil {
			return err
		}
		printThresholds(th, balance)
	}
	return nil
}

func printThresholds(th contracts.RuleThresholds, balance decimal.Decimal) {
	PrintHeader(th.AccountType.Label(), "Saldo     : $"+balance.StringFixed(2))

	PrintKeyValue("Dias mínimos", fmt.Sprintf("%d", th.MinTradingDays), 24)
	PrintKeyValue("Dias vencedores", fmt.Sprintf("%d (≥ $%s/dia)", th.MinWinningDays, th.MinDailyWinAmount.StringFixed(2)), 24)
	PrintKeyValue("Consistência", th.MaxDayProfitSharePercent.String()+"% do lucro total", 24)
	PrintKeyValue("Conta nominal", "$"+th.NominalAccountSize.StringFixed(2), 24)
	PrintKeyValue("Limite de saque", "$"+th.WithdrawalThreshold.StringFixed(2), 24)
	PrintKeyValue("Limite diário", "$"+th.DailyProfitLimit.StringFixed(2), 24)

	extra := []string{"Preço médio em no máximo 3 dias", "Sem posições overnight"}
	if th.AccountType == contracts.AccountMasterFunded {
		extra = append(extra,
			"Sem posição na abertura de Nova York (09:15-09:45 ET)",
			"Evitar posição durante notícias de alto impacto")
	}
	PrintList(extra)
}
