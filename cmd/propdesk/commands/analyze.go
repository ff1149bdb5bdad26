package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/propdesk/internal/contracts"
	"github.com/wonny/propdesk/internal/daily"
	"github.com/wonny/propdesk/internal/ingest"
	"github.com/wonny/propdesk/internal/report"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "CSV 파일 출금 분석",
	Long: `로컬 CSV 파일을 분석하여 출금 가능 여부를 판정합니다.

판정 규칙:
- 최소 거래일 / 승리일
- 일일 수익 집중도 (consistency)
- 일일 수익 한도
- 평균단가(médio) 사용, overnight
- Master Funded: 뉴욕 개장 구간, 경제 지표 발표

Example:
  go run ./cmd/propdesk analyze --file trades.csv --account master --balance 50000
  go run ./cmd/propdesk analyze --file trades.csv --account instant --balance 25000 --daily
  cat trades.csv | go run ./cmd/propdesk analyze --file - --account 1 --balance 50000 --json`,
	RunE: runAnalyzeCmd,
}

// analyzeOptions holds the analyze flags
type analyzeOptions struct {
	file        string
	account     string
	balance     string
	utcOffset   string
	checkNews   bool
	withdrawals int
	asJSON      bool
	showDaily   bool
	filter      contracts.DailyFilter
}

var analyzeOpts analyzeOptions

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Flags
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.file, "file", "f", "", "CSV 파일 경로 (- 는 stdin, 필수)")
	f.StringVarP(&analyzeOpts.account, "account", "a", "master", "계정 유형 (master, instant, 1, 2)")
	f.StringVarP(&analyzeOpts.balance, "balance", "b", "", "현재 잔고 USD (필수)")
	f.StringVar(&analyzeOpts.utcOffset, "tz", "", "계정 시간대 (기본: ACCOUNT_UTC_OFFSET)")
	f.BoolVar(&analyzeOpts.checkNews, "news", false, "뉴스 확인 요청 여부 (결과에 기록)")
	f.IntVar(&analyzeOpts.withdrawals, "withdrawals", 0, "이미 실행한 출금 횟수")
	f.BoolVar(&analyzeOpts.asJSON, "json", false, "JSON 출력")
	f.BoolVar(&analyzeOpts.showDaily, "daily", false, "일별 분석 표 출력")
	f.StringVar(&analyzeOpts.filter.Status, "status", "", "일별 필터 (all, approved, warning, critical)")
	f.StringVar(&analyzeOpts.filter.SortBy, "sort-by", "", "일별 정렬 (date, netResult, operations, winRate)")
	f.StringVar(&analyzeOpts.filter.SortOrder, "sort-order", "", "정렬 방향 (asc, desc)")

	_ = analyzeCmd.MarkFlagRequired("file")
	_ = analyzeCmd.MarkFlagRequired("balance")
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if analyzeOpts.utcOffset == "" {
		analyzeOpts.utcOffset = cfg.Analysis.AccountUTCOffset
	}

	log := cliLogger(os.Stderr)
	_, engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	return runAnalysis(engine, analyzeOpts, cmd.InOrStdin())
}

// runAnalysis reads the CSV, analyzes it and prints the verdict
func runAnalysis(engine *report.Engine, opts analyzeOptions, stdin io.Reader) error {
	csvText, err := readInput(opts.file, stdin)
	if err != nil {
		return err
	}

	acct, err := opts.accountConfig()
	if err != nil {
		return err
	}

	filter, err := daily.Normalize(opts.filter)
	if err != nil {
		return err
	}

	result, err := engine.Analyze(csvText, acct)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", opts.file, err)
	}

	days, err := daily.Query(result.Daily, filter)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if opts.showDaily {
			return enc.Encode(map[string]interface{}{
				"days":    days,
				"summary": daily.Summarize(days),
				"filter":  filter,
			})
		}
		return enc.Encode(result)
	}

	printResult(opts.file, result)
	if opts.showDaily {
		printDaily(days)
	}
	return nil
}

func (o analyzeOptions) accountConfig() (contracts.AccountConfig, error) {
	acctType, err := contracts.ParseAccountType(o.account)
	if err != nil {
		return contracts.AccountConfig{}, err
	}

	balance := ingest.ParseLocaleDecimal(o.balance)
	if !balance.IsPositive() {
		return contracts.AccountConfig{}, &contracts.ConfigError{Field: "saldo_atual", Reason: fmt.Sprintf("invalid balance %q", o.balance)}
	}

	return contracts.AccountConfig{
		AccountType:      acctType,
		CurrentBalance:   balance,
		UTCOffset:        o.utcOffset,
		CheckNewsEvents:  o.checkNews,
		WithdrawalsTaken: o.withdrawals,
	}, nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read csv: %w", err)
	}
	return string(data), nil
}

func printResult(source string, r *contracts.AnalysisResult) {
	PrintHeader("Análise de Saque - "+r.Account.AccountType.Label(),
		"Arquivo   : "+source,
		fmt.Sprintf("Período   : %s ~ %s (%d dias)", r.Period.Start, r.Period.End, r.Period.TotalDays),
		"Fuso      : UTC"+r.Account.UTCOffset,
	)

	consistency := "OK"
	if !r.ConsistencyPassed {
		consistency = "FALHOU"
	}

	PrintKeyValue("Operações", strconv.Itoa(r.TotalOperations), 20)
	PrintKeyValue("Dias operados", fmt.Sprintf("%d (mín. %d)", r.OperatedDays, r.Thresholds.MinTradingDays), 20)
	PrintKeyValue("Dias vencedores", fmt.Sprintf("%d (mín. %d)", r.WinningDays, r.Thresholds.MinWinningDays), 20)
	PrintKeyValue("Lucro total", "$"+r.TotalProfit.StringFixed(2), 20)
	PrintKeyValue("Maior lucro diário", "$"+r.BestDayProfit.StringFixed(2), 20)
	PrintKeyValue("Limite diário", "$"+r.Thresholds.DailyProfitLimit.StringFixed(2), 20)
	PrintKeyValue("Consistência", consistency, 20)
	if r.Ingestion.SkippedRows > 0 {
		PrintKeyValue("Linhas ignoradas", strconv.Itoa(r.Ingestion.SkippedRows), 20)
	}
	PrintSeparator()

	if r.Approved {
		PrintSuccess("SAQUE APROVADO")
	} else {
		PrintError(fmt.Sprintf("SAQUE NÃO APROVADO (%d violações críticas)", r.CriticalCount()))
	}

	if len(r.Violations) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Violações:")
		for _, v := range r.Violations {
			line := fmt.Sprintf("[%s] %s: %s", v.Severity, v.Title, v.Description)
			if v.IsCritical() {
				PrintError(line)
			} else {
				PrintWarning(line)
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Recomendações:")
	PrintList(r.Recommendations)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Próximos passos:")
	PrintNumberedList(r.NextSteps)
}

func printDaily(days []contracts.DayAnalysis) {
	widths := []int{10, 4, 4, 12, 7, 8, 8}
	fmt.Fprintln(out)
	PrintTableHeader([]string{"Data", "Dia", "Ops", "Resultado", "Win %", "Risco", "Status"}, widths)
	for _, d := range days {
		PrintTableRow([]string{
			d.Date,
			d.DayOfWeek,
			strconv.Itoa(d.TotalOperations),
			"$" + d.NetResult.StringFixed(2),
			strconv.FormatFloat(d.WinRate, 'f', 1, 64),
			string(d.RiskLevel),
			string(d.Status),
		}, widths)
	}

	s := daily.Summarize(days)
	PrintSeparator()
	PrintInfo(fmt.Sprintf("%d dias: %d aprovados, %d alertas, %d críticos. Líquido $%s",
		s.TotalDays, s.Approved, s.Warning, s.Critical, s.NetTotal.StringFixed(2)))
}
