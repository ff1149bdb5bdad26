package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/internal/report"
	"github.com/wonny/propdesk/internal/rules"
	"github.com/wonny/propdesk/internal/scheduler"
	"github.com/wonny/propdesk/internal/scheduler/jobs"
	"github.com/wonny/propdesk/pkg/config"
	"github.com/wonny/propdesk/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "propdesk",
	Short: "Prop desk 출금 규정 분석기",
	Long: `propdesk Unified CLI

트레이딩 플랫폼에서 내보낸 CSV 를 분석하여
출금 요청이 계정 규정을 만족하는지 판정합니다.

Usage:
  go run ./cmd/propdesk [command]

Examples:
  go run ./cmd/propdesk api
  go run ./cmd/propdesk analyze --file trades.csv --account master --balance 50000
  go run ./cmd/propdesk rules instant
  go run ./cmd/propdesk calendar
  go run ./cmd/propdesk scheduler list`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// cliLogger keeps logs on stderr so report output on stdout stays clean
func cliLogger(w io.Writer) *logger.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.NewWithWriter(w, level)
}

// newEngine builds the analysis engine from configuration
// ⭐ SSOT: API 서버와 CLI 가 같은 엔진 구성을 사용
func newEngine(cfg *config.Config, log *logger.Logger) (*calendar.Store, *report.Engine, error) {
	store, err := calendar.NewStore(cfg.Analysis.CalendarFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load calendar: %w", err)
	}

	clock, err := rules.NewMarketClock(cfg.Analysis.MarketTimezone)
	if err != nil {
		return nil, nil, fmt.Errorf("market clock: %w", err)
	}

	return store, report.NewEngine(store, clock, nil, log), nil
}

// newScheduler registers the calendar reload job when a calendar file is
// configured. The embedded table never changes.
func newScheduler(cfg *config.Config, store *calendar.Store, log *logger.Logger, opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	sched := scheduler.New(log, opts...)
	if store.Path() == "" {
		return sched, nil
	}
	if err := sched.AddJob(jobs.NewCalendarReloadJob(store, cfg.Analysis.CalendarReloadSchedule, log)); err != nil {
		return nil, fmt.Errorf("schedule calendar reload: %w", err)
	}
	return sched, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
