package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/propdesk/internal/scheduler"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄 작업 관리",
	Long: `API 서버가 등록하는 스케줄 작업을 조회하거나 즉시 실행합니다.
CALENDAR_FILE 이 설정된 경우에만 calendar_reload 작업이 등록됩니다.

Subcommands:
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (실행 이력과 통계 출력)

Example:
  go run ./cmd/propdesk scheduler list
  go run ./cmd/propdesk scheduler run calendar_reload`,
}

var (
	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func initScheduler() (*scheduler.Scheduler, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := cliLogger(os.Stderr)
	store, _, err := newEngine(cfg, log)
	if err != nil {
		return nil, err
	}

	// Manual runs report the first failure
	sched, err := newScheduler(cfg, store, log, scheduler.WithRetry(0, 0))
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	printJobs(sched)
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runJobNow(ctx, sched, args[0])
}

func printJobs(sched *scheduler.Scheduler) {
	names := sched.GetAllJobs()
	PrintHeader("Scheduled Jobs", "Jobs      : "+strconv.Itoa(len(names)))
	if len(names) == 0 {
		PrintWarning("등록된 작업이 없습니다 (CALENDAR_FILE 미설정)")
		return
	}
	PrintList(names)
}

// runJobNow runs one job synchronously and prints its history and stats
func runJobNow(ctx context.Context, sched *scheduler.Scheduler, name string) error {
	result, err := sched.RunJob(ctx, name)
	if err != nil {
		return err
	}

	history, err := sched.GetJobHistory(name)
	if err != nil {
		return err
	}

	PrintHeader("Job: "+name, "Runs      : "+strconv.Itoa(len(history)))
	widths := []int{19, 10, 7, 30}
	PrintTableHeader([]string{"Start", "Duration", "Result", "Error"}, widths)
	for _, r := range history {
		status := "OK"
		if !r.Success {
			status = "FAIL"
		}
		PrintTableRow([]string{
			r.StartTime.Local().Format("2006-01-02 15:04:05"),
			r.Duration.Round(time.Millisecond).String(),
			status,
			r.Error,
		}, widths)
	}
	PrintSeparator()

	if st, ok := sched.GetJobStats()[name]; ok {
		PrintKeyValue("Schedule", st.Schedule, 14)
		PrintKeyValue("Success rate", fmt.Sprintf("%.0f%% (%d/%d)", st.SuccessRate*100, st.SuccessCount, st.TotalRuns), 14)
	}

	if !result.Success {
		PrintError("작업 실패: " + result.Error)
		return fmt.Errorf("job %s failed: %s", name, result.Error)
	}
	PrintSuccess("작업 완료")
	return nil
}
