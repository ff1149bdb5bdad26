package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/propdesk/internal/calendar"
)

// calendarCmd represents the calendar command
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "경제 지표 캘린더 조회",
	Long: `뉴스 규정에 사용되는 경제 지표 캘린더를 출력합니다.
--file 을 지정하면 해당 YAML 파일을 검증 후 출력합니다.

Example:
  go run ./cmd/propdesk calendar
  go run ./cmd/propdesk calendar --file ./calendar.yaml
  go run ./cmd/propdesk calendar --date 2024-01-05`,
	RunE: runCalendarCmd,
}

var (
	calendarFile string
	calendarDate string
)

func init() {
	rootCmd.AddCommand(calendarCmd)

	// Flags
	calendarCmd.Flags().StringVar(&calendarFile, "file", "", "YAML 캘린더 파일 (기본: 내장 테이블)")
	calendarCmd.Flags().StringVar(&calendarDate, "date", "", "해당 날짜(YYYY-MM-DD)에 해당하는 이벤트만 출력")
}

func runCalendarCmd(cmd *cobra.Command, args []string) error {
	cal := calendar.Default()
	if calendarFile != "" {
		loaded, err := calendar.LoadFile(calendarFile)
		if err != nil {
			return err
		}
		cal = loaded
	}
	return printCalendar(cal, calendarDate)
}

func printCalendar(cal *calendar.Calendar, date string) error {
	events := cal.Events()

	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return fmt.Errorf("invalid date %q (YYYY-MM-DD): %w", date, err)
		}
		events = make([]calendar.Event, 0)
		for _, occ := range cal.On(day) {
			events = append(events, *occ.Event)
		}
	}

	PrintHeader("Calendário de Notícias",
		"Fonte     : "+cal.Source(),
		"Eventos   : "+strconv.Itoa(len(events)),
	)

	widths := []int{28, 6, 6, 10, 14}
	PrintTableHeader([]string{"Evento", "Hora", "Impact", "Confiança", "Regra"}, widths)
	for _, ev := range events {
		PrintTableRow([]string{ev.Name, ev.Time, ev.Impact, string(ev.Confidence), ev.Schedule.Kind}, widths)
	}
	PrintSeparator()
	PrintWarning("Calendário estimado por regras de recorrência. Confirme cada evento na fonte oficial.")
	return nil
}
