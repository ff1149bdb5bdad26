package jobs

import (
	"context"

	"github.com/wonny/propdesk/internal/calendar"
	"github.com/wonny/propdesk/pkg/logger"
)

// DefaultCalendarReloadSchedule runs every 15 minutes
const DefaultCalendarReloadSchedule = "0 */15 * * * *"

// CalendarReloadJob re-reads the event table file when it changes.
// A broken file keeps the previous snapshot and fails the run.
type CalendarReloadJob struct {
	store    *calendar.Store
	schedule string
	logger   *logger.Logger
}

// NewCalendarReloadJob creates a new calendar reload job
func NewCalendarReloadJob(store *calendar.Store, schedule string, log *logger.Logger) *CalendarReloadJob {
	if schedule == "" {
		schedule = DefaultCalendarReloadSchedule
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CalendarReloadJob{
		store:    store,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CalendarReloadJob) Name() string {
	return "calendar_reload"
}

// Schedule returns the cron schedule
func (j *CalendarReloadJob) Schedule() string {
	return j.schedule
}

// Run reloads the calendar file if modified
func (j *CalendarReloadJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	changed, err := j.store.ReloadIfChanged()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	cal := j.store.Current()
	j.logger.WithFields(map[string]interface{}{
		"source": cal.Source(),
		"events": cal.Len(),
	}).Info("Calendar reloaded")

	return nil
}
