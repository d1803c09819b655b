package temporal

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/config"
	tc "go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
)

// EnsureReminderSchedule creates the review-reminder cron schedule unless it
// already exists. An empty cron expression disables reminders.
func EnsureReminderSchedule(ctx context.Context, schedules tc.ScheduleClient, cfg config.TemporalConfig, logger zerolog.Logger) error {
	cron := strings.TrimSpace(cfg.ReminderCron)
	if cron == "" {
		logger.Info().Msg("review reminders disabled")
		return nil
	}
	taskQueue := cfg.TaskQueue
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}

	_, err := schedules.Create(ctx, tc.ScheduleOptions{
		ID: ReminderScheduleID,
		Spec: tc.ScheduleSpec{
			CronExpressions: []string{cron},
		},
		Action: &tc.ScheduleWorkflowAction{
			ID:        ReminderScheduleID + "-run",
			Workflow:  ReminderWorkflowName,
			TaskQueue: taskQueue,
		},
	})
	if errors.Is(err, sdktemporal.ErrScheduleAlreadyRunning) {
		logger.Debug().Str("schedule_id", ReminderScheduleID).Msg("reminder schedule already exists")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info().Str("schedule_id", ReminderScheduleID).Str("cron", cron).Msg("reminder schedule created")
	return nil
}
