package workflows

import (
	"time"

	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/notification"
	"github.com/stanstork/tipboard-api/internal/temporal"
	"github.com/stanstork/tipboard-api/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func activityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})
}

// DispatchNotificationsWorkflow delivers one batch of intents produced by a
// single entity mutation.
func DispatchNotificationsWorkflow(ctx workflow.Context, params temporal.DispatchParams) error {
	ctx = activityOptions(ctx)
	logger := workflow.GetLogger(ctx)

	var a *activities.Activities
	if err := workflow.ExecuteActivity(ctx, a.DispatchActivity, params).Get(ctx, nil); err != nil {
		logger.Error("Notification dispatch failed.", "error", err)
		return err
	}
	return nil
}

// ReviewReminderWorkflow reminds every user about tips they read but did not
// rate. It runs on the reminder schedule.
func ReviewReminderWorkflow(ctx workflow.Context) error {
	ctx = activityOptions(ctx)
	logger := workflow.GetLogger(ctx)

	var a *activities.Activities
	var pending []models.PendingReview
	if err := workflow.ExecuteActivity(ctx, a.PendingReviewsActivity).Get(ctx, &pending); err != nil {
		logger.Error("Failed to load pending reviews.", "error", err)
		return err
	}

	intents := notification.ReminderIntents(pending)
	if len(intents) == 0 {
		logger.Info("No review reminders to send.")
		return nil
	}
	params := temporal.DispatchParams{Intents: intents}
	if err := workflow.ExecuteActivity(ctx, a.DispatchActivity, params).Get(ctx, nil); err != nil {
		logger.Error("Review reminder dispatch failed.", "error", err)
		return err
	}
	logger.Info("Review reminders sent.", "users", len(intents))
	return nil
}
