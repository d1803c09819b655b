package worker

import (
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/notification"
	"github.com/stanstork/tipboard-api/internal/repository"
	"github.com/stanstork/tipboard-api/internal/temporal"
	"github.com/stanstork/tipboard-api/internal/temporal/activities"
	"github.com/stanstork/tipboard-api/internal/temporal/workflows"
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type Config struct {
	TaskQueue     string
	Notifications notification.Service
	Reviews       repository.ReviewRepository
}

// Registry is the subset of worker.Worker used for registration, so the
// wiring can be checked without a Temporal server.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivity(a interface{})
}

// Register wires the notification workflows and activities into r.
func Register(r Registry, cfg Config) {
	r.RegisterWorkflowWithOptions(workflows.DispatchNotificationsWorkflow, workflow.RegisterOptions{Name: temporal.DispatchWorkflowName})
	r.RegisterWorkflowWithOptions(workflows.ReviewReminderWorkflow, workflow.RegisterOptions{Name: temporal.ReminderWorkflowName})
	r.RegisterActivity(&activities.Activities{
		Notifications: cfg.Notifications,
		Reviews:       cfg.Reviews,
	})
}

// Start builds a worker on the configured task queue and runs it in the
// background. Callers stop it with Stop on shutdown.
func Start(client tc.Client, cfg Config, logger zerolog.Logger) worker.Worker {
	taskQueue := cfg.TaskQueue
	if taskQueue == "" {
		taskQueue = temporal.DefaultTaskQueue
	}
	w := worker.New(client, taskQueue, worker.Options{})
	Register(w, cfg)

	go func() {
		logger.Info().Str("task_queue", taskQueue).Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()
	return w
}
