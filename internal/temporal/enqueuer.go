package temporal

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/notification"
	tc "go.temporal.io/sdk/client"
)

// workflowStarter is the part of the Temporal client the enqueuer needs.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options tc.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tc.WorkflowRun, error)
}

// Enqueuer starts one dispatch workflow per batch of intents.
type Enqueuer struct {
	client    workflowStarter
	taskQueue string
	logger    zerolog.Logger
}

func NewEnqueuer(client workflowStarter, taskQueue string, logger zerolog.Logger) *Enqueuer {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Enqueuer{
		client:    client,
		taskQueue: taskQueue,
		logger:    logger.With().Str("component", "dispatch_enqueuer").Logger(),
	}
}

func (e *Enqueuer) Enqueue(ctx context.Context, intents []notification.Intent) error {
	if len(intents) == 0 {
		return nil
	}
	options := tc.StartWorkflowOptions{
		ID:        DispatchWorkflowIDPrefix + uuid.NewString(),
		TaskQueue: e.taskQueue,
	}
	run, err := e.client.ExecuteWorkflow(ctx, options, DispatchWorkflowName, DispatchParams{Intents: intents})
	if err != nil {
		return errors.Wrap(err, "failed to start dispatch workflow")
	}
	e.logger.Debug().
		Str("workflow_id", run.GetID()).
		Int("intents", len(intents)).
		Msg("dispatch workflow started")
	return nil
}
