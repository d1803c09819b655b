package temporal

import (
	"time"

	"github.com/stanstork/tipboard-api/internal/notification"
)

// DefaultTaskQueue is used when no task queue is configured.
const DefaultTaskQueue = "TIPBOARD_NOTIFICATIONS"

// DispatchWorkflowIDPrefix is the prefix used for notification dispatch workflow IDs.
const DispatchWorkflowIDPrefix = "tipboard-dispatch-"

// ReminderScheduleID identifies the weekly review-reminder schedule.
const ReminderScheduleID = "tipboard-review-reminders"

// Workflow names as registered on the worker. Callers start workflows by
// name so the HTTP side does not import the workflow package.
const (
	DispatchWorkflowName = "DispatchNotificationsWorkflow"
	ReminderWorkflowName = "ReviewReminderWorkflow"
)

// DefaultActivityTimeout bounds a single dispatch or query activity.
const DefaultActivityTimeout = 2 * time.Minute

// DispatchParams is the input of the dispatch workflow.
type DispatchParams struct {
	Intents []notification.Intent
}
