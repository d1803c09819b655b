package activities

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stanstork/tipboard-api/internal/models"
	"github.com/stanstork/tipboard-api/internal/notification"
	"github.com/stanstork/tipboard-api/internal/repository"
	"github.com/stanstork/tipboard-api/internal/temporal"
	"go.temporal.io/sdk/activity"
)

type Activities struct {
	Notifications notification.Service
	Reviews       repository.ReviewRepository
}

// DispatchActivity persists and publishes a batch of intents. Per-recipient
// failures are logged and never fail the activity, so Temporal does not
// redeliver rows that were already stored.
func (a *Activities) DispatchActivity(ctx context.Context, params temporal.DispatchParams) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Dispatching notification intents", "intents", len(params.Intents))

	if err := a.Notifications.Dispatch(ctx, params.Intents); err != nil {
		logger.Error("Some notifications could not be delivered", "error", err)
	}
	return nil
}

func (a *Activities) PendingReviewsActivity(ctx context.Context) ([]models.PendingReview, error) {
	logger := activity.GetLogger(ctx)

	pending, err := a.Reviews.PendingReviewCounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count pending reviews")
	}
	logger.Info("Loaded pending reviews", "users", len(pending))
	return pending, nil
}
