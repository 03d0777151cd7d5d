// Package notify delivers reminder jobs to people.
package notify

import (
	"context"
	"errors"

	"github.com/okian/lichhen/internal/domain/reminder"
	"github.com/okian/lichhen/pkg/logger"
)

// ErrNoRecipient is returned when a notifier has nobody to deliver to.
var ErrNoRecipient = errors.New("no recipient configured")

// LogNotifier writes reminders to the log. It is used when mail delivery
// is not configured.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logger.Get().Named("notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, j reminder.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	n.logger.Info(ctx, "reminder (mail not configured)",
		logger.String("event_id", j.EventID),
		logger.Int64("owner_id", j.OwnerID),
		logger.String("subject", j.Subject()),
		logger.String("body", j.Body()),
	)
	return nil
}
