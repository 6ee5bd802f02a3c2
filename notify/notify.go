/*
Package notify delivers checkout notifications.

PURPOSE:
  The settlement saga calls a single occupancy.Notifier once a booking is
  checked out. This package supplies the gateways behind it: structured log
  output, SendGrid email and a Kafka event topic. Multi fans one
  notification out to several gateways.

  Delivery is best effort. A returned error is logged by the caller and
  never changes a settlement outcome.

SEE ALSO:
  - settlement/notification.go: Message contents
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/warp/occupancy-engine/occupancy"
)

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ occupancy.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg occupancy.Notification) error {
	n.Logger.InfoContext(ctx, "notification",
		"event", msg.Event,
		"booking_id", msg.BookingID,
		"recipients", msg.Recipients,
		"subject", msg.Subject,
	)
	return nil
}

// Multi sends every notification to each gateway in order. All gateways are
// tried; failures are joined.
type Multi []occupancy.Notifier

func (m Multi) Notify(ctx context.Context, msg occupancy.Notification) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
