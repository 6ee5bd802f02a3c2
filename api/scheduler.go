/*
scheduler.go - Follow-up digest for unfinished settlements

PURPOSE:
  Periodically reads the settlement journal and sends operators one digest
  listing every checkout left partial, with the action that finishes it.

DESIGN:
  - robfig/cron with a six-field spec (seconds precision, UTC)
  - Read-only: it never retries a settlement step. Finishing is an operator
    decision (resume or complete-expense), because a step whose outcome is
    unknown may already have been applied.
  - No digest is sent when nothing is partial

CONFIGURATION:
  - Spec:       cron spec, default "0 0 8 * * *" (08:00 UTC daily)
  - Recipients: digest addresses

USAGE:
  scheduler := NewFollowUpScheduler(store, notifier, recipients)
  if err := scheduler.Start("0 0 8 * * *"); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ResumeCheckout, CompleteExpense
  - settlement/saga.go: Writes the journal entries read here
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/occupancy-engine/occupancy"
)

const EventFollowUpDigest = "settlement.follow_up_digest"

// FollowUpScheduler sends the partial settlement digest on a cron schedule.
type FollowUpScheduler struct {
	Log        occupancy.SettlementLog
	Notifier   occupancy.Notifier
	Recipients []string
	Logger     *slog.Logger
	Timeout    time.Duration

	cron *cron.Cron
	mu   sync.Mutex
}

// NewFollowUpScheduler creates a new scheduler.
func NewFollowUpScheduler(log occupancy.SettlementLog, notifier occupancy.Notifier, recipients []string) *FollowUpScheduler {
	return &FollowUpScheduler{
		Log:        log,
		Notifier:   notifier,
		Recipients: recipients,
		Logger:     slog.Default(),
		Timeout:    time.Minute,
	}
}

// Start registers the digest job under spec and starts the cron loop.
func (s *FollowUpScheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("register follow-up digest %q: %w", spec, err)
	}
	c.Start()
	s.cron = c

	s.Logger.Info("follow-up scheduler started", "spec", spec)
	return nil
}

// Stop stops the cron loop and waits for a running digest to finish.
func (s *FollowUpScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.Logger.Info("follow-up scheduler stopped")
}

func (s *FollowUpScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	n, err := s.RunOnce(ctx)
	if err != nil {
		s.Logger.Error("follow-up digest failed", "error", err)
		return
	}
	s.Logger.Info("follow-up digest checked", "partial_settlements", n)
}

// RunOnce sends the digest if any settlement is partial and returns how many
// were listed.
func (s *FollowUpScheduler) RunOnce(ctx context.Context) (int, error) {
	records, err := s.Log.ListSettlements(ctx, occupancy.SettlementPartial)
	if err != nil {
		return 0, fmt.Errorf("list partial settlements: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	if s.Notifier == nil {
		return len(records), nil
	}

	if err := s.Notifier.Notify(ctx, followUpDigest(s.Recipients, records)); err != nil {
		return len(records), fmt.Errorf("%w: %w", occupancy.ErrNotificationFailed, err)
	}
	return len(records), nil
}

func followUpDigest(recipients []string, records []occupancy.SettlementRecord) occupancy.Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "%d checkout settlement(s) need follow-up:\n\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(&body, "- booking %s: %s did not complete", rec.BookingID, rec.FailedStep)
		if rec.Unknown {
			body.WriteString(" (outcome unknown)")
		}
		if rec.Error != "" {
			fmt.Fprintf(&body, ": %s", rec.Error)
		}
		fmt.Fprintf(&body, "\n  since %s, next: %s\n", rec.UpdatedAt.UTC().Format(time.RFC3339), followUpAction(rec))
	}

	return occupancy.Notification{
		Recipients: recipients,
		Subject:    fmt.Sprintf("%d checkout settlement(s) need follow-up", len(records)),
		Body:       body.String(),
		Event:      EventFollowUpDigest,
	}
}

func followUpAction(rec occupancy.SettlementRecord) string {
	if rec.FailedStep == occupancy.StepRefundExpense {
		return fmt.Sprintf("POST /api/bookings/%s/checkout/complete-expense", rec.BookingID)
	}
	return fmt.Sprintf("POST /api/bookings/%s/checkout/resume", rec.BookingID)
}
