package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinicops/internal/clock"
	"github.com/wolfman30/clinicops/internal/observability/metrics"
	"github.com/wolfman30/clinicops/pkg/logging"
)

// ErrRecipientNotFound means the appointment no longer resolves to a patient.
var ErrRecipientNotFound = errors.New("confirmation: recipient not found")

var errAppointmentPassed = errors.New("appointment already started")

// Sender delivers a rendered reminder to a recipient.
type Sender interface {
	Send(ctx context.Context, to Recipient, subject, body string) error
}

// Directory resolves the patient and clinic details for an appointment.
type Directory interface {
	Recipient(ctx context.Context, clinicID, appointmentID string) (*Recipient, error)
}

// WorkerConfig tunes polling and retries.
type WorkerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Backoff     time.Duration
	// Lease is how long a claimed reminder stays hidden from other workers.
	Lease time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 5 * time.Minute
	}
	if c.Lease <= 0 {
		c.Lease = 15 * time.Minute
	}
	return c
}

// Worker delivers due reminders.
type Worker struct {
	repo      Repository
	directory Directory
	sender    Sender
	clock     clock.Clock
	cfg       WorkerConfig
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
}

// NewWorker creates a confirmation worker.
func NewWorker(repo Repository, directory Directory, sender Sender, c clock.Clock, cfg WorkerConfig, m *metrics.SchedulingMetrics, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		repo:      repo,
		directory: directory,
		sender:    sender,
		clock:     clock.OrSystem(c),
		cfg:       cfg.withDefaults(),
		metrics:   m,
		logger:    logger,
	}
}

// Run polls for due reminders until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("confirmation worker: started", "interval", w.cfg.Interval.String())
	for {
		if _, err := w.ProcessDue(ctx); err != nil {
			w.logger.Error("confirmation worker: process due", "error", err)
		}
		select {
		case <-ctx.Done():
			w.logger.Info("confirmation worker: stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessDue claims one batch of due reminders, delivers them and returns
// how many were sent. Failures before delivery are recorded on the entry and
// retried after a linear backoff until MaxAttempts is reached. A reminder
// that was delivered but could not be marked sent is logged and not retried.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	now := w.clock.Now()
	due, err := w.repo.ClaimDue(ctx, now, w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("confirmation worker: claim due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	w.logger.Info("confirmation worker: processing due reminders", "count", len(due))

	sent := 0
	for i := range due {
		d := &due[i]
		if err := w.deliver(ctx, d, now); err != nil {
			w.recordFailure(ctx, d, now, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (w *Worker) deliver(ctx context.Context, d *Delivery, now time.Time) error {
	r, err := w.directory.Recipient(ctx, d.ClinicID, d.AppointmentID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if !r.StartsAt.IsZero() && !r.StartsAt.After(now) {
		return fmt.Errorf("%w at %s", errAppointmentPassed, r.StartsAt.Format(time.RFC3339))
	}

	subject, body := RenderMessage(d.Stage, *r)
	if err := w.sender.Send(ctx, *r, subject, body); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := w.repo.MarkSent(ctx, d.ID, now); err != nil {
		// The patient already has the message. The claim lease keeps the
		// row away from other workers while the store recovers.
		w.metrics.ObserveDelivery(string(d.Stage), "unrecorded")
		w.logger.Error("confirmation worker: reminder sent but not recorded",
			"id", d.ID, "appointment_id", d.AppointmentID, "stage", d.Stage, "error", err)
		return nil
	}

	w.metrics.ObserveDelivery(string(d.Stage), "sent")
	w.logger.Info("confirmation worker: reminder sent",
		"id", d.ID, "appointment_id", d.AppointmentID, "stage", d.Stage)
	return nil
}

func (w *Worker) recordFailure(ctx context.Context, d *Delivery, now time.Time, cause error) {
	attempts := d.Attempts + 1
	maxAttempts := w.cfg.MaxAttempts
	if errors.Is(cause, ErrRecipientNotFound) || errors.Is(cause, errAppointmentPassed) {
		attempts = maxAttempts
	}
	next := now.Add(time.Duration(attempts) * w.cfg.Backoff)

	result := "retry"
	if attempts >= maxAttempts {
		result = "failed"
	}
	w.metrics.ObserveDelivery(string(d.Stage), result)
	w.logger.Error("confirmation worker: delivery failed",
		"id", d.ID, "stage", d.Stage, "attempts", attempts, "result", result, "error", cause)

	if err := w.repo.MarkFailed(ctx, d.ID, attempts, maxAttempts, next, cause.Error()); err != nil {
		w.logger.Error("confirmation worker: mark failed", "id", d.ID, "error", err)
	}
}
