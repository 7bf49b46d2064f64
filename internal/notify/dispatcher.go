// Package notify addresses alert e-mails, publishes them for delivery, and
// queues them while the publisher is unavailable.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

// Publisher hands a notification to the delivery pipeline.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// LogPublisher logs notifications instead of publishing them. It stands in
// for Kafka when notifications are disabled.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(_ context.Context, n domain.Notification) error {
	p.Logger.Info("notifications disabled, alert e-mail not published",
		"notification_id", n.ID, "event", n.Event, "recipient", n.Recipient)
	return nil
}

// PendingQueue holds notifications that could not be published. Pop returns
// false when the queue is empty.
type PendingQueue interface {
	Push(ctx context.Context, n domain.Notification) error
	PushFront(ctx context.Context, n domain.Notification) error
	Pop(ctx context.Context) (domain.Notification, bool, error)
}

// Outcome is the result of one dispatch attempt.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeQueued  Outcome = "queued"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Dispatcher publishes alert e-mails, falling back to a pending queue.
type Dispatcher struct {
	publisher        Publisher
	queue            PendingQueue
	defaultRecipient string
	logger           *slog.Logger
	metrics          *observability.Metrics
}

// NewDispatcher creates a Dispatcher. Alerts without a recipient go to
// defaultRecipient; if that is empty they are skipped.
func NewDispatcher(publisher Publisher, queue PendingQueue, defaultRecipient string, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		publisher:        publisher,
		queue:            queue,
		defaultRecipient: defaultRecipient,
		logger:           logger,
		metrics:          metrics,
	}
}

// SendAlertEmail publishes an alert e-mail and reports whether it was
// published now. A notification queued for later delivery reports false.
func (d *Dispatcher) SendAlertEmail(ctx context.Context, email domain.AlertEmail, recipient string) bool {
	return d.Dispatch(ctx, "", email, recipient) == OutcomeSent
}

// SendTestEmail publishes a fixed test alert to recipient.
func (d *Dispatcher) SendTestEmail(ctx context.Context, recipient string) bool {
	return d.SendAlertEmail(ctx, domain.AlertEmail{
		Event:       "Test Alert",
		Description: "This is a test of the weather alert e-mail system. No action is needed.",
	}, recipient)
}

// Dispatch addresses and publishes one alert e-mail. alertID, when set,
// links the notification back to its NWS alert.
func (d *Dispatcher) Dispatch(ctx context.Context, alertID string, email domain.AlertEmail, recipient string) Outcome {
	if recipient == "" {
		recipient = d.defaultRecipient
	}
	if recipient == "" {
		d.metrics.Notifications.WithLabelValues(string(OutcomeSkipped)).Inc()
		d.logger.Warn("no recipient for alert e-mail, skipping", "event", email.Event)
		return OutcomeSkipped
	}

	n := domain.Notification{
		ID:          uuid.NewString(),
		AlertID:     alertID,
		Event:       email.Event,
		Description: email.Description,
		Recipient:   recipient,
		Subject:     domain.AlertSubject(email.Event),
		CreatedAt:   domain.Now(),
	}

	err := d.publisher.Publish(ctx, n)
	if err == nil {
		d.metrics.Notifications.WithLabelValues(string(OutcomeSent)).Inc()
		d.logger.Info("alert e-mail published", "notification_id", n.ID, "event", n.Event, "recipient", n.Recipient)
		return OutcomeSent
	}

	d.logger.Warn("publish alert e-mail failed, queueing", "error", err, "notification_id", n.ID)
	if qerr := d.queue.Push(ctx, n); qerr != nil {
		d.metrics.Notifications.WithLabelValues(string(OutcomeFailed)).Inc()
		d.logger.Error("queue alert e-mail failed", "error", qerr, "notification_id", n.ID)
		return OutcomeFailed
	}
	d.metrics.Notifications.WithLabelValues(string(OutcomeQueued)).Inc()
	return OutcomeQueued
}

// FlushPending republishes queued notifications in FIFO order. It stops at
// the first publish failure, returning that notification to the head of the
// queue, and reports how many were published.
func (d *Dispatcher) FlushPending(ctx context.Context) (int, error) {
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		n, ok, err := d.queue.Pop(ctx)
		if err != nil {
			return sent, fmt.Errorf("pop pending notification: %w", err)
		}
		if !ok {
			if sent > 0 {
				d.logger.Info("flushed pending alert e-mails", "count", sent)
			}
			return sent, nil
		}

		if perr := d.publisher.Publish(ctx, n); perr != nil {
			if qerr := d.queue.PushFront(ctx, n); qerr != nil {
				d.metrics.Notifications.WithLabelValues(string(OutcomeFailed)).Inc()
				return sent, errors.Join(perr, fmt.Errorf("requeue notification %s: %w", n.ID, qerr))
			}
			return sent, fmt.Errorf("republish notification %s: %w", n.ID, perr)
		}
		d.metrics.Notifications.WithLabelValues(string(OutcomeSent)).Inc()
		sent++
	}
}
