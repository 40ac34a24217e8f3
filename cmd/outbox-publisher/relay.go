package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox/registry"
)

const (
	relayPublished    = "published"
	relayRetry        = "retry"
	relayDeadLettered = "dead_lettered"
	relayHeld         = "held"
)

// processBatch claims one batch and settles every row in it inside the same
// transaction. Once an event fails with a retry, later events with the same
// ordering key in this batch are held back so a payment_applied never
// overtakes its sale_committed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0

		held := map[string]struct{}{}
		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				fields := eventFields(event, outbox.PayloadEnvelope{}, "", "")
				if err := s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields); err != nil {
					return err
				}
				continue
			}
			if _, blocked := held[resolved.OrderingKey]; blocked {
				s.metrics.IncOutbox(string(event.EventType), relayHeld)
				continue
			}
			retry, err := s.relay(ctx, tx, event, resolved)
			if err != nil {
				return err
			}
			if retry {
				held[resolved.OrderingKey] = struct{}{}
			}
		}
		return nil
	})
	return processed, err
}

// relay publishes one event and records the outcome. It reports whether
// the event stays pending for another attempt.
func (s *Service) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent) (bool, error) {
	fields := eventFields(event, resolved.Envelope, resolved.Descriptor.Topic, resolved.OrderingKey)
	err := s.publish(ctx, event, resolved)
	if err == nil {
		if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
			return false, fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.metrics.IncOutbox(string(event.EventType), relayPublished)
		s.logg.Debug(s.logg.WithFields(ctx, fields), "outbox event published")
		return false, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return false, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return false, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	logCtx := s.logg.WithFields(ctx, fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed; will retry")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return false, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	s.metrics.IncOutbox(string(event.EventType), relayRetry)
	return true, nil
}

// deadLetter copies the event to the DLQ and pins it out of the pending set.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := s.logg.WithFields(ctx, fields)
	s.logg.Warn(s.logg.WithField(logCtx, "error", cause.Error()), "outbox event dead-lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      s.now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncOutbox(string(event.EventType), relayDeadLettered)
	return nil
}

func eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic, key string) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	}
	if key != "" {
		fields["ordering_key"] = key
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if envelope.ActorID != "" {
		fields["actor_id"] = envelope.ActorID
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
