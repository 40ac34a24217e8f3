// Package registry maps outbox rows to their topic, payload type and
// Pub/Sub ordering key.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tillbook-backend/pkg/config"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox/payloads"
)

// EventDescriptor is what the relay knows about one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, string, error)
}

// ResolvedEvent is a decoded outbox row ready to publish. OrderingKey groups
// events that consumers must see in commit order.
type ResolvedEvent struct {
	Descriptor  EventDescriptor
	Envelope    outbox.PayloadEnvelope
	Payload     any
	OrderingKey string
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// describe binds an event type to its payload struct. key picks the
// ordering key from the decoded payload.
func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, key func(*T) string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		decode: func(data json.RawMessage) (any, string, error) {
			payload := new(T)
			if err := json.Unmarshal(data, payload); err != nil {
				return nil, "", err
			}
			return payload, key(payload), nil
		},
	}
}

func saleKey(id uuid.UUID) string    { return string(enums.AggregateSale) + ":" + id.String() }
func productKey(id uuid.UUID) string { return string(enums.AggregateProduct) + ":" + id.String() }

// NewEventRegistry routes every settlement event to the settlement topic.
// Payment events share their sale's ordering key so a payment never
// overtakes the sale it settles.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.SettlementTopic)
	if topic == "" {
		return nil, errors.New("settlement topic is required")
	}

	descriptors := []EventDescriptor{
		describe(enums.EventSaleCommitted, enums.AggregateSale, func(p *payloads.SaleCommittedEvent) string { return saleKey(p.SaleID) }),
		describe(enums.EventSaleVoided, enums.AggregateSale, func(p *payloads.SaleVoidedEvent) string { return saleKey(p.SaleID) }),
		describe(enums.EventPaymentApplied, enums.AggregatePayment, func(p *payloads.PaymentAppliedEvent) string { return saleKey(p.SaleID) }),
		describe(enums.EventPaymentVoided, enums.AggregatePayment, func(p *payloads.PaymentVoidedEvent) string { return saleKey(p.SaleID) }),
		describe(enums.EventStockAdjusted, enums.AggregateProduct, func(p *payloads.StockAdjustedEvent) string { return productKey(p.ProductID) }),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		desc.Topic = topic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the row will not change on a retry.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	fail := func(format string, args ...any) (*ResolvedEvent, error) {
		return nil, NewNonRetryableError(fmt.Errorf(format, args...))
	}

	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return fail("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return fail("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return fail("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fail("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fail("payload missing for %s", event.EventType)
	}

	payload, key, err := desc.decode(envelope.Data)
	if err != nil {
		return fail("decode %s payload: %w", event.EventType, err)
	}
	if strings.HasSuffix(key, ":"+uuid.Nil.String()) {
		// older rows without the parent id still order by their own aggregate
		key = string(event.AggregateType) + ":" + event.AggregateID.String()
	}
	return &ResolvedEvent{
		Descriptor:  desc,
		Envelope:    envelope,
		Payload:     payload,
		OrderingKey: key,
	}, nil
}
