package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/pkg/config"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSaleCommitted(t *testing.T) {
	reg := newTestEventRegistry(t)

	saleID := uuid.New()
	event := models.OutboxEvent{
		EventType:     enums.EventSaleCommitted,
		AggregateType: enums.AggregateSale,
		AggregateID:   saleID,
		Payload: mustEnvelope(t, mustMarshal(t, payloads.SaleCommittedEvent{
			SaleID:     saleID,
			ReceiptNo:  "R20260101-0001",
			GrandTotal: decimal.RequireFromString("214"),
			Status:     enums.SaleStatusPaid,
		})),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "settlement-topic", resolved.Descriptor.Topic)
	assert.Equal(t, enums.EventSaleCommitted, resolved.Descriptor.EventType)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())

	payload, ok := resolved.Payload.(*payloads.SaleCommittedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	assert.Equal(t, saleID, payload.SaleID)
	assert.True(t, payload.GrandTotal.Equal(decimal.NewFromInt(214)))
}

func TestEventRegistryEveryEventHasTopic(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventSaleCommitted,
		enums.EventSaleVoided,
		enums.EventPaymentApplied,
		enums.EventPaymentVoided,
		enums.EventStockAdjusted,
	} {
		desc, ok := reg.entries[eventType]
		require.True(t, ok, "missing descriptor for %s", eventType)
		assert.Equal(t, "settlement-topic", desc.Topic)
		assert.True(t, desc.AggregateType.IsValid())
	}
}

func TestEventRegistryRejectsRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := []struct {
		name  string
		event models.OutboxEvent
	}{
		{
			name: "unknown event",
			event: models.OutboxEvent{
				EventType:     enums.OutboxEventType("inventory_counted"),
				AggregateType: enums.AggregateProduct,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelope(t, []byte(`{}`)),
			},
		},
		{
			name: "aggregate mismatch",
			event: models.OutboxEvent{
				EventType:     enums.EventPaymentApplied,
				AggregateType: enums.AggregateSale,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelope(t, []byte(`{"amount":"10"}`)),
			},
		},
		{
			name: "missing aggregate id",
			event: models.OutboxEvent{
				EventType:     enums.EventStockAdjusted,
				AggregateType: enums.AggregateProduct,
				AggregateID:   uuid.Nil,
				Payload:       mustEnvelope(t, []byte(`{}`)),
			},
		},
		{
			name: "null payload",
			event: models.OutboxEvent{
				EventType:     enums.EventSaleVoided,
				AggregateType: enums.AggregateSale,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelope(t, []byte("null")),
			},
		},
		{
			name: "broken envelope",
			event: models.OutboxEvent{
				EventType:     enums.EventSaleVoided,
				AggregateType: enums.AggregateSale,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage(`{"data":`),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Resolve(tc.event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry), "expected non-retryable error, got %T", err)
		})
	}
}

func TestPaymentEventsShareTheSaleOrderingKey(t *testing.T) {
	reg := newTestEventRegistry(t)
	saleID := uuid.New()

	committed, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventSaleCommitted,
		AggregateType: enums.AggregateSale,
		AggregateID:   saleID,
		Payload:       mustEnvelope(t, mustMarshal(t, payloads.SaleCommittedEvent{SaleID: saleID})),
	})
	require.NoError(t, err)
	paid, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventPaymentApplied,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, mustMarshal(t, payloads.PaymentAppliedEvent{SaleID: saleID})),
	})
	require.NoError(t, err)

	assert.Equal(t, "sale:"+saleID.String(), committed.OrderingKey)
	assert.Equal(t, committed.OrderingKey, paid.OrderingKey)
}

func TestOrderingKeyFallsBackToAggregate(t *testing.T) {
	reg := newTestEventRegistry(t)
	paymentID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventPaymentVoided,
		AggregateType: enums.AggregatePayment,
		AggregateID:   paymentID,
		Payload:       mustEnvelope(t, []byte(`{"reason":"typo"}`)),
	})
	require.NoError(t, err)
	assert.Equal(t, "sale_payment:"+paymentID.String(), resolved.OrderingKey)
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{SettlementTopic: " "})
	require.Error(t, err)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{SettlementTopic: "settlement-topic"})
	require.NoError(t, err)
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		ActorID:    "cashier-1",
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	return data
}
