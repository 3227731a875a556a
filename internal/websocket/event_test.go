package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"id":     "0190b5d2-0000-7000-8000-000000000001",
		"store":  "Corner Shop",
		"amount": "100.00",
	}

	before := time.Now()
	evt := NewEvent(EventTypeCreated, EntityTypeTransaction, payload)
	after := time.Now()

	assert.Equal(t, "transaction.created", evt.Type)
	assert.Equal(t, EntityTypeTransaction, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_JSON_Serialization(t *testing.T) {
	fixedTime := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	payload := map[string]interface{}{
		"month":  "2025-01",
		"salary": "300000",
	}

	evt := Event{
		Type:      "budget.updated",
		Entity:    EntityTypeBudget,
		Payload:   payload,
		Timestamp: fixedTime,
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded Event
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, evt.Entity, decoded.Entity)
	assert.Equal(t, fixedTime.UTC(), decoded.Timestamp.UTC())

	decodedPayload, ok := decoded.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-01", decodedPayload["month"])
	assert.Equal(t, "300000", decodedPayload["salary"])
}

func TestEvent_ToJSON(t *testing.T) {
	evt := NewEvent(EventTypeSynced, EntityTypeTransaction, map[string]interface{}{"count": float64(3)})

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "transaction.synced", decoded["type"])
	assert.Equal(t, "transaction", decoded["entity"])
	assert.NotNil(t, decoded["payload"])
	assert.NotNil(t, decoded["timestamp"])
}

func TestEvent_Helpers(t *testing.T) {
	payload := map[string]interface{}{"id": "x"}

	tests := []struct {
		name   string
		build  func(interface{}) Event
		typ    string
		entity EntityType
	}{
		{"TransactionCreated", TransactionCreated, "transaction.created", EntityTypeTransaction},
		{"TransactionSynced", TransactionSynced, "transaction.synced", EntityTypeTransaction},
		{"TransactionMerged", TransactionMerged, "transaction.merged", EntityTypeTransaction},
		{"BudgetUpdated", BudgetUpdated, "budget.updated", EntityTypeBudget},
		{"BalancesUpdated", BalancesUpdated, "balances.updated", EntityTypeBalances},
		{"CategoryCreated", CategoryCreated, "category.created", EntityTypeCategory},
		{"CategoryUpdated", CategoryUpdated, "category.updated", EntityTypeCategory},
		{"AccountCreated", AccountCreated, "account.created", EntityTypeAccount},
		{"AccountUpdated", AccountUpdated, "account.updated", EntityTypeAccount},
		{"AccountDeleted", AccountDeleted, "account.deleted", EntityTypeAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := tt.build(payload)
			assert.Equal(t, tt.typ, evt.Type)
			assert.Equal(t, tt.entity, evt.Entity)
			assert.Equal(t, payload, evt.Payload)
		})
	}
}
