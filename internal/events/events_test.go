package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	callCount := 0
	bus.Subscribe(EventJobCanceled, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventJobCanceled, JobEventPayload{JobID: "j1", Status: "canceled", Actor: "client"})
	require.NoError(t, err)

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventJobCanceled, received.Type)
	assert.NotEmpty(t, received.ID)

	var decoded JobEventPayload
	require.NoError(t, json.Unmarshal(received.Payload, &decoded))
	assert.Equal(t, "j1", decoded.JobID)
	assert.Equal(t, "client", decoded.Actor)
}

func TestEventBusWildcardAndMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var typed, all int

	bus.Subscribe(EventJobRated, func(_ *Event) error { typed++; return nil })
	bus.Subscribe(AllEvents, func(_ *Event) error { all++; return nil })

	require.NoError(t, bus.Publish(&Event{Type: EventJobRated}))
	require.NoError(t, bus.Publish(&Event{Type: EventJobStarted}))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, all)
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	called := false
	bus.Subscribe(EventJobCreated, func(_ *Event) error { return errors.New("sink down") })
	bus.Subscribe(EventJobCreated, func(_ *Event) error { called = true; return nil })

	err := bus.PublishJSON(EventJobCreated, map[string]string{"job_id": "j1"})
	assert.ErrorContains(t, err, "sink down")
	assert.True(t, called)
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NoError(t, bus.Publish(&Event{Type: "unknown"}))
	assert.NoError(t, bus.PublishJSON("unknown", nil))

	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON(EventJobCreated, nil))
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent("type", JobEventPayload{JobID: "123"})
	require.NoError(t, err)

	assert.Equal(t, "type", event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded JobEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, "123", decoded.JobID)

	_, err = NewJSONEvent("type", make(chan int))
	assert.Error(t, err)
}
