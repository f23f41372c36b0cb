package events

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/pkg/kafka"
	"reservations/pkg/logger"
	"reservations/pkg/model"
)

func lifecycleMessage(t *testing.T, eventType string) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey("507f1f77bcf86cd799439011").
		WithEventType(eventType).
		WithSource("bookings").
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID("req-42").
		WithValue(&model.Booking{ID: "507f1f77bcf86cd799439011", Date: "2999-01-01", Time: "19:00", Guests: 4}).
		Build()
	require.NoError(t, err)
	return msg
}

func TestDecode(t *testing.T) {
	event, err := Decode(lifecycleMessage(t, EventBookingUpdated))
	require.NoError(t, err)

	assert.Equal(t, EventBookingUpdated, event.Type)
	assert.Equal(t, "req-42", event.CorrelationID)
	assert.Equal(t, "bookings", event.Source)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "19:00", event.Booking.Time)
	assert.Equal(t, 4, event.Booking.Guests)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode(lifecycleMessage(t, "booking.archived"))
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	wrongVersion := lifecycleMessage(t, EventBookingCreated)
	wrongVersion.Headers[kafka.HeaderSchemaVersion] = "2"
	_, err = Decode(wrongVersion)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	garbage := lifecycleMessage(t, EventBookingCreated)
	garbage.Value = []byte("not json")
	_, err = Decode(garbage)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

func TestAuditHandler_Logs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: logger.INFO, Format: logger.JSON, Output: &buf})

	err := NewAuditHandler(log)(context.Background(), lifecycleMessage(t, EventBookingDeleted))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"event_type":"booking.deleted"`)
	assert.Contains(t, out, `"booking_id":"507f1f77bcf86cd799439011"`)
	assert.Contains(t, out, `"correlation_id":"req-42"`)
}
