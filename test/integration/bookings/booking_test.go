package integrationtests

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservations/pkg/client"
	"reservations/pkg/model"
)

// These tests drive a running bookings service at TEST_SERVER_URL against a
// dedicated database. Every test starts by deleting all bookings.

var bookingClient *client.BookingClient

func setup(t *testing.T) context.Context {
	t.Helper()

	serverURL := os.Getenv("TEST_SERVER_URL")
	if serverURL == "" {
		t.Skip("TEST_SERVER_URL not set, skipping bookings integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	if bookingClient == nil {
		require.NoError(t, client.NewHttpClient(serverURL).WaitForHealthy(ctx, 15*time.Second))
		bookingClient = client.NewBookingClient(serverURL)
	}
	clearBookings(t, ctx)
	return ctx
}

func clearBookings(t *testing.T, ctx context.Context) {
	t.Helper()
	all, err := bookingClient.List(ctx)
	require.NoError(t, err)
	for _, b := range all {
		require.NoError(t, bookingClient.Delete(ctx, b.ID))
	}
}

func validInput(date, clock string) *model.BookingInput {
	guests := 2
	return &model.BookingInput{
		Date:    date,
		Time:    clock,
		Guests:  &guests,
		Name:    "Alex",
		Contact: "1234567890",
		Email:   "a@b.com",
	}
}

func requireStatus(t *testing.T, err error, status int) *client.APIError {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected API error, got %v", err)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Message)
	return apiErr
}

func TestSlotLifecycle(t *testing.T) {
	ctx := setup(t)

	first, err := bookingClient.Create(ctx, validInput("2999-01-01", "19:00"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = bookingClient.Create(ctx, validInput("2999-01-01", "19:00"))
	requireStatus(t, err, http.StatusConflict)

	moved, err := bookingClient.Update(ctx, first.ID, validInput("2999-01-01", "20:00"))
	require.NoError(t, err)
	assert.Equal(t, "20:00", moved.Time)

	second, err := bookingClient.Create(ctx, validInput("2999-01-01", "19:00"))
	require.NoError(t, err)

	_, err = bookingClient.Update(ctx, second.ID, validInput("2999-01-01", "20:00"))
	requireStatus(t, err, http.StatusConflict)

	got, err := bookingClient.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ID)
	assert.Equal(t, "19:00", got.Time)

	all, err := bookingClient.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, bookingClient.Delete(ctx, first.ID))
	requireStatus(t, bookingClient.Delete(ctx, first.ID), http.StatusNotFound)

	_, err = bookingClient.Get(ctx, first.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestValidationRejections(t *testing.T) {
	ctx := setup(t)

	past := validInput("2020-01-01", "19:00")
	apiErr := requireStatus(t, createErr(ctx, past), http.StatusBadRequest)
	assert.Equal(t, "Booking date and time must be in the future.", apiErr.Message)

	badContact := validInput("2999-01-01", "19:00")
	badContact.Contact = "12345"
	apiErr = requireStatus(t, createErr(ctx, badContact), http.StatusBadRequest)
	assert.Contains(t, apiErr.Violations, "Contact must be a valid 10-digit phone number.")

	_, err := bookingClient.Update(ctx, "507f1f77bcf86cd799439011", &model.BookingInput{})
	requireStatus(t, err, http.StatusNotFound)

	all, err := bookingClient.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConcurrentCreateSameSlot(t *testing.T) {
	ctx := setup(t)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := bookingClient.Create(ctx, validInput("2999-06-15", "18:30")); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				var apiErr *client.APIError
				if assert.True(t, errors.As(err, &apiErr)) {
					assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	all, err := bookingClient.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func createErr(ctx context.Context, in *model.BookingInput) error {
	_, err := bookingClient.Create(ctx, in)
	return err
}
