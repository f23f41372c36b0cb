package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"reservations/pkg/model"
)

const bookingsPath = "/api/v1/bookings"

// Envelope is the body every bookings endpoint answers with.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Count   *int            `json:"count,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
}

// APIError is returned for any non-2xx answer.
type APIError struct {
	StatusCode int
	Message    string
	Violations []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bookings api: %d: %s", e.StatusCode, e.Message)
}

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *BookingClient) List(ctx context.Context) ([]*model.Booking, error) {
	resp, err := c.httpClient.Get(ctx, bookingsPath)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	bookings := []*model.Booking{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &bookings); err != nil {
			return nil, fmt.Errorf("could not decode booking list: %w", err)
		}
	}
	return bookings, nil
}

func (c *BookingClient) Get(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.Get(ctx, bookingsPath+"/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Create(ctx context.Context, in *model.BookingInput) (*model.Booking, error) {
	resp, err := c.httpClient.Post(ctx, bookingsPath, in)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Update(ctx context.Context, id string, in *model.BookingInput) (*model.Booking, error) {
	resp, err := c.httpClient.Patch(ctx, bookingsPath+"/"+url.PathEscape(id), in)
	if err != nil {
		return nil, err
	}
	return decodeBooking(resp)
}

func (c *BookingClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.Delete(ctx, bookingsPath+"/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(resp)
	return err
}

func decodeBooking(resp *Response) (*model.Booking, error) {
	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := json.Unmarshal(env.Data, &booking); err != nil {
		return nil, fmt.Errorf("could not decode booking json: %s: %w", resp, err)
	}
	return &booking, nil
}

func decodeEnvelope(resp *Response) (*Envelope, error) {
	var env Envelope
	if err := resp.DecodeJSON(&env); err != nil {
		return nil, fmt.Errorf("could not decode response: %s: %w", resp, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || !env.Success {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Error,
			Violations: env.Errors,
		}
	}
	return &env, nil
}
