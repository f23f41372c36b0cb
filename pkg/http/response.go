package http

import (
	"encoding/json"
	"net/http"

	apperrors "reservations/pkg/errors"
)

// Response is the envelope written for every bookings request. Failures set
// Error and, for schema failures, Errors with every violated field.
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)

	statusCode := appErr.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	message := appErr.Message
	if appErr.Code == apperrors.CodeInternal {
		message = "Server error."
	}

	return WriteJSON(w, statusCode, Response{
		Success: false,
		Error:   message,
		Errors:  appErr.Violations(),
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Error:   message,
	})
}

func WriteSuccess(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func WriteCreated(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteList always serializes data, so an empty list is sent as [] rather than omitted.
func WriteList[T any](w http.ResponseWriter, message string, items []T) error {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
		Count   int    `json:"count"`
		Data    []T    `json:"data"`
	}{
		Success: true,
		Message: message,
		Count:   count,
		Data:    items,
	})
}
