package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotTaken is returned by the store when the unique slot index rejects a write.
	ErrSlotTaken = errors.New("booking slot already taken")
)
