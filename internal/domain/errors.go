package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by stores, the reminder scheduler and the dispatcher.
// Callers match them with errors.Is; the concrete cause stays wrapped.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidPriority   = fmt.Errorf("%w: priority must be 1, 2 or 3", ErrInvalidInput)
	ErrInvalidTimeFormat = fmt.Errorf("%w: expected HH:MM", ErrInvalidInput)
	ErrInvalidTimezone   = fmt.Errorf("%w: unknown IANA timezone", ErrInvalidInput)

	ErrNoTimezone       = errors.New("timezone not set")
	ErrNotFound         = errors.New("not found")
	ErrStorage          = errors.New("storage failure")
	ErrSchedulingFailed = errors.New("scheduling failed")
	ErrDeliveryFailed   = errors.New("delivery failed")
)

// Storage wraps a repository error with ErrStorage unless it already carries
// a domain meaning (not found, invalid input).
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
