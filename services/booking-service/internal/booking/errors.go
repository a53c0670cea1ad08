package booking

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

var (
	ErrNotFound = errors.New("booking not found")
	// ErrUnavailable means the interval conflicts with another booking or
	// external event, or availability could not be confirmed.
	ErrUnavailable   = errors.New("time slot unavailable")
	ErrNotModifiable = errors.New("booking can no longer be modified")
	// ErrInfrastructure wraps store faults that are not a domain outcome.
	ErrInfrastructure = errors.New("booking store unavailable")
)

// ValidationError is shared with the availability engine.
type ValidationError = model.ValidationError

func isDomainError(err error) bool {
	var verr *ValidationError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrNotModifiable) ||
		errors.Is(err, ErrInfrastructure) ||
		errors.As(err, &verr)
}

func infra(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}
