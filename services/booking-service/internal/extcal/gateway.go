// Package extcal talks to the third-party calendar that bookings are
// mirrored into and checked against.
package extcal

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// ErrNotConfigured is returned when the gateway has no calendar to talk to.
var ErrNotConfigured = errors.New("external calendar not configured")

// Gateway lists and writes events in the external calendar. The external id
// returned by CreateEvent is opaque to callers.
type Gateway interface {
	ListEvents(ctx context.Context, window interval.Interval) ([]model.EventRecord, error)
	CreateEvent(ctx context.Context, rec model.EventRecord) (string, error)
	UpdateEvent(ctx context.Context, externalID string, rec model.EventRecord) error
	DeleteEvent(ctx context.Context, externalID string) error
}
