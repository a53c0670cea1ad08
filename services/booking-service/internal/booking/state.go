package booking

import "github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"

var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCancelled, model.StatusCompleted},
}

// CanTransition reports whether a booking may move from one status to
// another. Cancelled and completed are final.
func CanTransition(from, to model.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	EventCreated   = "booking.created.v1"
	EventUpdated   = "booking.updated.v1"
	EventCancelled = "booking.cancelled.v1"
	EventCompleted = "booking.completed.v1"
	EventDeleted   = "booking.deleted.v1"
)
