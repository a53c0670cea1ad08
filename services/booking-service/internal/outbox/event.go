package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// Event is the envelope written to the outbox table. The Kafka topic equals
// EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type bookingPayload struct {
	BookingID          string `json:"booking_id"`
	OwnerID            string `json:"owner_id"`
	ProviderID         string `json:"provider_id,omitempty"`
	Title              string `json:"title"`
	AttendeeEmail      string `json:"attendee_email,omitempty"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	Status             string `json:"status"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CancelledAt        string `json:"cancelled_at,omitempty"`
}

// BookingEvent builds the envelope for a booking lifecycle event.
func BookingEvent(eventType string, b model.Booking) (Event, error) {
	p := bookingPayload{
		BookingID:          b.ID,
		OwnerID:            b.OwnerID,
		ProviderID:         b.ProviderID,
		Title:              b.Title,
		AttendeeEmail:      b.AttendeeEmail,
		StartTime:          b.Interval.Start.UTC().Format(time.RFC3339),
		EndTime:            b.Interval.End.UTC().Format(time.RFC3339),
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
	}
	if b.CancelledAt != nil {
		p.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
