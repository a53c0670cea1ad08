package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/md-rashed-zaman/slotsync/libs/kafkax"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

func TestBookingEventPayload(t *testing.T) {
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	cancelledAt := start.Add(-time.Hour)
	b := model.Booking{
		ID:                 "b-1",
		OwnerID:            "o-1",
		Title:              "Haircut",
		Interval:           interval.Interval{Start: start, End: start.Add(30 * time.Minute)},
		Status:             model.StatusCancelled,
		CancellationReason: "ill",
		CancelledAt:        &cancelledAt,
	}
	evt, err := BookingEvent("booking.cancelled.v1", b)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if evt.AggregateType != "booking" || evt.AggregateID != "b-1" || evt.EventType != "booking.cancelled.v1" {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if payload["start_time"] != "2026-04-01T09:00:00Z" || payload["cancelled_at"] != "2026-04-01T08:00:00Z" || payload["status"] != "cancelled" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["provider_id"]; ok {
		t.Fatalf("empty provider_id should be omitted")
	}
}

func TestMessageCarriesMetaAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	msg := Message(context.Background(), Record{
		ID:          7,
		EventID:     "evt-7",
		AggregateID: "b-1",
		EventType:   "booking.created.v1",
		Payload:     []byte(`{}`),
		Traceparent: traceparent,
	})
	if msg.Topic != "booking.created.v1" || string(msg.Key) != "b-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-7" || meta.EventType != "booking.created.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != traceparent {
		t.Fatalf("expected traceparent header, got %q", got)
	}
}
