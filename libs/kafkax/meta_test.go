package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMetaFallbacks(t *testing.T) {
	msg := kafka.Message{
		Topic: "calendar.external.changed.v1",
		Key:   []byte("cal-1"),
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "cal-1" || meta.EventType != "calendar.external.changed.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	msg.Headers = []kafka.Header{{Key: "event_id", Value: []byte("evt-9")}, {Key: "event_type", Value: []byte("x.v1")}}
	meta = ExtractEventMeta(msg)
	if meta.EventID != "evt-9" || meta.EventType != "x.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestEventHeadersRoundTrip(t *testing.T) {
	msg := kafka.Message{Topic: "booking.created.v1", Key: []byte("b-1"), Headers: EventHeaders(EventMeta{EventID: "evt-1", EventType: "booking.created.v1"})}
	if meta := ExtractEventMeta(msg); meta.EventID != "evt-1" || meta.EventType != "booking.created.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	parent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier{"traceparent": parent})

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("e1")}})
	if HeaderValue(headers, "traceparent") != parent {
		t.Fatalf("expected traceparent header, got %+v", headers)
	}

	got := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	sc := trace.SpanContextFromContext(got)
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("unexpected trace id %s", sc.TraceID())
	}
}
