package policy

import (
	"context"
	"testing"
	"time"
)

func TestParseOffsetMinutes(t *testing.T) {
	got, err := ParseOffsetMinutes([]string{"60", " 1440", "", "60"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != 24*time.Hour || got[1] != time.Hour {
		t.Fatalf("unexpected offsets %v", got)
	}
	if _, err := ParseOffsetMinutes([]string{"-5"}); err == nil {
		t.Fatalf("expected error for negative offset")
	}
	if _, err := ParseOffsetMinutes([]string{"soon"}); err == nil {
		t.Fatalf("expected error for non-numeric offset")
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider([]time.Duration{15 * time.Minute, 0, time.Hour})
	got, err := p.ReminderOffsets(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != time.Hour {
		t.Fatalf("unexpected offsets %v", got)
	}
}
