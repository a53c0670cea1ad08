package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

func TestPartition_LengthAndContiguity(t *testing.T) {
	for _, tc := range []struct {
		window   interval.Interval
		duration time.Duration
		want     int
	}{
		{span(9, 0, 17, 0), 30 * time.Minute, 16},
		{span(9, 0, 10, 0), 25 * time.Minute, 2},
		{span(9, 0, 9, 20), 30 * time.Minute, 0},
		{span(9, 0, 10, 0), 60 * time.Minute, 1},
	} {
		parts := Partition(tc.window, tc.duration)
		if len(parts) != tc.want {
			t.Fatalf("%s / %s: expected %d parts, got %d", tc.window, tc.duration, tc.want, len(parts))
		}
		for i, p := range parts {
			if p.Duration() != tc.duration {
				t.Fatalf("part %d has duration %s", i, p.Duration())
			}
			if !tc.window.Contains(p) {
				t.Fatalf("part %d escapes window", i)
			}
			if i == 0 && !p.Start.Equal(tc.window.Start) {
				t.Fatalf("first part must start at window start")
			}
			if i > 0 {
				prev := parts[i-1]
				if !prev.End.Equal(p.Start) || prev.Overlaps(p) {
					t.Fatalf("parts %d and %d not contiguous", i-1, i)
				}
			}
		}
	}
}

func TestPartition_Degenerate(t *testing.T) {
	if got := Partition(span(9, 0, 10, 0), 0); got != nil {
		t.Fatalf("expected nil for zero duration")
	}
	if got := Partition(span(10, 0, 9, 0), time.Minute); got != nil {
		t.Fatalf("expected nil for inverted window")
	}
}

func TestGenerateSlots_FiltersBusy(t *testing.T) {
	finder := &fakeFinder{bookings: []model.Booking{
		booking("b1", "p1", span(9, 15, 9, 45), model.StatusConfirmed),
	}}
	e := NewEngine(finder, nil)

	slots, err := e.GenerateSlots(context.Background(), SlotRequest{
		Day:         day.Add(15 * time.Hour),
		SlotMinutes: 15,
		WorkStart:   "09:00",
		WorkEnd:     "10:00",
		Scope:       Scope{ProviderID: "p1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Interval.Start.Equal(at(9, 0)) || slots[0].Label != "09:00 - 09:15" {
		t.Fatalf("unexpected first slot %+v", slots[0])
	}
	if !slots[1].Interval.Start.Equal(at(9, 45)) || slots[1].Label != "09:45 - 10:00" {
		t.Fatalf("unexpected second slot %+v", slots[1])
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("returned slot must be available")
		}
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	e := NewEngine(&fakeFinder{}, nil)
	req := SlotRequest{Day: day, SlotMinutes: 45, WorkStart: "08:00", WorkEnd: "12:00"}
	first, err := e.GenerateSlots(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := e.GenerateSlots(context.Background(), req)
	if len(first) != 5 || len(first) != len(second) {
		t.Fatalf("expected 5 slots twice, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between runs", i)
		}
		if i > 0 && !first[i-1].Interval.Before(first[i].Interval) {
			t.Fatalf("slots not strictly increasing at %d", i)
		}
	}
}

func TestGenerateSlots_UsesDayLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	e := NewEngine(&fakeFinder{}, nil)
	slots, err := e.GenerateSlots(context.Background(), SlotRequest{
		Day:         time.Date(2026, 1, 28, 0, 0, 0, 0, loc),
		SlotMinutes: 60,
		WorkStart:   "09:00",
		WorkEnd:     "11:00",
	})
	if err != nil || len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d %v", len(slots), err)
	}
	if !slots[0].Interval.Start.Equal(at(7, 0)) {
		t.Fatalf("expected 07:00 UTC, got %s", slots[0].Interval.Start.UTC())
	}
	if slots[0].Label != "09:00 - 10:00" {
		t.Fatalf("expected local label, got %q", slots[0].Label)
	}
}

func TestGenerateSlots_Validation(t *testing.T) {
	e := NewEngine(&fakeFinder{}, nil)
	for name, req := range map[string]SlotRequest{
		"too short":    {Day: day, SlotMinutes: 4, WorkStart: "09:00", WorkEnd: "17:00"},
		"too long":     {Day: day, SlotMinutes: 481, WorkStart: "09:00", WorkEnd: "17:00"},
		"bad start":    {Day: day, SlotMinutes: 30, WorkStart: "9am", WorkEnd: "17:00"},
		"inverted":     {Day: day, SlotMinutes: 30, WorkStart: "17:00", WorkEnd: "09:00"},
		"missing day":  {SlotMinutes: 30, WorkStart: "09:00", WorkEnd: "17:00"},
		"equal bounds": {Day: day, SlotMinutes: 30, WorkStart: "09:00", WorkEnd: "09:00"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := e.GenerateSlots(context.Background(), req)
			var verr *model.ValidationError
			if !errors.As(err, &verr) || len(verr.Violations) == 0 {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGenerateSlots_SourceFault(t *testing.T) {
	e := NewEngine(&fakeFinder{err: errors.New("down")}, nil)
	slots, err := e.GenerateSlots(context.Background(), SlotRequest{Day: day, SlotMinutes: 30, WorkStart: "09:00", WorkEnd: "10:00"})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}
