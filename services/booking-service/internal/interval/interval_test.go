package interval

import (
	"errors"
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func mustNew(t *testing.T, start, end time.Time) Interval {
	t.Helper()
	iv, err := New(start, end)
	if err != nil {
		t.Fatalf("New(%v, %v): %v", start, end, err)
	}
	return iv
}

func TestNewRejectsEmptyAndInverted(t *testing.T) {
	if _, err := New(at(10, 0), at(10, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for empty range, got %v", err)
	}
	if _, err := New(at(11, 0), at(10, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval for inverted range, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"partial", Interval{at(10, 0), at(11, 0)}, Interval{at(10, 30), at(11, 30)}, true},
		{"contained", Interval{at(9, 0), at(12, 0)}, Interval{at(10, 0), at(11, 0)}, true},
		{"touching end", Interval{at(10, 0), at(11, 0)}, Interval{at(11, 0), at(12, 0)}, false},
		{"touching start", Interval{at(11, 0), at(12, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"disjoint", Interval{at(8, 0), at(9, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"identical", Interval{at(10, 0), at(11, 0)}, Interval{at(10, 0), at(11, 0)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps(a,b) = %v, want %v", got, tc.want)
			}
			if Overlaps(tc.a, tc.b) != Overlaps(tc.b, tc.a) {
				t.Fatal("Overlaps is not symmetric")
			}
		})
	}
}

func TestOverlapsReflexive(t *testing.T) {
	for m := 1; m < 120; m += 7 {
		a := mustNew(t, at(8, 0), at(8, 0).Add(time.Duration(m)*time.Minute))
		if !a.Overlaps(a) {
			t.Fatalf("expected %s to overlap itself", a)
		}
	}
}

func TestContainsAndBefore(t *testing.T) {
	day := mustNew(t, at(9, 0), at(17, 0))
	if !day.Contains(mustNew(t, at(9, 0), at(9, 30))) {
		t.Fatal("expected window to contain its first slot")
	}
	if day.Contains(mustNew(t, at(16, 30), at(17, 30))) {
		t.Fatal("expected slot past the window end not to be contained")
	}
	if !mustNew(t, at(9, 0), at(10, 0)).Before(mustNew(t, at(10, 0), at(11, 0))) {
		t.Fatal("expected touching interval to be ordered before")
	}
}

func TestPadAndLabel(t *testing.T) {
	iv := mustNew(t, at(10, 0), at(10, 30))
	padded := iv.Pad(time.Hour)
	if !padded.Start.Equal(at(9, 0)) || !padded.End.Equal(at(11, 30)) {
		t.Fatalf("unexpected padded interval %s", padded)
	}
	if iv.Label() != "10:00 - 10:30" {
		t.Fatalf("unexpected label %q", iv.Label())
	}
}
