package ical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"20260302", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"20260302T101500Z", time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)},
		{"20260302T101500", time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)},
		{"2026-03-02T10:15:00+02:00", time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)},
		{"2026-03-02 10:15", time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)},
		{" 20260302T101500Z ", time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := parseDateTime(tc.in).Get()
		require.True(t, ok, tc.in)
		assert.True(t, tc.want.Equal(got), "%s: got %s", tc.in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	for _, bad := range []string{"", "tomorrow", "2026133", "20261399T999999Z"} {
		assert.True(t, parseDateTime(bad).IsAbsent(), bad)
	}
}

func TestParseTrigger(t *testing.T) {
	cases := map[string]int{
		"-PT15M":    15,
		"-PT1H":     60,
		"-P1D":      1440,
		"-P1W":      10080,
		"-P1DT2H3M": 1440 + 120 + 3,
		"-PT90S":    1,
		"PT0M":      0,
		"-pt5m":     5,
	}
	for in, want := range cases {
		got, ok := parseTrigger(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "PT15M", "+PT15M", "20260302T090000Z", "-PXM"} {
		_, ok := parseTrigger(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, "-PT45M", formatTrigger(45))
}
