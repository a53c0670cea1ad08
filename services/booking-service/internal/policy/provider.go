// Package policy decides which reminders a booking carries when it is
// exported or pushed to an external calendar.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Provider interface {
	ReminderOffsets(ctx context.Context, ownerID string) ([]time.Duration, error)
}

type staticProvider struct {
	offsets []time.Duration
}

func NewStaticProvider(offsets []time.Duration) Provider {
	return &staticProvider{offsets: normalize(offsets)}
}

func (p *staticProvider) ReminderOffsets(_ context.Context, _ string) ([]time.Duration, error) {
	return p.offsets, nil
}

// ParseOffsetMinutes reads a list like ["1440", "60"] into durations.
func ParseOffsetMinutes(raw []string) ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid reminder offset %q", v)
		}
		out = append(out, time.Duration(n)*time.Minute)
	}
	return normalize(out), nil
}

// normalize drops non-positive and duplicate offsets, longest first.
func normalize(offsets []time.Duration) []time.Duration {
	seen := make(map[time.Duration]bool, len(offsets))
	out := make([]time.Duration, 0, len(offsets))
	for _, o := range offsets {
		if o <= 0 || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
