// Package scheduling supplies the working-hours window slots are cut from.
package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type AvailabilityConfig struct {
	IsWorking   bool
	WorkStart   string
	WorkEnd     string
	SlotMinutes int
	Location    *time.Location
}

type Provider interface {
	GetAvailabilityConfig(ctx context.Context, providerID string, day time.Time) (AvailabilityConfig, error)
}

type StaticConfig struct {
	WorkStart   string
	WorkEnd     string
	SlotMinutes int
	Timezone    string
	// Weekdays lists working days; empty means every day.
	Weekdays []time.Weekday
}

type staticProvider struct {
	cfg StaticConfig
	loc *time.Location
}

func NewStaticProvider(cfg StaticConfig) (Provider, error) {
	if cfg.WorkStart == "" {
		cfg.WorkStart = "09:00"
	}
	if cfg.WorkEnd == "" {
		cfg.WorkEnd = "17:00"
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 30
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	return &staticProvider{cfg: cfg, loc: loc}, nil
}

func (p *staticProvider) GetAvailabilityConfig(_ context.Context, _ string, day time.Time) (AvailabilityConfig, error) {
	return AvailabilityConfig{
		IsWorking:   p.works(day.In(p.loc).Weekday()),
		WorkStart:   p.cfg.WorkStart,
		WorkEnd:     p.cfg.WorkEnd,
		SlotMinutes: p.cfg.SlotMinutes,
		Location:    p.loc,
	}, nil
}

func (p *staticProvider) works(d time.Weekday) bool {
	if len(p.cfg.Weekdays) == 0 {
		return true
	}
	for _, w := range p.cfg.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekdays reads short day names ("mon", "Tue") into weekdays.
func ParseWeekdays(raw []string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, v := range raw {
		key := strings.ToLower(strings.TrimSpace(v))
		if len(key) > 3 {
			key = key[:3]
		}
		d, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", v)
		}
		out = append(out, d)
	}
	return out, nil
}
