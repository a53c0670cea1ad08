package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

const (
	MinSlotMinutes = 5
	MaxSlotMinutes = 8 * 60
	clockLayout    = "15:04"
)

// Partition splits window into consecutive full-length sub-intervals of the
// given duration. A trailing remainder shorter than duration is dropped.
func Partition(window interval.Interval, duration time.Duration) []interval.Interval {
	if duration <= 0 || !window.Valid() {
		return nil
	}
	n := int(window.Duration() / duration)
	out := make([]interval.Interval, 0, n)
	start := window.Start
	for i := 0; i < n; i++ {
		end := start.Add(duration)
		out = append(out, interval.Interval{Start: start, End: end})
		start = end
	}
	return out
}

type SlotRequest struct {
	// Day supplies the date and the location working hours are read in.
	Day         time.Time
	SlotMinutes int
	WorkStart   string
	WorkEnd     string
	Scope       Scope
}

// Window resolves the working-hours window for the request day.
func (r SlotRequest) Window() (interval.Interval, error) {
	verr := &model.ValidationError{}
	if r.SlotMinutes < MinSlotMinutes || r.SlotMinutes > MaxSlotMinutes {
		verr.Add(fmt.Sprintf("slot duration must be between %d and %d minutes", MinSlotMinutes, MaxSlotMinutes))
	}
	if r.Day.IsZero() {
		verr.Add("day is required")
	}
	startClock, errStart := time.Parse(clockLayout, r.WorkStart)
	if errStart != nil {
		verr.Add("work start must be HH:MM")
	}
	endClock, errEnd := time.Parse(clockLayout, r.WorkEnd)
	if errEnd != nil {
		verr.Add("work end must be HH:MM")
	}
	if errStart == nil && errEnd == nil && !endClock.After(startClock) {
		verr.Add("work end must be after work start")
	}
	if err := verr.OrNil(); err != nil {
		return interval.Interval{}, err
	}

	y, m, d := r.Day.Date()
	loc := r.Day.Location()
	start := time.Date(y, m, d, startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end := time.Date(y, m, d, endClock.Hour(), endClock.Minute(), 0, 0, loc)
	return interval.Interval{Start: start, End: end}, nil
}

// GenerateSlots partitions the working-hours window and keeps the windows
// that are available. Windows whose check fails are left out and the call
// reports ErrSourceUnavailable alongside the slots it could verify.
func (e *Engine) GenerateSlots(ctx context.Context, req SlotRequest) ([]model.Slot, error) {
	window, err := req.Window()
	if err != nil {
		return nil, err
	}
	var (
		slots  []model.Slot
		faults int
	)
	for _, iv := range Partition(window, time.Duration(req.SlotMinutes)*time.Minute) {
		ok, err := e.IsAvailable(ctx, iv, req.Scope)
		if err != nil {
			if !errors.Is(err, ErrSourceUnavailable) {
				return nil, err
			}
			faults++
			continue
		}
		if ok {
			slots = append(slots, model.Slot{Interval: iv, Available: true, Label: iv.Label()})
		}
	}
	if faults > 0 {
		e.logger.Warn("slots generated with unavailable sources", "day", window.Start, "dropped", faults)
		return slots, ErrSourceUnavailable
	}
	return slots, nil
}
