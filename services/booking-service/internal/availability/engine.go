// Package availability decides whether an interval is free against local
// bookings and, when configured, an external calendar, and partitions
// working hours into bookable slots.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotsync/libs/runtime"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// ErrSourceUnavailable means a conflict source could not be consulted. The
// engine treats it as "not available".
var ErrSourceUnavailable = errors.New("availability source unavailable")

const DefaultPadding = time.Hour

// Scope narrows the conflict check. An empty ProviderID checks every
// booking. ExcludeID skips one booking (the one being rescheduled) locally,
// and its pushed copy in the external calendar, whose UID is the booking id.
type Scope struct {
	ProviderID string
	ExcludeID  string
}

// BookingFinder returns bookings whose interval overlaps iv within scope.
type BookingFinder interface {
	FindOverlapping(ctx context.Context, iv interval.Interval, providerID, excludeID string) ([]model.Booking, error)
}

// BusySource lists events from an external calendar within a window.
type BusySource interface {
	ListEvents(ctx context.Context, window interval.Interval) ([]model.EventRecord, error)
}

type Engine struct {
	bookings BookingFinder
	external BusySource
	padding  time.Duration
	logger   *slog.Logger
}

type Option func(*Engine)

// WithExternalCalendar enables the external conflict check. Without it the
// engine only consults local bookings.
func WithExternalCalendar(src BusySource) Option {
	return func(e *Engine) {
		e.external = src
	}
}

// WithPadding sets how far the external query window extends on each side.
func WithPadding(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.padding = d
		}
	}
}

func NewEngine(bookings BookingFinder, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = runtime.DiscardLogger()
	}
	e := &Engine{
		bookings: bookings,
		padding:  DefaultPadding,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ExternalEnabled() bool {
	return e.external != nil
}

// IsAvailable reports whether iv is free in both sources. A source fault
// yields false together with an error wrapping ErrSourceUnavailable.
func (e *Engine) IsAvailable(ctx context.Context, iv interval.Interval, scope Scope) (bool, error) {
	ok, err := e.CheckLocal(ctx, iv, scope)
	if err != nil || !ok {
		return false, err
	}
	if e.external == nil {
		return true, nil
	}
	return e.checkExternal(ctx, iv, scope)
}

// CheckLocal runs only the local booking check.
func (e *Engine) CheckLocal(ctx context.Context, iv interval.Interval, scope Scope) (bool, error) {
	if !iv.Valid() {
		return false, interval.ErrInvalidInterval
	}
	found, err := e.bookings.FindOverlapping(ctx, iv, scope.ProviderID, scope.ExcludeID)
	if err != nil {
		e.logger.Error("local availability check failed",
			"start", iv.Start, "end", iv.End, "provider_id", scope.ProviderID, "err", err)
		return false, fmt.Errorf("%w: local bookings: %v", ErrSourceUnavailable, err)
	}
	for _, b := range found {
		if !b.Blocks() || (scope.ExcludeID != "" && b.ID == scope.ExcludeID) {
			continue
		}
		if scope.ProviderID != "" && b.ProviderID != scope.ProviderID {
			continue
		}
		if iv.Overlaps(b.Interval) {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) checkExternal(ctx context.Context, iv interval.Interval, scope Scope) (bool, error) {
	events, err := e.external.ListEvents(ctx, iv.Pad(e.padding))
	if err != nil {
		e.logger.Error("external availability check failed",
			"start", iv.Start, "end", iv.End, "err", err)
		return false, fmt.Errorf("%w: external calendar: %v", ErrSourceUnavailable, err)
	}
	for _, ev := range events {
		if ev.Status == model.EventCancelled {
			continue
		}
		if scope.ExcludeID != "" && ev.UID == scope.ExcludeID {
			continue
		}
		evIv, err := ev.Interval()
		if err != nil {
			continue
		}
		if iv.Overlaps(evIv) {
			return false, nil
		}
	}
	return true, nil
}
