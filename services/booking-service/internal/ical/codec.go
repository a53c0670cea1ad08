// Package ical encodes and decodes EventRecords as RFC 5545 iCalendar text.
//
// Encoding skips malformed records instead of failing the batch. Decoding is
// a single-pass line-oriented state machine that tolerates unknown
// properties, repeated properties and unparseable timestamps.
package ical

import (
	"log/slog"

	"github.com/md-rashed-zaman/slotsync/libs/runtime"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/clock"
)

const (
	DefaultProductID = "-//slotsync//booking-service//EN"
	// UntitledEvent replaces a missing SUMMARY on decode.
	UntitledEvent = "Untitled Event"
	ContentType   = "text/calendar; charset=utf-8"

	componentCalendar = "VCALENDAR"
	componentEvent    = "VEVENT"
	componentAlarm    = "VALARM"
)

type Codec struct {
	logger *slog.Logger
	prodID string
	clock  clock.Clock
}

type Option func(*Codec)

func WithProductID(id string) Option {
	return func(c *Codec) {
		if id != "" {
			c.prodID = id
		}
	}
}

// WithClock controls DTSTAMP.
func WithClock(clk clock.Clock) Option {
	return func(c *Codec) {
		if clk != nil {
			c.clock = clk
		}
	}
}

func NewCodec(logger *slog.Logger, opts ...Option) *Codec {
	if logger == nil {
		logger = runtime.DiscardLogger()
	}
	c := &Codec{
		logger: logger,
		prodID: DefaultProductID,
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
