// Package exchange moves bookings and external events in and out of
// iCalendar text.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/extcal"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/ical"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// Bookings is the slice of the booking lifecycle the exchange needs.
type Bookings interface {
	List(ctx context.Context, ownerID string, limit int) ([]model.Booking, error)
	EventRecord(ctx context.Context, b model.Booking) model.EventRecord
	Create(ctx context.Context, in booking.CreateInput) (booking.Outcome, error)
}

type Service struct {
	bookings Bookings
	external extcal.Gateway
	codec    *ical.Codec
	logger   *slog.Logger
}

// NewService builds the exchange. external may be nil when no calendar is
// configured.
func NewService(bookings Bookings, external extcal.Gateway, codec *ical.Codec, logger *slog.Logger) *Service {
	return &Service{bookings: bookings, external: external, codec: codec, logger: logger}
}

// ExportBookings encodes the owner's live bookings.
func (s *Service) ExportBookings(ctx context.Context, ownerID string) (ical.EncodeResult, error) {
	list, err := s.bookings.List(ctx, ownerID, booking.MaxListLimit)
	if err != nil {
		return ical.EncodeResult{}, err
	}
	records := make([]model.EventRecord, 0, len(list))
	for _, b := range list {
		if b.Status == model.StatusCancelled {
			continue
		}
		records = append(records, s.bookings.EventRecord(ctx, b))
	}
	res := s.codec.Encode(records)
	s.logger.Info("bookings exported", "owner_id", ownerID, "events", len(records)-len(res.Skipped), "skipped", len(res.Skipped))
	return res, nil
}

// ExportExternal encodes the external calendar's events in window.
func (s *Service) ExportExternal(ctx context.Context, window interval.Interval) (ical.EncodeResult, error) {
	if s.external == nil {
		return ical.EncodeResult{}, extcal.ErrNotConfigured
	}
	events, err := s.external.ListEvents(ctx, window)
	if err != nil {
		return ical.EncodeResult{}, fmt.Errorf("%w: list external events: %w", booking.ErrInfrastructure, err)
	}
	return s.codec.Encode(events), nil
}

type ImportSkip struct {
	Index  int    `json:"index"`
	UID    string `json:"uid,omitempty"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created []model.Booking
	Skipped []ImportSkip
}

// Import creates one booking per decoded event. Rejected records are
// reported and the batch continues; an infrastructure fault stops it and
// returns what was created so far.
func (s *Service) Import(ctx context.Context, ownerID, providerID, text string) (ImportResult, error) {
	var res ImportResult
	for i, rec := range s.codec.Decode(text) {
		skip := func(reason string) {
			res.Skipped = append(res.Skipped, ImportSkip{Index: i, UID: rec.UID, Reason: reason})
		}
		start, okStart := rec.Start.Get()
		end, okEnd := rec.End.Get()
		switch {
		case !okStart || !okEnd:
			skip("missing or unparseable start/end")
			continue
		case rec.Status == model.EventCancelled:
			skip("event is cancelled")
			continue
		}

		in := booking.CreateInput{
			OwnerID:     ownerID,
			ProviderID:  providerID,
			Title:       rec.Title,
			Description: rec.Description,
			Location:    rec.Location,
			Start:       start,
			End:         end,
		}
		if emails := rec.AttendeeEmails(); len(emails) > 0 {
			in.AttendeeEmail = emails[0]
		}
		out, err := s.bookings.Create(ctx, in)
		if err != nil {
			if errors.Is(err, booking.ErrInfrastructure) {
				return res, err
			}
			skip(err.Error())
			continue
		}
		if out.SyncErr != nil {
			s.logger.Warn("imported booking not synced", "booking_id", out.Booking.ID, "err", out.SyncErr)
		}
		res.Created = append(res.Created, out.Booking)
	}
	s.logger.Info("calendar imported", "owner_id", ownerID, "created", len(res.Created), "skipped", len(res.Skipped))
	return res, nil
}
