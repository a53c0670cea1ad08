package booking

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// EventRecord projects a booking into the calendar record used for export
// and external sync.
func (s *Service) EventRecord(ctx context.Context, b model.Booking) model.EventRecord {
	rec := model.NewEventRecord(b.ID, b.Title, b.Interval)
	rec.Description = b.Description
	rec.Location = b.Location
	switch b.Status {
	case model.StatusCancelled:
		rec.Status = model.EventCancelled
	case model.StatusPending:
		rec.Status = model.EventTentative
	}
	if b.AttendeeEmail != "" {
		rec.Attendees = []model.Attendee{{Email: b.AttendeeEmail, ParticipationStatus: "accepted"}}
	}
	if s.reminds != nil {
		offsets, err := s.reminds.ReminderOffsets(ctx, b.OwnerID)
		if err != nil {
			s.logger.Warn("reminder offsets unavailable", "booking_id", b.ID, "err", err)
		}
		for _, o := range offsets {
			rec.Reminders = append(rec.Reminders, model.Reminder{MinutesBefore: int(o.Minutes())})
		}
	}
	return rec
}

func (s *Service) pushCreate(ctx context.Context, b model.Booking) Outcome {
	if s.pusher == nil {
		return Outcome{Booking: b}
	}
	extID, err := s.pusher.CreateEvent(ctx, s.EventRecord(ctx, b))
	return s.recordSync(ctx, b, extID, err)
}

func (s *Service) pushUpdate(ctx context.Context, b model.Booking) Outcome {
	err := s.pusher.UpdateEvent(ctx, b.ExternalEventID, s.EventRecord(ctx, b))
	return s.recordSync(ctx, b, b.ExternalEventID, err)
}

func (s *Service) pushDelete(ctx context.Context, b model.Booking) Outcome {
	if s.pusher == nil || b.ExternalEventID == "" {
		return Outcome{Booking: b}
	}
	err := s.pusher.DeleteEvent(ctx, b.ExternalEventID)
	extID := ""
	if err != nil {
		extID = b.ExternalEventID
	}
	return s.recordSync(ctx, b, extID, err)
}

// recordSync stores the push result. A push failure leaves the booking
// intact and marks it for retry.
func (s *Service) recordSync(ctx context.Context, b model.Booking, extID string, pushErr error) Outcome {
	status, msg := model.SyncSynced, ""
	if pushErr != nil {
		status, msg = model.SyncFailed, pushErr.Error()
		s.logger.Warn("external calendar push failed", "booking_id", b.ID, "err", pushErr)
	}
	if err := s.repo.SetSync(ctx, b.ID, extID, status, msg); err != nil {
		s.logger.Error("record sync status failed", "booking_id", b.ID, "err", err)
	}
	b.ExternalEventID = extID
	b.SyncStatus = status
	b.SyncError = msg
	return Outcome{Booking: b, SyncErr: pushErr}
}

// ErrSyncDisabled is returned by Resync when no calendar gateway is set.
var ErrSyncDisabled = errors.New("external calendar sync disabled")

// Resync repeats the external push for one booking whose last push failed.
func (s *Service) Resync(ctx context.Context, b model.Booking) error {
	if s.pusher == nil {
		return ErrSyncDisabled
	}
	var out Outcome
	switch {
	case b.Status == model.StatusCancelled:
		if b.ExternalEventID == "" {
			out = s.recordSync(ctx, b, "", nil)
		} else {
			out = s.pushDelete(ctx, b)
		}
	case b.ExternalEventID == "":
		out = s.pushCreate(ctx, b)
	default:
		out = s.pushUpdate(ctx, b)
	}
	return out.SyncErr
}

// FailedSyncs lists bookings waiting for a sync retry.
func (s *Service) FailedSyncs(ctx context.Context, limit int) ([]model.Booking, error) {
	out, err := s.repo.ListSyncFailed(ctx, limit)
	if err != nil {
		return nil, infra("list failed syncs", err)
	}
	return out, nil
}
