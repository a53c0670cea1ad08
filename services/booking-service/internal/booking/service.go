// Package booking owns the reservation lifecycle: it is the only place that
// changes a booking's status, interval or external event id.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/slotsync/libs/runtime"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/policy"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Repository is the persistence gateway. WithTx carries the transaction in
// the returned context; every other method joins it when present.
type Repository interface {
	availability.BookingFinder
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Get(ctx context.Context, id string) (model.Booking, error)
	Create(ctx context.Context, b model.Booking) error
	Update(ctx context.Context, b model.Booking) error
	SoftCancel(ctx context.Context, id, reason string, at time.Time) error
	Complete(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	SetSync(ctx context.Context, id, externalID string, status model.SyncStatus, syncErr string) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Booking, error)
	ListSyncFailed(ctx context.Context, limit int) ([]model.Booking, error)
}

// CalendarPusher mirrors bookings into an external calendar.
type CalendarPusher interface {
	CreateEvent(ctx context.Context, rec model.EventRecord) (string, error)
	UpdateEvent(ctx context.Context, externalID string, rec model.EventRecord) error
	DeleteEvent(ctx context.Context, externalID string) error
}

// EventWriter records a lifecycle event in the current transaction.
type EventWriter interface {
	Write(ctx context.Context, eventType string, b model.Booking) error
}

type Service struct {
	repo    Repository
	engine  *availability.Engine
	logger  *slog.Logger
	clock   clock.Clock
	pusher  CalendarPusher
	events  EventWriter
	reminds policy.Provider
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithCalendarSync(p CalendarPusher) Option {
	return func(s *Service) { s.pusher = p }
}

func WithEvents(w EventWriter) Option {
	return func(s *Service) { s.events = w }
}

func WithReminderPolicy(p policy.Provider) Option {
	return func(s *Service) { s.reminds = p }
}

func NewService(repo Repository, engine *availability.Engine, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = runtime.DiscardLogger()
	}
	s := &Service{
		repo:   repo,
		engine: engine,
		logger: logger,
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome carries the stored booking plus the result of the external push.
// SyncErr never undoes the local change.
type Outcome struct {
	Booking model.Booking
	SyncErr error
}

type CreateInput struct {
	OwnerID       string
	ProviderID    string
	Title         string
	Description   string
	Location      string
	AttendeeEmail string
	Start         time.Time
	End           time.Time
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Outcome, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.ProviderID = strings.TrimSpace(in.ProviderID)
	in.Title = strings.TrimSpace(in.Title)
	in.AttendeeEmail = strings.TrimSpace(in.AttendeeEmail)

	now := s.clock.Now().UTC()
	verr := &ValidationError{}
	if in.OwnerID == "" {
		verr.Add("owner_id is required")
	}
	if in.Title == "" {
		verr.Add("title is required")
	}
	iv := validateInterval(verr, in.Start, in.End)
	if !in.Start.IsZero() && in.Start.Before(now) {
		verr.Add("start_time must not be in the past")
	}
	validateEmail(verr, in.AttendeeEmail)
	if err := verr.OrNil(); err != nil {
		return Outcome{}, err
	}

	scope := availability.Scope{ProviderID: in.ProviderID}
	if err := s.requireAvailable(ctx, iv, scope); err != nil {
		return Outcome{}, err
	}

	b := model.Booking{
		ID:            uuid.NewString(),
		OwnerID:       in.OwnerID,
		ProviderID:    in.ProviderID,
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		AttendeeEmail: in.AttendeeEmail,
		Interval:      iv,
		Status:        model.StatusConfirmed,
		SyncStatus:    model.SyncNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.engine.CheckLocal(ctx, iv, scope)
		if err != nil {
			return unavailable(err)
		}
		if !ok {
			return ErrUnavailable
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		return s.emit(ctx, EventCreated, b)
	})
	if err != nil {
		return Outcome{}, s.fail("create booking", err)
	}
	s.logger.Info("booking created", "booking_id", b.ID, "owner_id", b.OwnerID, "provider_id", b.ProviderID)

	return s.pushCreate(ctx, b), nil
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	ID            string
	Title         *string
	Description   *string
	Location      *string
	AttendeeEmail *string
	Start         *time.Time
	End           *time.Time
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (Outcome, error) {
	current, err := s.Get(ctx, in.ID)
	if err != nil {
		return Outcome{}, err
	}
	if current.Status.Terminal() {
		return Outcome{}, ErrNotModifiable
	}

	next, err := applyUpdate(current, in)
	if err != nil {
		return Outcome{}, err
	}
	moved := !next.Interval.Start.Equal(current.Interval.Start) || !next.Interval.End.Equal(current.Interval.End)
	scope := availability.Scope{ProviderID: current.ProviderID, ExcludeID: current.ID}
	if moved {
		if err := s.requireAvailable(ctx, next.Interval, scope); err != nil {
			return Outcome{}, err
		}
	}

	next.UpdatedAt = s.clock.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		fresh, err := s.repo.Get(ctx, in.ID)
		if err != nil {
			return err
		}
		if fresh.Status.Terminal() {
			return ErrNotModifiable
		}
		if moved {
			ok, err := s.engine.CheckLocal(ctx, next.Interval, scope)
			if err != nil {
				return unavailable(err)
			}
			if !ok {
				return ErrUnavailable
			}
		}
		next.ExternalEventID = fresh.ExternalEventID
		next.SyncStatus = fresh.SyncStatus
		if err := s.repo.Update(ctx, next); err != nil {
			return err
		}
		return s.emit(ctx, EventUpdated, next)
	})
	if err != nil {
		return Outcome{}, s.fail("update booking", err)
	}
	s.logger.Info("booking updated", "booking_id", next.ID, "moved", moved)

	if s.pusher == nil {
		return Outcome{Booking: next}, nil
	}
	if next.ExternalEventID == "" {
		return s.pushCreate(ctx, next), nil
	}
	return s.pushUpdate(ctx, next), nil
}

// Cancel is idempotent for already cancelled bookings.
func (s *Service) Cancel(ctx context.Context, id, reason string) (Outcome, error) {
	var cancelled model.Booking
	already := false
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == model.StatusCancelled {
			cancelled, already = b, true
			return nil
		}
		if !CanTransition(b.Status, model.StatusCancelled) {
			return ErrNotModifiable
		}
		now := s.clock.Now().UTC()
		reason = strings.TrimSpace(reason)
		if err := s.repo.SoftCancel(ctx, id, reason, now); err != nil {
			return err
		}
		b.Status = model.StatusCancelled
		b.CancellationReason = reason
		b.CancelledAt = &now
		b.UpdatedAt = now
		cancelled = b
		return s.emit(ctx, EventCancelled, b)
	})
	if err != nil {
		return Outcome{}, s.fail("cancel booking", err)
	}
	if already {
		return Outcome{Booking: cancelled}, nil
	}
	s.logger.Info("booking cancelled", "booking_id", id)
	return s.pushDelete(ctx, cancelled), nil
}

func (s *Service) Complete(ctx context.Context, id string) (model.Booking, error) {
	var completed model.Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == model.StatusCompleted {
			completed = b
			return nil
		}
		if !CanTransition(b.Status, model.StatusCompleted) {
			return ErrNotModifiable
		}
		now := s.clock.Now().UTC()
		if err := s.repo.Complete(ctx, id, now); err != nil {
			return err
		}
		b.Status = model.StatusCompleted
		b.UpdatedAt = now
		completed = b
		return s.emit(ctx, EventCompleted, b)
	})
	if err != nil {
		return model.Booking{}, s.fail("complete booking", err)
	}
	return completed, nil
}

// Delete cancels a live booking first so its external event is released,
// then removes the row.
func (s *Service) Delete(ctx context.Context, id string) (Outcome, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if !b.Status.Terminal() {
		if out, err = s.Cancel(ctx, id, "deleted"); err != nil {
			return Outcome{}, err
		}
		b = out.Booking
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.emit(ctx, EventDeleted, b)
	})
	if err != nil {
		return Outcome{}, s.fail("delete booking", err)
	}
	s.logger.Info("booking deleted", "booking_id", id)
	return Outcome{Booking: b, SyncErr: out.SyncErr}, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return model.Booking{}, &ValidationError{Violations: []string{"id is required"}}
	}
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Booking{}, s.fail("get booking", err)
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, ownerID string, limit int) ([]model.Booking, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &ValidationError{Violations: []string{"owner_id is required"}}
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	out, err := s.repo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, s.fail("list bookings", err)
	}
	return out, nil
}

func (s *Service) requireAvailable(ctx context.Context, iv interval.Interval, scope availability.Scope) error {
	ok, err := s.engine.IsAvailable(ctx, iv, scope)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return ErrUnavailable
	}
	return nil
}

// unavailable keeps a source fault visible while still reading as a
// conflict to callers that only check ErrUnavailable.
func unavailable(err error) error {
	if errors.Is(err, availability.ErrSourceUnavailable) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}

func (s *Service) emit(ctx context.Context, eventType string, b model.Booking) error {
	if s.events == nil {
		return nil
	}
	return s.events.Write(ctx, eventType, b)
}

func (s *Service) fail(op string, err error) error {
	err = infra(op, err)
	if errors.Is(err, ErrInfrastructure) || errors.Is(err, availability.ErrSourceUnavailable) {
		s.logger.Error(op+" failed", "err", err)
	}
	return err
}

func validateInterval(verr *ValidationError, start, end time.Time) interval.Interval {
	if start.IsZero() {
		verr.Add("start_time is required")
	}
	if end.IsZero() {
		verr.Add("end_time is required")
	}
	if start.IsZero() || end.IsZero() {
		return interval.Interval{}
	}
	iv, err := interval.New(start.UTC(), end.UTC())
	if err != nil {
		verr.Add("end_time must be after start_time")
	}
	return iv
}

func validateEmail(verr *ValidationError, email string) {
	if email == "" {
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		verr.Add("attendee_email is not a valid address")
	}
}

func applyUpdate(b model.Booking, in UpdateInput) (model.Booking, error) {
	verr := &ValidationError{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			verr.Add("title must not be empty")
		}
		b.Title = title
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Location != nil {
		b.Location = *in.Location
	}
	if in.AttendeeEmail != nil {
		email := strings.TrimSpace(*in.AttendeeEmail)
		validateEmail(verr, email)
		b.AttendeeEmail = email
	}
	if in.Start != nil || in.End != nil {
		start, end := b.Interval.Start, b.Interval.End
		if in.Start != nil {
			start = *in.Start
		}
		if in.End != nil {
			end = *in.End
		}
		b.Interval = validateInterval(verr, start, end)
	}
	if err := verr.OrNil(); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}
