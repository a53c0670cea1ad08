package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/testutil"
)

func TestMapErr(t *testing.T) {
	if !errors.Is(mapErr(pgx.ErrNoRows), booking.ErrNotFound) {
		t.Fatalf("expected ErrNoRows to map to ErrNotFound")
	}
	if !errors.Is(mapErr(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23P01"})), booking.ErrUnavailable) {
		t.Fatalf("expected exclusion violation to map to ErrUnavailable")
	}
	if errors.Is(mapErr(&pgconn.PgError{Code: "40001"}), booking.ErrUnavailable) {
		t.Fatalf("expected serialization failure not to read as a conflict")
	}
	other := errors.New("boom")
	if mapErr(other) != other {
		t.Fatalf("expected unrelated error to pass through")
	}
	if mapErr(nil) != nil {
		t.Fatalf("expected nil")
	}
}

func newBooking(provider string, start time.Time, d time.Duration) model.Booking {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return model.Booking{
		ID:         uuid.NewString(),
		OwnerID:    "owner-1",
		ProviderID: provider,
		Title:      "Checkup",
		Interval:   interval.Interval{Start: start, End: start.Add(d)},
		Status:     model.StatusConfirmed,
		SyncStatus: model.SyncNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestBookingRepository_Postgres(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	ctx := context.Background()
	base := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)

	first := newBooking("p1", base, time.Hour)
	if err := repo.WithTx(ctx, func(ctx context.Context) error { return repo.Create(ctx, first) }); err != nil {
		t.Fatalf("create: %v", err)
	}

	overlap := newBooking("p1", base.Add(30*time.Minute), time.Hour)
	err := repo.WithTx(ctx, func(ctx context.Context) error { return repo.Create(ctx, overlap) })
	if !errors.Is(err, booking.ErrUnavailable) {
		t.Fatalf("expected exclusion constraint to reject overlap, got %v", err)
	}

	touching := newBooking("p1", base.Add(time.Hour), time.Hour)
	if err := repo.Create(ctx, touching); err != nil {
		t.Fatalf("touching booking: %v", err)
	}

	found, err := repo.FindOverlapping(ctx, interval.Interval{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}, "p1", "")
	if err != nil || len(found) != 2 {
		t.Fatalf("expected 2 overlapping, got %d %v", len(found), err)
	}
	found, _ = repo.FindOverlapping(ctx, first.Interval, "p1", first.ID)
	if len(found) != 0 {
		t.Fatalf("expected excluded booking to be skipped, got %d", len(found))
	}

	at := base.Add(-time.Hour)
	if err := repo.SoftCancel(ctx, first.ID, "sick", at); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err := repo.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusCancelled || got.CancelledAt == nil || got.CancellationReason != "sick" {
		t.Fatalf("unexpected cancelled booking %+v", got)
	}
	if err := repo.Create(ctx, newBooking("p1", base, time.Hour)); err != nil {
		t.Fatalf("expected cancelled booking to release interval: %v", err)
	}

	if err := repo.SetSync(ctx, touching.ID, "ext-9", model.SyncFailed, "timeout"); err != nil {
		t.Fatalf("set sync: %v", err)
	}
	failed, err := repo.ListSyncFailed(ctx, 10)
	if err != nil || len(failed) != 1 || failed[0].ExternalEventID != "ext-9" {
		t.Fatalf("unexpected failed syncs %+v %v", failed, err)
	}

	list, err := repo.ListByOwner(ctx, "owner-1", 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("expected 3 bookings, got %d %v", len(list), err)
	}

	if err := repo.Delete(ctx, touching.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, touching.ID); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, "not-a-uuid"); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
	if err := repo.Complete(ctx, uuid.NewString(), base); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on complete, got %v", err)
	}
}
