package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotsync/libs/db"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

const bookingColumns = `id, owner_id, provider_id, title, description, location, attendee_email,
	start_time, end_time, status, external_event_id, sync_status, sync_error,
	cancellation_reason, cancelled_at, created_at, updated_at`

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// WithTx runs fn in a serializable transaction. Serialization failures are
// retried by the pool; only exclusion-constraint violations surface as
// booking.ErrUnavailable.
func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return mapErr(r.pool.WithTx(ctx, db.Serializable, fn))
}

// FindOverlapping uses the same half-open predicate as interval.Overlaps,
// written as a range overlap so it can use the exclusion constraint's index.
func (r *BookingRepository) FindOverlapping(ctx context.Context, iv interval.Interval, providerID, excludeID string) ([]model.Booking, error) {
	rows, err := r.pool.Conn(ctx).Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status <> 'cancelled'
			AND tstzrange(start_time, end_time, '[)') && tstzrange($1, $2, '[)')
			AND ($3 = '' OR provider_id = $3)
			AND ($4 = '' OR id::text <> $4)
		ORDER BY start_time ASC
	`, iv.Start, iv.End, providerID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}
	return collect(rows)
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id::text = $1`
	if db.TxFromContext(ctx) != nil {
		q += ` FOR UPDATE`
	}
	b, err := scanBooking(r.pool.Conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return model.Booking{}, mapErr(err)
	}
	return b, nil
}

func (r *BookingRepository) Create(ctx context.Context, b model.Booking) error {
	_, err := r.pool.Conn(ctx).Exec(ctx, `
		INSERT INTO bookings
			(id, owner_id, provider_id, title, description, location, attendee_email,
			 start_time, end_time, status, external_event_id, sync_status, sync_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, b.ID, b.OwnerID, b.ProviderID, b.Title, b.Description, b.Location, b.AttendeeEmail,
		b.Interval.Start, b.Interval.End, string(b.Status), b.ExternalEventID, string(syncOrNone(b.SyncStatus)), b.SyncError,
		b.CreatedAt, b.UpdatedAt)
	return mapErr(err)
}

func (r *BookingRepository) Update(ctx context.Context, b model.Booking) error {
	tag, err := r.pool.Conn(ctx).Exec(ctx, `
		UPDATE bookings
		SET title = $2,
			description = $3,
			location = $4,
			attendee_email = $5,
			start_time = $6,
			end_time = $7,
			updated_at = $8
		WHERE id::text = $1
	`, b.ID, b.Title, b.Description, b.Location, b.AttendeeEmail, b.Interval.Start, b.Interval.End, b.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) SoftCancel(ctx context.Context, id, reason string, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = $2,
			cancellation_reason = $3,
			updated_at = $2
		WHERE id::text = $1
	`, id, at, reason)
}

func (r *BookingRepository) Complete(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE bookings
		SET status = 'completed',
			updated_at = $2
		WHERE id::text = $1
	`, id, at)
}

func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM bookings WHERE id::text = $1`, id)
}

func (r *BookingRepository) SetSync(ctx context.Context, id, externalID string, status model.SyncStatus, syncErr string) error {
	return r.execOne(ctx, `
		UPDATE bookings
		SET external_event_id = $2,
			sync_status = $3,
			sync_error = $4,
			updated_at = now()
		WHERE id::text = $1
	`, id, externalID, string(syncOrNone(status)), syncErr)
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Booking, error) {
	rows, err := r.pool.Conn(ctx).Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE owner_id = $1
		ORDER BY start_time ASC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	return collect(rows)
}

func (r *BookingRepository) ListSyncFailed(ctx context.Context, limit int) ([]model.Booking, error) {
	rows, err := r.pool.Conn(ctx).Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE sync_status = 'failed'
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync failed: %w", err)
	}
	return collect(rows)
}

func (r *BookingRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b          model.Booking
		status     string
		syncStatus string
	)
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.ProviderID,
		&b.Title,
		&b.Description,
		&b.Location,
		&b.AttendeeEmail,
		&b.Interval.Start,
		&b.Interval.End,
		&status,
		&b.ExternalEventID,
		&syncStatus,
		&b.SyncError,
		&b.CancellationReason,
		&b.CancelledAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	b.SyncStatus = model.SyncStatus(syncStatus)
	b.Interval = b.Interval.UTC()
	return b, nil
}

func syncOrNone(s model.SyncStatus) model.SyncStatus {
	if s == "" {
		return model.SyncNone
	}
	return s
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return booking.ErrNotFound
	case IsConflict(err):
		return fmt.Errorf("%w: %w", booking.ErrUnavailable, err)
	default:
		return err
	}
}

func IsConflict(err error) bool {
	return db.HasCode(err, db.CodeExclusionViolation)
}

// IsNotFound also covers ids that are not valid UUIDs.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || db.HasCode(err, db.CodeInvalidTextRepresentation)
}
