package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

type fakeRepo struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	failAll  error
	txErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: map[string]model.Booking{}}
}

func (r *fakeRepo) snapshot() map[string]model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]model.Booking, len(r.bookings))
	for k, v := range r.bookings {
		cp[k] = v
	}
	return cp
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.failAll != nil {
		return r.failAll
	}
	if r.txErr != nil {
		return r.txErr
	}
	before := r.snapshot()
	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.bookings = before
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeRepo) FindOverlapping(_ context.Context, iv interval.Interval, providerID, excludeID string) ([]model.Booking, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Booking
	for _, b := range r.bookings {
		if !b.Blocks() || b.ID == excludeID {
			continue
		}
		if providerID != "" && b.ProviderID != providerID {
			continue
		}
		if b.Interval.Overlaps(iv) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (model.Booking, error) {
	if r.failAll != nil {
		return model.Booking{}, r.failAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *fakeRepo) Create(_ context.Context, b model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return fmt.Errorf("duplicate id %s", b.ID)
	}
	r.bookings[b.ID] = b
	return nil
}

func (r *fakeRepo) Update(_ context.Context, b model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	r.bookings[b.ID] = b
	return nil
}

func (r *fakeRepo) SoftCancel(_ context.Context, id, reason string, at time.Time) error {
	return r.mutate(id, func(b *model.Booking) {
		b.Status = model.StatusCancelled
		b.CancellationReason = reason
		b.CancelledAt = &at
		b.UpdatedAt = at
	})
}

func (r *fakeRepo) Complete(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(b *model.Booking) {
		b.Status = model.StatusCompleted
		b.UpdatedAt = at
	})
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *fakeRepo) SetSync(_ context.Context, id, externalID string, status model.SyncStatus, syncErr string) error {
	return r.mutate(id, func(b *model.Booking) {
		b.ExternalEventID = externalID
		b.SyncStatus = status
		b.SyncError = syncErr
	})
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerID string, limit int) ([]model.Booking, error) {
	return r.list(limit, func(b model.Booking) bool { return b.OwnerID == ownerID })
}

func (r *fakeRepo) ListSyncFailed(_ context.Context, limit int) ([]model.Booking, error) {
	return r.list(limit, func(b model.Booking) bool { return b.SyncStatus == model.SyncFailed })
}

func (r *fakeRepo) list(limit int, keep func(model.Booking) bool) ([]model.Booking, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) mutate(id string, fn func(*model.Booking)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	fn(&b)
	r.bookings[id] = b
	return nil
}

type fakePusher struct {
	created map[string]model.EventRecord
	deleted []string
	updated []string
	err     error
	seq     int
}

func newFakePusher() *fakePusher {
	return &fakePusher{created: map[string]model.EventRecord{}}
}

func (p *fakePusher) CreateEvent(_ context.Context, rec model.EventRecord) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.seq++
	id := fmt.Sprintf("ext-%d", p.seq)
	p.created[id] = rec
	return id, nil
}

func (p *fakePusher) UpdateEvent(_ context.Context, externalID string, rec model.EventRecord) error {
	if p.err != nil {
		return p.err
	}
	p.updated = append(p.updated, externalID)
	p.created[externalID] = rec
	return nil
}

func (p *fakePusher) DeleteEvent(_ context.Context, externalID string) error {
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, externalID)
	delete(p.created, externalID)
	return nil
}

// ListEvents lets the pusher double as the busy source, as the CalDAV
// gateway does in production.
func (p *fakePusher) ListEvents(context.Context, interval.Interval) ([]model.EventRecord, error) {
	out := make([]model.EventRecord, 0, len(p.created))
	for _, rec := range p.created {
		out = append(out, rec)
	}
	return out, nil
}

type fakeBusy struct {
	events []model.EventRecord
	err    error
}

func (f *fakeBusy) ListEvents(context.Context, interval.Interval) ([]model.EventRecord, error) {
	return f.events, f.err
}

type recordedEvent struct {
	Type      string
	BookingID string
}

type fakeEvents struct {
	events []recordedEvent
}

func (f *fakeEvents) Write(_ context.Context, eventType string, b model.Booking) error {
	f.events = append(f.events, recordedEvent{Type: eventType, BookingID: b.ID})
	return nil
}

var errStoreDown = errors.New("store down")

func someTime(t time.Time) mo.Option[time.Time] {
	return mo.Some(t)
}
