package extcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/mo"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// Cached memoizes ListEvents in Redis. Entries are keyed by a generation
// counter that every write (and Invalidate) bumps, so stale windows are never
// read back after a change. Redis faults fall through to the wrapped gateway.
type Cached struct {
	inner  Gateway
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCached(inner Gateway, rdb *redis.Client, ttl time.Duration, prefix string, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "extcal"
	}
	return &Cached{inner: inner, rdb: rdb, ttl: ttl, prefix: prefix, logger: logger}
}

type cachedEvent struct {
	UID            string           `json:"uid"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Start          *time.Time       `json:"start,omitempty"`
	End            *time.Time       `json:"end,omitempty"`
	Location       string           `json:"location,omitempty"`
	Attendees      []model.Attendee `json:"attendees,omitempty"`
	Organizer      *model.Organizer `json:"organizer,omitempty"`
	Status         string           `json:"status"`
	Classification string           `json:"class"`
	RecurrenceRule string           `json:"rrule,omitempty"`
	Reminders      []int            `json:"reminders,omitempty"`
}

func (c *Cached) ListEvents(ctx context.Context, window interval.Interval) ([]model.EventRecord, error) {
	key, err := c.windowKey(ctx, window)
	if err != nil {
		c.logger.Warn("extcal cache generation read failed", "err", err)
		return c.inner.ListEvents(ctx, window)
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []cachedEvent
		if err := json.Unmarshal(raw, &cached); err == nil {
			return fromCache(cached), nil
		}
		c.logger.Warn("extcal cache entry corrupt", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("extcal cache read failed", "err", err)
	}

	recs, err := c.inner.ListEvents(ctx, window)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(toCache(recs)); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("extcal cache write failed", "err", err)
		}
	}
	return recs, nil
}

func (c *Cached) CreateEvent(ctx context.Context, rec model.EventRecord) (string, error) {
	id, err := c.inner.CreateEvent(ctx, rec)
	if err == nil {
		c.invalidate(ctx)
	}
	return id, err
}

func (c *Cached) UpdateEvent(ctx context.Context, externalID string, rec model.EventRecord) error {
	err := c.inner.UpdateEvent(ctx, externalID, rec)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *Cached) DeleteEvent(ctx context.Context, externalID string) error {
	err := c.inner.DeleteEvent(ctx, externalID)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// Invalidate drops every cached window by moving to a new generation.
func (c *Cached) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.generationKey()).Err()
}

func (c *Cached) invalidate(ctx context.Context) {
	if err := c.Invalidate(ctx); err != nil {
		c.logger.Warn("extcal cache invalidate failed", "err", err)
	}
}

func (c *Cached) generationKey() string {
	return c.prefix + ":gen"
}

func (c *Cached) windowKey(ctx context.Context, window interval.Interval) (string, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:events:%d:%d:%d", c.prefix, gen, window.Start.Unix(), window.End.Unix()), nil
}

func toCache(recs []model.EventRecord) []cachedEvent {
	out := make([]cachedEvent, 0, len(recs))
	for _, r := range recs {
		ce := cachedEvent{
			UID:            r.UID,
			Title:          r.Title,
			Description:    r.Description,
			Location:       r.Location,
			Attendees:      r.Attendees,
			Organizer:      r.Organizer,
			Status:         string(r.Status),
			Classification: string(r.Classification),
			RecurrenceRule: r.RecurrenceRule,
		}
		if t, ok := r.Start.Get(); ok {
			ce.Start = &t
		}
		if t, ok := r.End.Get(); ok {
			ce.End = &t
		}
		for _, rem := range r.Reminders {
			ce.Reminders = append(ce.Reminders, rem.MinutesBefore)
		}
		out = append(out, ce)
	}
	return out
}

func fromCache(in []cachedEvent) []model.EventRecord {
	out := make([]model.EventRecord, 0, len(in))
	for _, ce := range in {
		r := model.EventRecord{
			UID:            ce.UID,
			Title:          ce.Title,
			Description:    ce.Description,
			Start:          optionalTime(ce.Start),
			End:            optionalTime(ce.End),
			Location:       ce.Location,
			Attendees:      ce.Attendees,
			Organizer:      ce.Organizer,
			Status:         model.ParseEventStatus(ce.Status),
			Classification: model.ParseClassification(ce.Classification),
			RecurrenceRule: ce.RecurrenceRule,
		}
		for _, m := range ce.Reminders {
			r.Reminders = append(r.Reminders, model.Reminder{MinutesBefore: m})
		}
		out = append(out, r)
	}
	return out
}

func optionalTime(t *time.Time) mo.Option[time.Time] {
	if t == nil {
		return mo.None[time.Time]()
	}
	return mo.Some(t.UTC())
}
