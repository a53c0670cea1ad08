package extcal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	otelx "github.com/md-rashed-zaman/slotsync/libs/otel"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

const defaultProductID = "-//slotsync//booking-service//EN"

type CalDAVConfig struct {
	Endpoint     string
	CalendarPath string
	Username     string
	Password     string
	Timeout      time.Duration
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
}

// CalDAV is a Gateway backed by one CalDAV calendar collection.
type CalDAV struct {
	client       *caldav.Client
	calendarPath string
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

func NewCalDAV(cfg CalDAVConfig, logger *slog.Logger) (*CalDAV, error) {
	if cfg.Endpoint == "" || cfg.CalendarPath == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	var httpClient webdav.HTTPClient = hc
	if cfg.Username != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(hc, cfg.Username, cfg.Password)
	}
	client, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("caldav client: %w", err)
	}
	return &CalDAV{
		client:       client,
		calendarPath: strings.TrimSuffix(cfg.CalendarPath, "/") + "/",
		logger:       logger,
		tracer:       otelx.Tracer("extcal"),
		now:          time.Now,
	}, nil
}

func (c *CalDAV) ListEvents(ctx context.Context, window interval.Interval) (recs []model.EventRecord, err error) {
	ctx, span := c.tracer.Start(ctx, "caldav.list_events", trace.WithAttributes(
		attribute.String("caldav.calendar", c.calendarPath),
		attribute.String("window.start", window.Start.UTC().Format(time.RFC3339)),
		attribute.String("window.end", window.End.UTC().Format(time.RFC3339)),
	))
	defer func() { otelx.EndSpan(span, err) }()

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{{Name: "VEVENT", AllProps: true, AllComps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: window.Start.UTC(),
				End:   window.End.UTC(),
			}},
		},
	}
	objects, err := c.client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("caldav query: %w", err)
	}
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			recs = append(recs, fromEvent(ev))
		}
	}
	span.SetAttributes(attribute.Int("caldav.events", len(recs)))
	return recs, nil
}

// CreateEvent stores the record as <calendar>/<uid>.ics and returns the
// object path as external id.
func (c *CalDAV) CreateEvent(ctx context.Context, rec model.EventRecord) (id string, err error) {
	ctx, span := c.tracer.Start(ctx, "caldav.create_event")
	defer func() { otelx.EndSpan(span, err) }()

	if rec.UID == "" {
		rec.UID = uuid.NewString()
	}
	target := path.Join(c.calendarPath, rec.UID+".ics")
	obj, err := c.client.PutCalendarObject(ctx, target, toCalendar(rec, defaultProductID, c.now()))
	if err != nil {
		return "", fmt.Errorf("caldav put: %w", err)
	}
	if obj != nil && obj.Path != "" {
		target = obj.Path
	}
	c.logger.Debug("caldav event created", "uid", rec.UID, "path", target)
	return target, nil
}

func (c *CalDAV) UpdateEvent(ctx context.Context, externalID string, rec model.EventRecord) (err error) {
	ctx, span := c.tracer.Start(ctx, "caldav.update_event", trace.WithAttributes(attribute.String("caldav.path", externalID)))
	defer func() { otelx.EndSpan(span, err) }()

	if _, err := c.client.PutCalendarObject(ctx, externalID, toCalendar(rec, defaultProductID, c.now())); err != nil {
		return fmt.Errorf("caldav put: %w", err)
	}
	return nil
}

func (c *CalDAV) DeleteEvent(ctx context.Context, externalID string) (err error) {
	ctx, span := c.tracer.Start(ctx, "caldav.delete_event", trace.WithAttributes(attribute.String("caldav.path", externalID)))
	defer func() { otelx.EndSpan(span, err) }()

	if err := c.client.RemoveAll(ctx, externalID); err != nil {
		return fmt.Errorf("caldav delete: %w", err)
	}
	return nil
}
