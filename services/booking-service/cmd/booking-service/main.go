package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/slotsync/libs/config"
	"github.com/md-rashed-zaman/slotsync/libs/db"
	"github.com/md-rashed-zaman/slotsync/libs/httpx"
	"github.com/md-rashed-zaman/slotsync/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotsync/libs/otel"
	"github.com/md-rashed-zaman/slotsync/libs/runtime"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/exchange"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/extcal"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/ical"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/syncworker"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/migrations"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()
	if config.Bool("MIGRATE_ON_START", true) {
		if err := migrations.Apply(ctx, pool); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: config.String("REDIS_PASSWORD", "")})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	gateway, invalidator := setupExternalCalendar(rdb, logger)

	repo := storage.NewBookingRepository(pool)
	var engineOpts []availability.Option
	if gateway != nil {
		engineOpts = append(engineOpts, availability.WithExternalCalendar(gateway))
	}
	engine := availability.NewEngine(repo, logger, engineOpts...)

	offsets, err := policy.ParseOffsetMinutes(config.List("REMINDER_OFFSETS_MINUTES"))
	if err != nil {
		logger.Warn("invalid reminder offsets; using defaults", "err", err)
	}
	if len(offsets) == 0 {
		offsets = []time.Duration{24 * time.Hour, time.Hour}
	}
	schedulingProvider := mustScheduling(logger)

	outboxRepo := outbox.NewRepository(pool)
	serviceOpts := []booking.Option{
		booking.WithEvents(outboxRepo),
		booking.WithReminderPolicy(policy.NewStaticProvider(offsets)),
	}
	if gateway != nil {
		serviceOpts = append(serviceOpts, booking.WithCalendarSync(gateway))
	}
	bookingService := booking.NewService(repo, engine, logger, serviceOpts...)

	if brokers != "" {
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)

		if invalidator != nil {
			changes := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
				Brokers: brokers,
				GroupID: config.String("KAFKA_GROUP_ID", service),
				Topic:   config.String("KAFKA_EXTERNAL_CHANGES_TOPIC", consumer.DefaultTopic),
			}, consumer.InvalidateOnChange(invalidator, logger))
			go changes.Run(ctx)
		}
	}

	if gateway != nil {
		retryEvery, err := config.Duration("SYNC_RETRY_INTERVAL", time.Minute)
		if err != nil {
			panic(err)
		}
		go syncworker.New(bookingService, logger, syncworker.Config{Interval: retryEvery}).Run(ctx)
	}

	if err := startGrpcServer(ctx, logger); err != nil {
		logger.Error("grpc server init failed", "err", err)
	}

	exchangeService := exchange.NewService(bookingService, gateway, ical.NewCodec(logger), logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	handlers.Register(mux,
		handlers.NewBookingHandler(bookingService, logger),
		handlers.NewSlotHandler(engine, schedulingProvider, logger),
		handlers.NewCalendarHandler(exchangeService, logger),
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		rateLimit(rdb, logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader, "X-Skipped-Events"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(2<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// setupExternalCalendar returns a nil gateway when CalDAV is not configured.
// The invalidator is only set when results are cached in Redis.
func setupExternalCalendar(rdb *redis.Client, logger *slog.Logger) (extcal.Gateway, consumer.Invalidator) {
	timeout, err := config.Duration("CALDAV_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}
	caldav, err := extcal.NewCalDAV(extcal.CalDAVConfig{
		Endpoint:     config.String("CALDAV_ENDPOINT", ""),
		CalendarPath: config.String("CALDAV_CALENDAR_PATH", ""),
		Username:     config.String("CALDAV_USERNAME", ""),
		Password:     config.String("CALDAV_PASSWORD", ""),
		Timeout:      timeout,
	}, logger)
	if err != nil {
		if !errors.Is(err, extcal.ErrNotConfigured) {
			logger.Error("caldav client init failed; external calendar disabled", "err", err)
		}
		return nil, nil
	}
	if rdb == nil {
		return caldav, nil
	}
	ttl, err := config.Duration("EXTERNAL_CACHE_TTL", time.Minute)
	if err != nil {
		panic(err)
	}
	cached := extcal.NewCached(caldav, rdb, ttl, "extcal", logger)
	return cached, cached
}

func mustScheduling(logger *slog.Logger) scheduling.Provider {
	weekdays, err := scheduling.ParseWeekdays(config.List("WORKDAYS"))
	if err != nil {
		panic(err)
	}
	slotMinutes, err := config.Int("SLOT_MINUTES", 30)
	if err != nil {
		panic(err)
	}
	provider, err := scheduling.NewStaticProvider(scheduling.StaticConfig{
		WorkStart:   config.String("WORKDAY_START", "09:00"),
		WorkEnd:     config.String("WORKDAY_END", "17:00"),
		SlotMinutes: slotMinutes,
		Timezone:    config.String("WORKDAY_TIMEZONE", ""),
		Weekdays:    weekdays,
	})
	if err != nil {
		logger.Error("scheduling config invalid", "err", err)
		panic(err)
	}
	return provider
}

func rateLimit(rdb *redis.Client, logger *slog.Logger) httpx.Middleware {
	limit, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "booking:rl").Middleware(logger, true)
	}
	if strings.EqualFold(config.String("RATE_LIMIT_MODE", "memory"), "off") {
		return func(next http.Handler) http.Handler { return next }
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}
