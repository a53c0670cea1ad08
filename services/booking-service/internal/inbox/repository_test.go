package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/testutil"
)

func TestRecordDeduplicates(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	ok, err := repo.Record(ctx, "evt-1", "calendar.external.changed.v1")
	if err != nil || !ok {
		t.Fatalf("first record: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Record(ctx, "evt-1", "calendar.external.changed.v1")
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if ok {
		t.Fatal("duplicate event recorded twice")
	}
}

func TestRecordRolledBackWithTx(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	handlerErr := errors.New("cache down")

	err := repo.WithTx(ctx, func(ctx context.Context) error {
		ok, err := repo.Record(ctx, "evt-rollback", "calendar.external.changed.v1")
		if err != nil || !ok {
			t.Fatalf("record in tx: ok=%v err=%v", ok, err)
		}
		return handlerErr
	})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error, got %v", err)
	}

	err = repo.WithTx(ctx, func(ctx context.Context) error {
		ok, err := repo.Record(ctx, "evt-rollback", "calendar.external.changed.v1")
		if err != nil {
			return err
		}
		if !ok {
			t.Fatal("event still marked seen after rollback")
		}
		ok, err = repo.Record(ctx, "evt-rollback", "calendar.external.changed.v1")
		if err != nil || ok {
			t.Fatalf("duplicate inside tx: ok=%v err=%v", ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second tx: %v", err)
	}
}
