package migrations

import (
	"strings"
	"testing"
)

func TestNamesOrdered(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %v", names)
		}
	}
}

func TestBookingsSchemaCarriesExclusionConstraint(t *testing.T) {
	body, err := migrationFiles.ReadFile("0001_bookings.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sql := string(body)
	for _, want := range []string{"btree_gist", "EXCLUDE USING gist", "'[)'", "status <> 'cancelled'"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected schema to contain %q", want)
		}
	}
}
