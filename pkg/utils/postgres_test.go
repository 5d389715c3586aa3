package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert rate: %w", &pgconn.PgError{Code: "23505", ConstraintName: "rates_tariff_prefix_active_key"})
	name, ok := UniqueViolation(err)
	if !ok || name != "rates_tariff_prefix_active_key" {
		t.Fatalf("expected unique violation on rates_tariff_prefix_active_key, got %q %v", name, ok)
	}

	if _, ok := UniqueViolation(&pgconn.PgError{Code: "23503"}); ok {
		t.Fatalf("foreign key violation must not be reported as unique")
	}
	if _, ok := UniqueViolation(errors.New("boom")); ok {
		t.Fatalf("plain error must not be reported as unique")
	}
}

func TestForeignKeyViolation(t *testing.T) {
	if !ForeignKeyViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23503"})) {
		t.Fatalf("expected foreign key violation")
	}
	if ForeignKeyViolation(errors.New("boom")) {
		t.Fatalf("plain error is not a foreign key violation")
	}
}

func TestPoolDefaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns != 25 || got.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	kept := PostgresPoolConfig{MaxOpenConns: 3}.withDefaults()
	if kept.MaxOpenConns != 3 {
		t.Fatalf("explicit value overwritten: %+v", kept)
	}
}

func TestOpenPostgres_RequiresReachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	db, err := OpenPostgres(ctx, "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		PostgresPoolConfig{PingTimeout: time.Second})
	if err == nil {
		_ = db.Close()
		t.Fatalf("expected ping failure against closed port")
	}
}

var _ TxFunc = func(ctx context.Context, tx *sql.Tx) error { return nil }
