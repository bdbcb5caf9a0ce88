package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "entities.db"),
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(nil) })
	return db
}

func TestRecordRepository_InsertAndList(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	repo := NewRecordRepository(db, "entities", nil).(*recordRepository)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	// idempotent
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable again: %v", err)
	}

	first := []string{"a.pdf", "1 Main St", "Bob", "Acme", "x@acme.io", "INV-001", "2024-03-01", "555", "$10"}
	second := []string{"b.jpg", "Not found", "Not found", "Not found", "Not found", "INV-002", "Not found", "Not found", "Not found"}
	for _, row := range [][]string{first, second} {
		if _, err := repo.Insert(ctx, row); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d", len(got))
	}
	if diff := cmp.Diff(first[1:], got[0].Values); diff != "" || got[0].Filename != "a.pdf" {
		t.Fatalf("first row mismatch (-want +got):\n%s", diff)
	}
	if got[1].Filename != "b.jpg" || got[1].Values[4] != "INV-002" {
		t.Fatalf("second row = %+v", got[1])
	}
	if !got[0].CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("created_at = %v", got[0].CreatedAt)
	}

	limited, err := repo.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(1) = %d rows, %v", len(limited), err)
	}
}

func TestRecordRepository_InsertRejectsShortRow(t *testing.T) {
	db := openSQLite(t)
	repo := NewRecordRepository(db, "entities", nil)
	if err := repo.EnsureTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Insert(context.Background(), []string{"a.pdf"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateTableDDL(t *testing.T) {
	pg := createTableDDL("postgres", "entities")
	if !strings.HasPrefix(pg, `CREATE TABLE IF NOT EXISTS "entities" (`) {
		t.Fatalf("postgres ddl = %s", pg)
	}
	for _, col := range []string{`"bill_to" text`, `"id" varchar(36) NOT NULL`, `PRIMARY KEY ("id"))`} {
		if !strings.Contains(pg, col) {
			t.Errorf("postgres ddl missing %s: %s", col, pg)
		}
	}

	my := createTableDDL("mysql", "entities")
	if !strings.Contains(my, "`entities`") || !strings.Contains(my, "`total_amount` text") || strings.Contains(my, `"`) {
		t.Fatalf("mysql ddl = %s", my)
	}
}

func TestColumnFor(t *testing.T) {
	if ColumnFor(constants.FieldBillTo) != "bill_to" || ColumnFor(constants.FieldTotalAmount) != "total_amount" {
		t.Fatal("unexpected column mapping")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle"}, nil); err == nil {
		t.Fatal("expected error")
	}
}
