package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

func TestSQL_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQL(ctx, "sqlite", filepath.Join(t.TempDir(), "e.db"), "entities", nil)
	if err != nil {
		t.Fatalf("NewSQL: %v", err)
	}
	defer s.Close()

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendRow(ctx, BuildRow("inv.png", llm.Structured(llm.FieldMap{"Total Amount": "$5"}))); err != nil {
		t.Fatal(err)
	}
	rows, err := s.Repository().List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Filename != "inv.png" || rows[0].Values[7] != "$5" || rows[0].Values[0] != "Not found" {
		t.Fatalf("rows = %+v", rows)
	}
}
