package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
	"github.com/joseph-ayodele/invoice-entities/internal/pipeline"
	"github.com/joseph-ayodele/invoice-entities/internal/repository"
)

func openBytes(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBatchReportXLSX(t *testing.T) {
	items := []pipeline.Item{
		{Index: 0, Filename: "a.pdf", Status: constants.DocStatusPersisted,
			Record: &pipeline.Record{Filename: "a.pdf", Entities: llm.Structured(llm.FieldMap{"Invoice": "INV-1"})}},
		{Index: 1, Filename: "b.txt", Status: constants.DocStatusSkipped,
			Err: fmt.Errorf("%w: .txt", common.ErrUnsupportedFormat)},
		{Index: 2, Filename: "c.png", Status: constants.DocStatusFailed,
			Err: fmt.Errorf("%w: %w", common.ErrTransport, errors.New("503"))},
	}
	b, err := NewService(nil).BatchReportXLSX(items)
	if err != nil {
		t.Fatalf("BatchReportXLSX: %v", err)
	}
	f := openBytes(t, b)

	recs, err := f.GetRows(RecordsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[1][0] != "a.pdf" || recs[1][5] != "INV-1" {
		t.Fatalf("records = %v", recs)
	}
	if diff := cmp.Diff(constants.SheetHeader(), recs[0]); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}

	fails, err := f.GetRows(FailuresSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(fails) != 3 {
		t.Fatalf("failures = %v", fails)
	}
	if fails[1][1] != "SKIPPED" || fails[1][2] != "UNSUPPORTED_FORMAT" {
		t.Fatalf("skip row = %v", fails[1])
	}
	if fails[2][1] != "FAILED" || fails[2][2] != "TRANSPORT_FAILURE" {
		t.Fatalf("fail row = %v", fails[2])
	}
}

func TestTableXLSX(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, DSN: filepath.Join(t.TempDir(), "e.db")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close(nil)
	repo := repository.NewRecordRepository(db, "entities", nil)
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatal(err)
	}
	row := llm.Structured(llm.FieldMap{"Email": "a@b.c"}).Row("x.docx")
	if _, err := repo.Insert(ctx, row); err != nil {
		t.Fatal(err)
	}

	b, err := NewService(nil).TableXLSX(ctx, repo, 0)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := openBytes(t, b).GetRows(RecordsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "x.docx" || rows[1][4] != "a@b.c" || rows[1][9] == "" {
		t.Fatalf("rows = %v", rows)
	}
}
