package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// EntityRow is one stored extraction: the source filename and the eight
// entity values in constants.Fields() order.
type EntityRow struct {
	ID        string
	Filename  string
	Values    []string
	CreatedAt time.Time
}

type RecordRepository interface {
	EnsureTable(ctx context.Context) error
	// Insert stores row = [filename, v1..v8] and returns the new id.
	Insert(ctx context.Context, row []string) (string, error)
	List(ctx context.Context, limit int) ([]EntityRow, error)
}

type recordRepository struct {
	db     *DB
	table  string
	logger *slog.Logger
	now    func() time.Time
}

func NewRecordRepository(db *DB, table string, logger *slog.Logger) RecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &recordRepository{db: db, table: table, logger: logger, now: time.Now}
}

var fieldColumns = map[constants.Field]string{
	constants.FieldAddress:     "address",
	constants.FieldBillTo:      "bill_to",
	constants.FieldCompanyName: "company_name",
	constants.FieldEmail:       "email",
	constants.FieldInvoice:     "invoice",
	constants.FieldInvoiceDate: "invoice_date",
	constants.FieldMobileNo:    "mobile_no",
	constants.FieldTotalAmount: "total_amount",
}

// ColumnFor returns the column that stores f.
func ColumnFor(f constants.Field) string { return fieldColumns[f] }

func valueColumns() []string {
	cols := make([]string, 0, len(fieldColumns))
	for _, f := range constants.Fields() {
		cols = append(cols, ColumnFor(f))
	}
	return cols
}

// createTableDDL renders CREATE TABLE IF NOT EXISTS for the entities table,
// quoting identifiers the way the dialect expects.
func createTableDDL(d, table string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (", quoteIdent(d, table))
	fmt.Fprintf(&sb, "%s varchar(36) NOT NULL, ", quoteIdent(d, "id"))
	fmt.Fprintf(&sb, "%s varchar(255) NOT NULL, ", quoteIdent(d, "filename"))
	for _, c := range valueColumns() {
		fmt.Fprintf(&sb, "%s text, ", quoteIdent(d, c))
	}
	fmt.Fprintf(&sb, "%s varchar(40) NOT NULL, ", quoteIdent(d, "created_at"))
	fmt.Fprintf(&sb, "PRIMARY KEY (%s))", quoteIdent(d, "id"))
	return sb.String()
}

func quoteIdent(d, ident string) string {
	if d == dialect.MySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

func (r *recordRepository) EnsureTable(ctx context.Context) error {
	query := createTableDDL(r.db.Dialect, r.table)
	if err := r.db.Driver.Exec(ctx, query, []any{}, nil); err != nil {
		r.logger.Error("repo.ensure_table.failed", "table", r.table, "error", err)
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	r.logger.Debug("repo.ensure_table.ok", "table", r.table)
	return nil
}

func (r *recordRepository) Insert(ctx context.Context, row []string) (string, error) {
	want := 1 + len(fieldColumns)
	if len(row) != want {
		return "", fmt.Errorf("row has %d values, want %d", len(row), want)
	}
	id := uuid.NewString()
	cols := append([]string{"id", "filename"}, valueColumns()...)
	cols = append(cols, "created_at")

	vals := make([]any, 0, len(cols))
	vals = append(vals, id)
	for _, v := range row {
		vals = append(vals, v)
	}
	vals = append(vals, r.now().UTC().Format(time.RFC3339Nano))

	query, args := entsql.Dialect(r.db.Dialect).Insert(r.table).
		Columns(cols...).
		Values(vals...).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		return "", fmt.Errorf("insert into %s: %w", r.table, err)
	}
	return id, nil
}

func (r *recordRepository) List(ctx context.Context, limit int) ([]EntityRow, error) {
	d := entsql.Dialect(r.db.Dialect)
	cols := append([]string{"id", "filename"}, valueColumns()...)
	cols = append(cols, "created_at")

	sel := d.Select(cols...).From(d.Table(r.table)).
		OrderBy("created_at", "id")
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("select from %s: %w", r.table, err)
	}
	defer rows.Close()

	var out []EntityRow
	for rows.Next() {
		var (
			er      EntityRow
			created string
		)
		vals := make([]string, len(fieldColumns))
		dest := []any{&er.ID, &er.Filename}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		dest = append(dest, &created)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		er.Values = vals
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			er.CreatedAt = t
		}
		out = append(out, er)
	}
	return out, rows.Err()
}
