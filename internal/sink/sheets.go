package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

const spreadsheetMime = "application/vnd.google-apps.spreadsheet"

// SheetsConfig names the target spreadsheet. SpreadsheetID, when set, skips
// the lookup by name.
type SheetsConfig struct {
	SpreadsheetName string
	SpreadsheetID   string
	CredentialsJSON string
}

// Sheets appends rows to the first worksheet of a Google spreadsheet,
// creating the spreadsheet by name if it does not exist.
type Sheets struct {
	cfg    SheetsConfig
	sheets *sheets.Service
	drive  *drive.Service
	id     string
	logger *slog.Logger
}

// NewSheets builds the API clients. Extra options are appended after the
// credentials (tests point them at a local endpoint).
func NewSheets(ctx context.Context, cfg SheetsConfig, logger *slog.Logger, extra ...option.ClientOption) (*Sheets, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts,
			option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
		)
	}
	opts = append(opts, extra...)

	ss, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	ds, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	return &Sheets{cfg: cfg, sheets: ss, drive: ds, id: cfg.SpreadsheetID, logger: logger}, nil
}

// SpreadsheetID is empty until EnsureSchema has resolved it.
func (s *Sheets) SpreadsheetID() string { return s.id }

func (s *Sheets) EnsureSchema(ctx context.Context) error {
	if s.id == "" {
		id, err := s.resolve(ctx)
		if err != nil {
			return err
		}
		s.id = id
	}

	resp, err := s.sheets.Spreadsheets.Values.Get(s.id, "A1:I1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	_, err = s.sheets.Spreadsheets.Values.Update(s.id, "A1", &sheets.ValueRange{
		Values: [][]any{toAny(constants.SheetHeader())},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	s.logger.Info("sink.sheets.header_written", "spreadsheet_id", s.id)
	return nil
}

func (s *Sheets) resolve(ctx context.Context) (string, error) {
	name := s.cfg.SpreadsheetName
	if name == "" {
		return "", errors.New("spreadsheet name is empty")
	}
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMime)
	list, err := s.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("find spreadsheet %q: %w", name, err)
	}
	if len(list.Files) > 0 {
		s.logger.Info("sink.sheets.opened", "name", name, "spreadsheet_id", list.Files[0].Id)
		return list.Files[0].Id, nil
	}

	created, err := s.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", name, err)
	}
	s.logger.Info("sink.sheets.created", "name", name, "spreadsheet_id", created.SpreadsheetId)
	return created.SpreadsheetId, nil
}

func (s *Sheets) AppendRow(ctx context.Context, row []string) error {
	if err := checkRow(row); err != nil {
		return err
	}
	if s.id == "" {
		return errors.New("sheets sink used before EnsureSchema")
	}
	_, err := s.sheets.Spreadsheets.Values.Append(s.id, "A1", &sheets.ValueRange{
		Values: [][]any{toAny(row)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func (s *Sheets) Close() error { return nil }

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
