// Package sink appends processed rows to the configured destination.
// Every row is [filename, eight entity values] in constants.SheetHeader order.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

type Sink interface {
	// EnsureSchema writes the header row (or table) if the destination has none.
	EnsureSchema(ctx context.Context) error
	AppendRow(ctx context.Context, row []string) error
	Close() error
}

// BuildRow flattens a result into a persisted row. Unstructured results keep
// their filename and carry the sentinel in every entity column.
func BuildRow(filename string, r llm.Result) []string {
	return r.Row(filename)
}

func checkRow(row []string) error {
	if want := len(constants.SheetHeader()); len(row) != want {
		return fmt.Errorf("row has %d values, want %d", len(row), want)
	}
	return nil
}

type serialized struct {
	mu   sync.Mutex
	next Sink
}

// Serialized guards s so concurrent requests append one row at a time.
func Serialized(s Sink) Sink {
	if _, ok := s.(*serialized); ok {
		return s
	}
	return &serialized{next: s}
}

func (s *serialized) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.EnsureSchema(ctx)
}

func (s *serialized) AppendRow(ctx context.Context, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.AppendRow(ctx, row)
}

func (s *serialized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Close()
}

// New builds the sink selected by cfg.Kind, wrapped with Serialized.
func New(ctx context.Context, cfg common.SinkConfig, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		s   Sink
		err error
	)
	switch cfg.Kind {
	case "sheets":
		s, err = NewSheets(ctx, SheetsConfig{
			SpreadsheetName: cfg.SpreadsheetName,
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsJSON: cfg.CredentialsJSON,
		}, logger)
	case "xlsx":
		s, err = NewXLSX(cfg.XLSXPath, logger)
	case "sql":
		s, err = NewSQL(ctx, cfg.DBDriver, cfg.DBURL, cfg.DBTable, logger)
	case "memory":
		s = NewMemory()
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown sink %q", cfg.Kind), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, common.Mark(err, common.ErrSink)
	}
	logger.Info("sink.ready", "kind", cfg.Kind)
	return Serialized(s), nil
}
