package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/pipeline"
	"github.com/joseph-ayodele/invoice-entities/internal/repository"
	"github.com/joseph-ayodele/invoice-entities/internal/sink"
)

const (
	RecordsSheet  = "Records"
	FailuresSheet = "Failures"
)

var failureHeader = []string{"Filename", "Status", "Code", "Error"}

// Service produces XLSX bytes for batch reports and table exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BatchReportXLSX returns a workbook with a Records sheet (one row per
// persisted document, same layout as the sink) and a Failures sheet for
// skipped or failed documents.
func (s *Service) BatchReportXLSX(items []pipeline.Item) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := useSheet(f, RecordsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(FailuresSheet); err != nil {
		return nil, err
	}

	if err := writeRow(f, RecordsSheet, 1, constants.SheetHeader()); err != nil {
		return nil, err
	}
	if err := writeRow(f, FailuresSheet, 1, failureHeader); err != nil {
		return nil, err
	}

	recRow, failRow := 2, 2
	for _, it := range items {
		if it.Status == constants.DocStatusPersisted && it.Record != nil {
			if err := writeRow(f, RecordsSheet, recRow, sink.BuildRow(it.Record.Filename, it.Record.Entities)); err != nil {
				return nil, err
			}
			recRow++
			continue
		}
		msg := ""
		if it.Err != nil {
			msg = truncate(it.Err.Error(), 300)
		}
		if err := writeRow(f, FailuresSheet, failRow, []string{it.Filename, string(it.Status), common.ErrorCode(it.Err), msg}); err != nil {
			return nil, err
		}
		failRow++
	}

	_ = f.SetColWidth(RecordsSheet, "A", "A", 32)
	_ = f.SetColWidth(RecordsSheet, "B", "I", 22)
	_ = f.SetColWidth(FailuresSheet, "A", "A", 32)
	_ = f.SetColWidth(FailuresSheet, "D", "D", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.batch_report.ok",
		"records", recRow-2,
		"failures", failRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// TableXLSX dumps the stored rows of a sql sink (newest last).
func (s *Service) TableXLSX(ctx context.Context, repo repository.RecordRepository, limit int) ([]byte, error) {
	start := time.Now()
	rows, err := repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := useSheet(f, RecordsSheet); err != nil {
		return nil, err
	}
	header := append(constants.SheetHeader(), "Stored At")
	if err := writeRow(f, RecordsSheet, 1, header); err != nil {
		return nil, err
	}
	for i, r := range rows {
		vals := append([]string{r.Filename}, r.Values...)
		stored := ""
		if !r.CreatedAt.IsZero() {
			stored = r.CreatedAt.Format(time.RFC3339)
		}
		vals = append(vals, stored)
		if err := writeRow(f, RecordsSheet, i+2, vals); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(RecordsSheet, "A", "A", 32)
	_ = f.SetColWidth(RecordsSheet, "B", "J", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.table.ok", "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// useSheet renames the default sheet so the workbook opens on name.
func useSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return err
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	return nil
}

func writeRow(f *excelize.File, sheet string, n int, vals []string) error {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, n)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
