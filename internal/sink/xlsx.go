package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

const xlsxSheet = "Entities"

// XLSX appends rows to a local workbook, saving after every row.
type XLSX struct {
	path   string
	f      *excelize.File
	next   int
	logger *slog.Logger
}

func NewXLSX(path string, logger *slog.Logger) (*XLSX, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		f   *excelize.File
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		f = excelize.NewFile()
	} else {
		return nil, statErr
	}

	if idx, _ := f.GetSheetIndex(xlsxSheet); idx == -1 {
		idx, err = f.NewSheet(xlsxSheet)
		if err != nil {
			return nil, err
		}
		// a fresh workbook starts with an empty "Sheet1"
		if i, _ := f.GetSheetIndex("Sheet1"); i != -1 && len(f.GetSheetList()) > 1 {
			_ = f.DeleteSheet("Sheet1")
			idx, _ = f.GetSheetIndex(xlsxSheet)
		}
		f.SetActiveSheet(idx)
	}
	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		return nil, err
	}
	return &XLSX{path: path, f: f, next: len(rows) + 1, logger: logger}, nil
}

func (x *XLSX) EnsureSchema(context.Context) error {
	first, err := x.f.GetCellValue(xlsxSheet, "A1")
	if err != nil {
		return err
	}
	if first != "" {
		return nil
	}
	if err := x.writeRow(1, constants.SheetHeader()); err != nil {
		return err
	}
	if x.next < 2 {
		x.next = 2
	}
	_ = x.f.SetColWidth(xlsxSheet, "A", "A", 32)
	_ = x.f.SetColWidth(xlsxSheet, "B", "I", 22)
	return x.save()
}

func (x *XLSX) AppendRow(_ context.Context, row []string) error {
	if err := checkRow(row); err != nil {
		return err
	}
	if err := x.writeRow(x.next, row); err != nil {
		return err
	}
	x.next++
	return x.save()
}

func (x *XLSX) writeRow(n int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	vals := make([]any, len(row))
	for i, v := range row {
		vals[i] = v
	}
	return x.f.SetSheetRow(xlsxSheet, cell, &vals)
}

func (x *XLSX) save() error {
	if err := x.f.SaveAs(x.path); err != nil {
		x.logger.Error("sink.xlsx.save_failed", "path", x.path, "error", err)
		return fmt.Errorf("save %s: %w", x.path, err)
	}
	return nil
}

func (x *XLSX) Close() error { return x.f.Close() }
