package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
)

// Extractor dispatches on the detected format. It holds no per-document state.
type Extractor struct {
	ocr       PageOCR
	native    NativeReader
	pageCount PageCounter
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithNativeReader replaces the PDF text-layer reader.
func WithNativeReader(r NativeReader) Option {
	return func(e *Extractor) {
		if r != nil {
			e.native = r
		}
	}
}

// WithPageCounter replaces the PDF page counter used by the OCR fallback.
func WithPageCounter(c PageCounter) Option {
	return func(e *Extractor) {
		if c != nil {
			e.pageCount = c
		}
	}
}

func NewExtractor(ocr PageOCR, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		ocr:       ocr,
		native:    ReadNativePages,
		pageCount: CountPages,
		logger:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract picks a strategy from format and returns the document text.
func (e *Extractor) Extract(ctx context.Context, path string, format constants.Format) (Result, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger)
	logger.Debug("extract.start", "path", path, "format", format)

	var (
		res Result
		err error
	)
	switch format {
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	case constants.DOCX:
		res, err = e.extractDocx(path)
	case constants.PDF:
		res, err = e.extractPDF(ctx, path, logger)
	default:
		return Result{Format: format}, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, format)
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		logger.Error("extract.failed", "format", format, "error", err, "elapsed_ms", res.Duration.Milliseconds())
		return res, err
	}
	logger.Info("extract.ok",
		"format", format,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
