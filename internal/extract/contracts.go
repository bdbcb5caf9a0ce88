package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// TextExtractor is stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string, format constants.Format) (Result, error)
}

// PageOCR is the OCR surface the extractors need; *ocr.Engine implements it.
type PageOCR interface {
	OCRImage(ctx context.Context, path string) (string, error)
	OCRPDFPage(ctx context.Context, pdfPath string, page int) (string, error)
}

const (
	MethodImageOCR = "image-ocr"
	MethodDocxXML  = "docx-xml"
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
)

type Result struct {
	Text     string
	Format   constants.Format
	Method   string
	Pages    int
	Duration time.Duration
	Warnings []string
}
