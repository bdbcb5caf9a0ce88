package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
)

// NativeReader returns the text layer of each page (index 0 = page 1). It may
// return partial pages together with an error.
type NativeReader func(path string) ([]string, error)

// PageCounter reports how many pages a PDF has.
type PageCounter func(path string) (int, error)

func (e *Extractor) extractPDF(ctx context.Context, path string, logger *slog.Logger) (Result, error) {
	pages, nerr := e.native(path)
	if nerr != nil {
		// best-effort stage: keep whatever pages were read
		logger.Warn("extract.pdf.native_error", "error", nerr, "pages_read", len(pages))
	}

	var b strings.Builder
	for _, txt := range pages {
		if txt == "" {
			continue
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	if strings.TrimSpace(b.String()) != "" {
		return Result{Text: b.String(), Method: MethodPDFText, Pages: len(pages)}, nil
	}

	n, cerr := e.pageCount(path)
	if cerr != nil || n <= 0 {
		logger.Warn("extract.pdf.page_count_failed", "error", cerr, "native_pages", len(pages))
		n = len(pages)
	}
	if n == 0 {
		return Result{}, fmt.Errorf("%w: no text layer and page count unknown: %v", common.ErrExtraction, firstErr(cerr, nerr))
	}

	logger.Info("extract.pdf.fallback_ocr", "pages", n)
	var warns []string
	if nerr != nil {
		warns = append(warns, "native: "+nerr.Error())
	}
	b.Reset()
	for page := 1; page <= n; page++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		txt, err := e.ocr.OCRPDFPage(ctx, path, page)
		if err != nil {
			return Result{}, common.Mark(fmt.Errorf("ocr page %d/%d: %w", page, n, err), common.ErrExtraction)
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	return Result{Text: b.String(), Method: MethodPDFOCR, Pages: n, Warnings: warns}, nil
}

// ReadNativePages extracts the text layer with ledongthuc/pdf. Pages that fail
// (or panic inside the parser) come back as "".
func ReadNativePages(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]string, total)
	var failed int
	for i := 1; i <= total; i++ {
		txt, perr := pageText(r, i)
		if perr != nil {
			failed++
			continue
		}
		pages[i-1] = txt
	}
	if failed > 0 {
		return pages, fmt.Errorf("%d of %d pages unreadable", failed, total)
	}
	return pages, nil
}

func pageText(r *pdf.Reader, i int) (txt string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: panic: %v", i, rec)
		}
	}()
	p := r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// CountPages uses pdfcpu, which copes with some files ledongthuc rejects.
func CountPages(path string) (int, error) {
	return api.PageCountFile(path)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
