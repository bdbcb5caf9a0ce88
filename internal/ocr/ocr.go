package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300

	TmpDir string // where rendered pages live while they are OCR'd
}

// Engine wraps tesseract and pdftoppm. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// OCRImage returns tesseract's text for an image file, verbatim.
func (e *Engine) OCRImage(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(truncate(string(errb), 512)))
	}
	return string(out), nil
}

// OCRPDFPage renders a single 1-based page of a PDF and OCRs it. The rendered
// image lives in a temp dir that is removed before returning.
func (e *Engine) OCRPDFPage(ctx context.Context, pdfPath string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("invalid page %d", page)
	}
	start := time.Now()

	tmpDir, err := os.MkdirTemp(e.cfg.TmpDir, "ie-page-*")
	if err != nil {
		return "", err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("ocr.page.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.DPI), "-png", "-f", n, "-l", n, "-singlefile", pdfPath, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(truncate(string(errb), 512)))
	}

	img := prefix + ".png"
	txt, err := e.OCRImage(ctx, img)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	e.logger.Debug("ocr.page.ok", "page", page, "chars", len(txt), "elapsed_ms", time.Since(start).Milliseconds())
	return txt, nil
}
