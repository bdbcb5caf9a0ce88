package extract

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	if err := checkImage(path); err != nil {
		return Result{}, err
	}
	txt, err := e.ocr.OCRImage(ctx, path)
	if err != nil {
		return Result{}, common.Mark(err, common.ErrExtraction)
	}
	return Result{Text: txt, Method: MethodImageOCR, Pages: 1}, nil
}

// checkImage rejects bytes that are not a decodable png/jpeg before tesseract sees them.
func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return common.Mark(err, common.ErrExtraction)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecode, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("%w: empty %s image", common.ErrDecode, format)
	}
	return nil
}
