package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/extract"
	"github.com/joseph-ayodele/invoice-entities/internal/sink"
)

type pageOCR struct{ pages []int }

func (p *pageOCR) OCRImage(context.Context, string) (string, error) { return "", nil }

func (p *pageOCR) OCRPDFPage(_ context.Context, _ string, page int) (string, error) {
	p.pages = append(p.pages, page)
	return fmt.Sprintf("INV-00%d page text", page), nil
}

// A scanned PDF has a whitespace-only text layer; the model must still see
// the OCR text of every page.
func TestProcess_ScannedPDFFallsBackToOCR(t *testing.T) {
	ocr := &pageOCR{}
	tx := extract.NewExtractor(ocr, nil,
		extract.WithNativeReader(func(string) ([]string, error) { return []string{"  ", "\n"}, nil }),
		extract.WithPageCounter(func(string) (int, error) { return 2, nil }),
	)
	ent := &stubEntities{}
	mem := sink.NewMemory()
	o, tmp := newTestOrchestrator(t, tx, ent, mem)

	items := o.Process(context.Background(), []Document{BytesDocument("scan.pdf", []byte("%PDF-1.4 scanned"))})
	if items[0].Status != constants.DocStatusPersisted {
		t.Fatalf("item = %+v", items[0])
	}
	if len(ocr.pages) != 2 {
		t.Fatalf("OCR pages = %v", ocr.pages)
	}
	if len(ent.texts) != 1 || !strings.Contains(ent.texts[0], "INV-001") || !strings.Contains(ent.texts[0], "INV-002") {
		t.Fatalf("model input = %q", ent.texts)
	}
	assertTmpEmpty(t, tmp)
}
