package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/extract"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
	"github.com/joseph-ayodele/invoice-entities/internal/sink"
)

// stubText returns the file content as text and records every path it saw.
type stubText struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]error // keyed by content
}

func (s *stubText) Extract(_ context.Context, path string, format constants.Format) (extract.Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return extract.Result{}, err
	}
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	if err := s.fail[string(b)]; err != nil {
		return extract.Result{}, err
	}
	return extract.Result{Text: string(b), Format: format, Method: "stub"}, nil
}

// stubEntities echoes the text into the Invoice field.
type stubEntities struct {
	texts []string
	err   error
}

func (s *stubEntities) Extract(_ context.Context, text string) (llm.Result, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return llm.Result{}, s.err
	}
	return llm.Structured(llm.FieldMap{"Invoice": text}), nil
}

func newTestOrchestrator(t *testing.T, tx extract.TextExtractor, ent EntityExtractor, s sink.Sink, opts ...Option) (*Orchestrator, string) {
	t.Helper()
	tmp := t.TempDir()
	opts = append([]Option{WithTmpDir(tmp)}, opts...)
	return NewOrchestrator(tx, ent, s, nil, opts...), tmp
}

func assertTmpEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestProcess_BatchIsolation(t *testing.T) {
	tx := &stubText{fail: map[string]error{"two": fmt.Errorf("%w: boom", common.ErrExtraction)}}
	mem := sink.NewMemory()
	o, tmp := newTestOrchestrator(t, tx, &stubEntities{}, mem)

	items := o.Process(context.Background(), []Document{
		BytesDocument("one.pdf", []byte("one")),
		BytesDocument("two.pdf", []byte("two")),
		BytesDocument("three.png", []byte("three")),
	})

	var statuses []constants.DocStatus
	for _, it := range items {
		statuses = append(statuses, it.Status)
	}
	wantStatus := []constants.DocStatus{constants.DocStatusPersisted, constants.DocStatusFailed, constants.DocStatusPersisted}
	if diff := cmp.Diff(wantStatus, statuses); diff != "" {
		t.Fatalf("statuses (-want +got):\n%s", diff)
	}
	if !errors.Is(items[1].Err, common.ErrExtraction) {
		t.Fatalf("item 2 err = %v", items[1].Err)
	}

	recs := Records(items)
	if len(recs) != 2 || recs[0].Filename != "one.pdf" || recs[1].Filename != "three.png" {
		t.Fatalf("records = %+v", recs)
	}
	rows := mem.Rows()
	if len(rows) != 2 || rows[0][0] != "one.pdf" || rows[1][0] != "three.png" {
		t.Fatalf("rows = %v", rows)
	}
	assertTmpEmpty(t, tmp)
}

func TestProcess_Skips(t *testing.T) {
	tx := &stubText{}
	ent := &stubEntities{}
	o, tmp := newTestOrchestrator(t, tx, ent, sink.NewMemory())

	items := o.Process(context.Background(), []Document{
		BytesDocument("", []byte("x")),
		BytesDocument("notes.txt", []byte("x")),
		BytesDocument("ÿÿÿ", []byte("x")),
	})
	for i, it := range items {
		if it.Status != constants.DocStatusSkipped {
			t.Fatalf("item %d status = %s", i, it.Status)
		}
	}
	if items[0].Err != nil {
		t.Fatalf("empty filename must be skipped without error, got %v", items[0].Err)
	}
	if !errors.Is(items[1].Err, common.ErrUnsupportedFormat) {
		t.Fatalf("unsupported err = %v", items[1].Err)
	}
	if len(tx.paths) != 0 || len(ent.texts) != 0 {
		t.Fatal("skipped documents must not reach extraction")
	}
	if len(Records(items)) != 0 {
		t.Fatal("skipped documents produce no records")
	}
	assertTmpEmpty(t, tmp)
}

func TestProcess_TempFileKeepsSuffixAndIsRemoved(t *testing.T) {
	tx := &stubText{}
	o, tmp := newTestOrchestrator(t, tx, &stubEntities{err: fmt.Errorf("%w: 503", common.ErrTransport)}, sink.NewMemory())

	items := o.Process(context.Background(), []Document{BytesDocument("../../etc/Scan 01.JPG", []byte("img"))})
	if items[0].Status != constants.DocStatusFailed || !errors.Is(items[0].Err, common.ErrTransport) {
		t.Fatalf("item = %+v", items[0])
	}
	if items[0].Filename != "etc_Scan_01.JPG" {
		t.Fatalf("filename = %q", items[0].Filename)
	}
	if len(tx.paths) != 1 || filepath.Dir(tx.paths[0]) != tmp || !strings.HasSuffix(tx.paths[0], ".jpg") {
		t.Fatalf("paths = %v", tx.paths)
	}
	assertTmpEmpty(t, tmp)
}

func TestProcess_SinkFailureIsFailed(t *testing.T) {
	mem := sink.NewMemory()
	mem.FailOn = map[string]error{"a.pdf": errors.New("quota exceeded")}
	o, _ := newTestOrchestrator(t, &stubText{}, &stubEntities{}, mem)

	items := o.Process(context.Background(), []Document{
		BytesDocument("a.pdf", []byte("a")),
		BytesDocument("b.pdf", []byte("b")),
	})
	if items[0].Status != constants.DocStatusFailed || !errors.Is(items[0].Err, common.ErrSink) {
		t.Fatalf("item 0 = %+v", items[0])
	}
	if items[1].Status != constants.DocStatusPersisted {
		t.Fatalf("item 1 = %+v", items[1])
	}
}

func TestProcess_UnstructuredIsPersisted(t *testing.T) {
	mem := sink.NewMemory()
	ent := llmFunc(func(string) llm.Result { return llm.Unstructured("sorry, no invoice") })
	o, _ := newTestOrchestrator(t, &stubText{}, ent, mem)

	items := o.Process(context.Background(), []Document{BytesDocument("a.docx", []byte("a"))})
	if items[0].Status != constants.DocStatusPersisted {
		t.Fatalf("status = %s", items[0].Status)
	}
	row := mem.Rows()[0]
	for _, v := range row[1:] {
		if v != constants.NotFound {
			t.Fatalf("row = %v", row)
		}
	}
}

type llmFunc func(string) llm.Result

func (f llmFunc) Extract(_ context.Context, text string) (llm.Result, error) { return f(text), nil }

type recordingArchiver struct {
	objs   []ArchiveObject
	bodies []string
	err    error
}

func (a *recordingArchiver) Archive(_ context.Context, obj ArchiveObject, r io.Reader) (string, error) {
	b, _ := io.ReadAll(r)
	a.objs = append(a.objs, obj)
	a.bodies = append(a.bodies, string(b))
	return "gs://bucket/" + obj.Filename, a.err
}

func TestProcess_ArchiverFailureIsNotFatal(t *testing.T) {
	arch := &recordingArchiver{err: errors.New("403")}
	o, _ := newTestOrchestrator(t, &stubText{}, &stubEntities{}, sink.NewMemory(), WithArchiver(arch))

	items := o.Process(context.Background(), []Document{BytesDocument("a.png", []byte("payload"))})
	if items[0].Status != constants.DocStatusPersisted {
		t.Fatalf("status = %s", items[0].Status)
	}
	if len(arch.objs) != 1 || arch.bodies[0] != "payload" || arch.objs[0].Fingerprint == "" || arch.objs[0].DocID != items[0].DocID {
		t.Fatalf("archived = %+v %v", arch.objs, arch.bodies)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, _ := newTestOrchestrator(t, &stubText{}, &stubEntities{}, sink.NewMemory())
	items := o.Process(ctx, []Document{BytesDocument("a.pdf", []byte("a"))})
	if items[0].Status != constants.DocStatusFailed || !errors.Is(items[0].Err, context.Canceled) {
		t.Fatalf("item = %+v", items[0])
	}
}

func TestProcess_FileDocumentIsClosed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "src.pdf")
	if err := os.WriteFile(p, []byte("from disk"), 0o600); err != nil {
		t.Fatal(err)
	}
	doc := FileDocument("src.pdf", p)
	ent := &stubEntities{}
	o, _ := newTestOrchestrator(t, &stubText{}, ent, sink.NewMemory())
	items := o.Process(context.Background(), []Document{doc})
	if items[0].Status != constants.DocStatusPersisted || ent.texts[0] != "from disk" {
		t.Fatalf("item = %+v texts = %v", items[0], ent.texts)
	}
	if lf := doc.Content.(*lazyFile); lf.f == nil {
		t.Fatal("file was never opened")
	} else if _, err := lf.f.Stat(); err == nil {
		t.Fatal("file left open")
	}
}
