package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/extract"
	"github.com/joseph-ayodele/invoice-entities/internal/ingest"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
	"github.com/joseph-ayodele/invoice-entities/internal/sink"
)

// EntityExtractor is stage 2; *llm.EntityExtractor implements it.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (llm.Result, error)
}

// Archiver keeps a copy of the original upload. Failures are logged only.
type Archiver interface {
	Archive(ctx context.Context, obj ArchiveObject, r io.Reader) (string, error)
}

type ArchiveObject struct {
	DocID       string
	Filename    string
	Fingerprint string
}

// Orchestrator runs documents one at a time through
// extract -> structure -> persist.
type Orchestrator struct {
	text       extract.TextExtractor
	entities   EntityExtractor
	sink       sink.Sink
	archiver   Archiver
	tmpDir     string
	docTimeout time.Duration
	logger     *slog.Logger
}

type Option func(*Orchestrator)

func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

func WithTmpDir(dir string) Option {
	return func(o *Orchestrator) { o.tmpDir = dir }
}

// WithDocTimeout bounds each document's whole processing span.
func WithDocTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.docTimeout = d }
}

func NewOrchestrator(text extract.TextExtractor, entities EntityExtractor, s sink.Sink, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{text: text, entities: entities, sink: s, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process handles docs sequentially in input order. One document's failure
// never stops the batch; every temp file is removed before the next document
// starts.
func (o *Orchestrator) Process(ctx context.Context, docs []Document) []Item {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, o.logger)
	logger.Info("pipeline.batch.start", "docs", len(docs))

	items := make([]Item, 0, len(docs))
	var persisted, skipped, failed int
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			items = append(items, Item{
				Index: i, Filename: d.Filename,
				Status: constants.DocStatusFailed, Err: err,
			})
			closeContent(d.Content)
			failed++
			continue
		}
		it := o.processOne(ctx, i, d)
		switch it.Status {
		case constants.DocStatusPersisted:
			persisted++
		case constants.DocStatusSkipped:
			skipped++
		default:
			failed++
		}
		items = append(items, it)
	}

	logger.Info("pipeline.batch.done",
		"docs", len(docs),
		"persisted", persisted,
		"skipped", skipped,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return items
}

func (o *Orchestrator) processOne(ctx context.Context, idx int, d Document) (it Item) {
	defer closeContent(d.Content)
	start := time.Now()

	it = Item{
		Index:    idx,
		Filename: d.Filename,
		DocID:    uuid.NewString(),
		Status:   constants.DocStatusReceived,
	}
	ctx = common.WithDocumentID(ctx, it.DocID)
	logger := common.LoggerFromContext(ctx, o.logger).With("index", idx)

	if d.Filename == "" {
		it.Status = constants.DocStatusSkipped
		logger.Info("pipeline.doc.skipped", "reason", "empty filename")
		return it
	}
	name := SanitizeFilename(d.Filename)
	if name == "" {
		it.Status = constants.DocStatusSkipped
		logger.Info("pipeline.doc.skipped", "reason", "empty sanitized filename", "raw", d.Filename)
		return it
	}
	it.Filename = name
	it.Format = constants.DetectFormat(name)
	logger = logger.With("filename", name)
	if it.Format == constants.UNSUPPORTED {
		it.Status = constants.DocStatusSkipped
		it.Err = fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Ext(name))
		logger.Info("pipeline.doc.skipped", "reason", "unsupported format")
		return it
	}

	if o.docTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.docTimeout)
		defer cancel()
	}

	fail := func(stage string, err error) Item {
		it.Status = constants.DocStatusFailed
		it.Err = err
		logger.Error("pipeline.doc.failed",
			"stage", stage,
			"code", common.ErrorCode(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return it
	}

	path, fp, err := o.materialize(name, d.Content)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Warn("pipeline.doc.tmp_remove_failed", "path", path, "error", rmErr)
			}
		}()
	}
	if err != nil {
		return fail("materialize", common.Mark(err, common.ErrInternal))
	}
	it.Fingerprint = fp
	logger = logger.With("fingerprint", fp)

	o.archive(ctx, logger, it, path)

	text, err := o.text.Extract(ctx, path, it.Format)
	if err != nil {
		return fail("text", err)
	}
	it.Status = constants.DocStatusTextExtracted
	logger.Debug("pipeline.doc.text_extracted", "method", text.Method, "text_len", len(text.Text))

	res, err := o.entities.Extract(ctx, text.Text)
	if err != nil {
		return fail("entities", err)
	}
	it.Status = constants.DocStatusFieldsExtracted

	if err := o.sink.AppendRow(ctx, sink.BuildRow(name, res)); err != nil {
		return fail("persist", common.Mark(err, common.ErrSink))
	}
	it.Status = constants.DocStatusPersisted
	it.Record = &Record{Filename: name, Entities: res}

	logger.Info("pipeline.doc.persisted",
		"method", text.Method,
		"kind", res.Kind().String(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return it
}

// materialize copies content to a temp file that keeps name's suffix. The
// returned path is non-empty whenever a file was created, even on error.
func (o *Orchestrator) materialize(name string, content io.Reader) (string, string, error) {
	if content == nil {
		return "", "", errors.New("document has no content")
	}
	ext := strings.ToLower(filepath.Ext(name))
	f, err := os.CreateTemp(o.tmpDir, "ie-*"+ext)
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	h := ingest.NewHasher()
	if _, err := io.Copy(io.MultiWriter(f, h), content); err != nil {
		_ = f.Close()
		return path, "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return path, "", fmt.Errorf("close temp file: %w", err)
	}
	return path, fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (o *Orchestrator) archive(ctx context.Context, logger *slog.Logger, it Item, path string) {
	if o.archiver == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("pipeline.doc.archive_failed", "error", err)
		return
	}
	defer f.Close()
	uri, err := o.archiver.Archive(ctx, ArchiveObject{
		DocID:       it.DocID,
		Filename:    it.Filename,
		Fingerprint: it.Fingerprint,
	}, f)
	if err != nil {
		logger.Warn("pipeline.doc.archive_failed", "error", err)
		return
	}
	logger.Debug("pipeline.doc.archived", "uri", uri)
}

func closeContent(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}
