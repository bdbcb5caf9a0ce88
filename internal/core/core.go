// Package core assembles the extraction stack from configuration.
package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-entities/internal/archive"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/extract"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
	"github.com/joseph-ayodele/invoice-entities/internal/llm/providers"
	"github.com/joseph-ayodele/invoice-entities/internal/ocr"
	"github.com/joseph-ayodele/invoice-entities/internal/pipeline"
	"github.com/joseph-ayodele/invoice-entities/internal/sink"
)

// Stack holds everything a process needs to run documents end to end.
type Stack struct {
	Text         *extract.Extractor
	Entities     *llm.EntityExtractor
	Sink         sink.Sink
	Archive      *archive.GCS // nil unless ARCHIVE_BUCKET is set
	Orchestrator *pipeline.Orchestrator

	closers []func() error
}

// NewTextExtractor builds stage 1 from the OCR settings.
func NewTextExtractor(cfg *common.Config, logger *slog.Logger) *extract.Extractor {
	engine := ocr.NewEngine(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		TmpDir:        cfg.Batch.TmpDir,
	}, nil, logger)
	return extract.NewExtractor(engine, logger)
}

// Build wires text extraction, the model client, the sink and the optional
// archive, and makes sure the sink has its header before returning.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st := &Stack{Text: NewTextExtractor(cfg, logger)}

	completer, closeLLM, err := providers.New(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	st.closers = append(st.closers, closeLLM)
	st.Entities = providers.Extractor(completer, cfg.LLM, logger)

	s, err := sink.New(ctx, cfg.Sink, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	st.Sink = s
	st.closers = append(st.closers, s.Close)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, common.Mark(err, common.ErrSink)
	}

	opts := []pipeline.Option{
		pipeline.WithTmpDir(cfg.Batch.TmpDir),
		pipeline.WithDocTimeout(cfg.Batch.DocTimeout),
	}
	if cfg.Archive.Bucket != "" {
		gcs, err := archive.NewGCS(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.Archive = gcs
		st.closers = append(st.closers, gcs.Close)
		opts = append(opts, pipeline.WithArchiver(gcs))
	}

	st.Orchestrator = pipeline.NewOrchestrator(st.Text, st.Entities, st.Sink, logger, opts...)
	logger.Info("core.ready",
		"llm", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"sink", cfg.Sink.Kind,
		"archive", cfg.Archive.Bucket != "",
	)
	return st, nil
}

// Close releases resources in reverse build order.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// ParseLevel maps LOG_LEVEL onto slog; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
