package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/async"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/core"
	"github.com/joseph-ayodele/invoice-entities/internal/export"
	"github.com/joseph-ayodele/invoice-entities/internal/ingest"
	"github.com/joseph-ayodele/invoice-entities/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir       = flag.String("dir", "", "directory of invoices to process (required)")
		out       = flag.String("out", "", "batch report XLSX path (defaults to <dir>/../extraction-report.xlsx)")
		sinkKind  = flag.String("sink", "", "override SINK (sheets|xlsx|sql|memory)")
		dryRun    = flag.Bool("dry-run", false, "extract but keep rows in memory only")
		recursive = flag.Bool("recursive", true, "descend into subdirectories")
		watch     = flag.Bool("watch", false, "keep running and process files as they appear")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "extraction-report.xlsx")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: core.ParseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	if *sinkKind != "" {
		cfg.Sink.Kind = *sinkKind
	}
	if *dryRun {
		cfg.Sink.Kind = "memory"
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := core.Build(context.WithoutCancel(ctx), cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err, "code", common.ErrorCode(err))
		os.Exit(1)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.Error("close stack", "error", err)
		}
	}()

	var items []pipeline.Item
	if *watch {
		items, err = runWatch(ctx, stack.Orchestrator, *dir, logger)
	} else {
		items, err = runOnce(ctx, stack.Orchestrator, *dir, *recursive, logger)
	}
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}

	report, err := export.NewService(logger).BatchReportXLSX(items)
	if err != nil {
		logger.Error("build report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, report, 0o644); err != nil {
		logger.Error("write report", "path", *out, "error", err)
		os.Exit(1)
	}

	counts := map[constants.DocStatus]int{}
	for _, it := range items {
		counts[it.Status]++
	}
	logger.Info("batch processing complete",
		"documents", len(items),
		"persisted", counts[constants.DocStatusPersisted],
		"skipped", counts[constants.DocStatusSkipped],
		"failed", counts[constants.DocStatusFailed],
		"output_file", *out,
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents: %d\n", len(items))
	fmt.Printf("- Persisted: %d\n", counts[constants.DocStatusPersisted])
	fmt.Printf("- Skipped: %d\n", counts[constants.DocStatusSkipped])
	fmt.Printf("- Failed: %d\n", counts[constants.DocStatusFailed])
	fmt.Printf("- Report: %s\n", *out)
}

func runOnce(ctx context.Context, orch *pipeline.Orchestrator, dir string, recursive bool, logger *slog.Logger) ([]pipeline.Item, error) {
	entries, stats, err := ingest.ScanDirectory(dir, ingest.ScanOptions{
		Recursive:  recursive,
		SkipHidden: true,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("scan complete",
		"dir", dir,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"unmatched", stats.Unmatched,
		"failed", stats.Failed,
	)

	docs := make([]pipeline.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, pipeline.FileDocument(e.Name, e.Path))
	}
	return orch.Process(ctx, docs), nil
}

// runWatch processes existing and new files until ctx is cancelled.
func runWatch(ctx context.Context, orch *pipeline.Orchestrator, dir string, logger *slog.Logger) ([]pipeline.Item, error) {
	var (
		mu    sync.Mutex
		items []pipeline.Item
	)
	q := async.NewProcessorQueue(orch, logger, async.WithDedupe(), async.WithItemHandler(func(it pipeline.Item) {
		mu.Lock()
		it.Index = len(items)
		items = append(items, it)
		mu.Unlock()
	}))

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("watching", "dir", dir)

	for paths != nil || errs != nil {
		select {
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Path: p, Name: filepath.Base(p)}); err != nil {
				logger.Warn("enqueue failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("watch error", "error", err)
		}
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	q.Shutdown(shutCtx)

	mu.Lock()
	defer mu.Unlock()
	return items, nil
}
