package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/core"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "extract-text <file.pdf|file.docx|file.png|file.jpg>")
		os.Exit(2)
	}
	path := os.Args[1]
	format := constants.DetectFormat(filepath.Base(path))
	if format == constants.UNSUPPORTED {
		logger.Error("unsupported file type", "path", path)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := core.NewTextExtractor(cfg, logger).Extract(ctx, path, format)
	if err != nil {
		logger.Error("extract failed", "path", path, "error", err, "code", common.ErrorCode(err))
		os.Exit(1)
	}
	for _, w := range res.Warnings {
		logger.Warn("extract warning", "warning", w)
	}
	logger.Info("extract ok",
		"format", res.Format,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	fmt.Println(res.Text)
}
