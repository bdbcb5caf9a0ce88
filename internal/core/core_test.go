package core

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuild_MemorySink(t *testing.T) {
	cfg := common.Defaults()
	cfg.LLM.APIKey = "sk-test"
	cfg.Sink.Kind = "memory"
	cfg.Batch.TmpDir = t.TempDir()

	st, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if st.Orchestrator == nil || st.Text == nil || st.Entities == nil || st.Sink == nil {
		t.Fatalf("incomplete stack: %+v", st)
	}
	if st.Archive != nil {
		t.Fatal("archive should be off without a bucket")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := common.Defaults()
	cfg.LLM.Provider = "bogus"
	cfg.Sink.Kind = "memory"

	_, err := Build(context.Background(), cfg, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestBuild_UnknownSink(t *testing.T) {
	cfg := common.Defaults()
	cfg.LLM.APIKey = "sk-test"
	cfg.Sink.Kind = "carrier-pigeon"

	_, err := Build(context.Background(), cfg, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
