package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
	"github.com/joseph-ayodele/invoice-entities/internal/pipeline"
)

const filesField = "files"

var errNoFiles = errors.New("no files uploaded")

// Processor runs a batch; *pipeline.Orchestrator implements it.
type Processor interface {
	Process(ctx context.Context, docs []pipeline.Document) []pipeline.Item
}

type Config struct {
	MaxUploadBytes int64
	ReportFailures bool
}

type ExtractServer struct {
	proc   Processor
	cfg    Config
	logger *slog.Logger
}

func NewExtractServer(proc Processor, cfg Config, logger *slog.Logger) *ExtractServer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &ExtractServer{proc: proc, cfg: cfg, logger: logger}
}

type resultJSON struct {
	Filename          string     `json:"filename"`
	ExtractedEntities llm.Result `json:"extracted_entities"`
}

type failureJSON struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Code     string `json:"code"`
	Error    string `json:"error"`
}

type extractResponse struct {
	Results []resultJSON  `json:"results"`
	Errors  []failureJSON `json:"errors,omitempty"`
}

// Handler routes POST /extract and GET /healthz behind the request-id middleware.
func (s *ExtractServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return s.withRequestID(mux)
}

func (s *ExtractServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := common.WithRequestID(r.Context(), rid)
		ctx = common.WithLogger(ctx, s.logger.With("req_id", rid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *ExtractServer) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	logger := common.LoggerFromContext(ctx, s.logger)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			writeError(w, http.StatusBadRequest, "No files uploaded")
		case errors.As(err, &tooBig):
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		default:
			logger.Warn("http.extract.bad_form", "error", err)
			writeError(w, http.StatusBadRequest, "malformed multipart body")
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docs, err := documents(r.MultipartForm)
	switch {
	case errors.Is(err, errNoFiles):
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	case err != nil:
		logger.Error("http.extract.open_part_failed", "error", err)
		writeError(w, common.HTTPStatus(err), "could not read upload")
		return
	}

	// the orchestrator closes each document's content
	items := s.proc.Process(ctx, docs)

	resp := extractResponse{Results: []resultJSON{}}
	for _, rec := range pipeline.Records(items) {
		resp.Results = append(resp.Results, resultJSON{Filename: rec.Filename, ExtractedEntities: rec.Entities})
	}
	if s.cfg.ReportFailures {
		for _, it := range items {
			if it.Record != nil || it.Err == nil {
				continue
			}
			resp.Errors = append(resp.Errors, failureJSON{
				Filename: it.Filename,
				Status:   string(it.Status),
				Code:     common.ErrorCode(it.Err),
				Error:    it.Err.Error(),
			})
		}
	}

	logger.Info("http.extract.done",
		"files", len(docs),
		"results", len(resp.Results),
		"errors", len(resp.Errors),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, resp)
}

// documents returns one Document per "files" part in form order. Parts sent
// with an empty filename arrive as plain values; they are kept so the
// orchestrator skips them like any other nameless upload.
func documents(form *multipart.Form) ([]pipeline.Document, error) {
	files := form.File[filesField]
	blanks := form.Value[filesField]
	if len(files) == 0 && len(blanks) == 0 {
		return nil, errNoFiles
	}
	docs := make([]pipeline.Document, 0, len(files)+len(blanks))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			for _, d := range docs {
				_ = d.Content.(multipart.File).Close()
			}
			return nil, common.Mark(err, common.ErrInternal)
		}
		docs = append(docs, pipeline.Document{Filename: fh.Filename, Content: f})
	}
	for _, v := range blanks {
		docs = append(docs, pipeline.Document{Filename: "", Content: strings.NewReader(v)})
	}
	return docs, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
