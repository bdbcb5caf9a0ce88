package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyDocumentID contextKey = "document_id"
	ContextKeyLogger     contextKey = "logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithDocumentID tags the context with the id of the document being processed
func WithDocumentID(ctx context.Context, docID string) context.Context {
	return context.WithValue(ctx, ContextKeyDocumentID, docID)
}

// DocumentIDFromContext extracts the document ID from context
func DocumentIDFromContext(ctx context.Context) string {
	if docID, ok := ctx.Value(ContextKeyDocumentID).(string); ok {
		return docID
	}
	return ""
}

// WithLogger stores a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the request-scoped logger, or fallback when none is set.
// Request and document ids present in ctx are attached.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	logger, ok := ctx.Value(ContextKeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	if id := RequestIDFromContext(ctx); id != "" && !ok {
		logger = logger.With("req_id", id)
	}
	if id := DocumentIDFromContext(ctx); id != "" {
		logger = logger.With("doc_id", id)
	}
	return logger
}
