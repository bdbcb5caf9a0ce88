package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")

	// Document processing taxonomy.
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("text extraction failed")
	ErrDecode            = fmt.Errorf("%w: image decode", ErrExtraction)
	ErrParse             = fmt.Errorf("%w: document parse", ErrExtraction)
	ErrTransport         = errors.New("transport failure")
	ErrSink              = fmt.Errorf("%w: record sink", ErrTransport)
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Mark attaches a taxonomy sentinel to err while keeping err's own chain.
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// ErrorCode is the short machine-readable label used in responses and reports.
func ErrorCode(err error) string {
	var ae *AppError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ae):
		return ae.Code
	case errors.Is(err, ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case errors.Is(err, ErrDecode):
		return "DECODE_ERROR"
	case errors.Is(err, ErrParse):
		return "PARSE_ERROR"
	case errors.Is(err, ErrExtraction):
		return "EXTRACTION_FAILURE"
	case errors.Is(err, ErrSink):
		return "SINK_FAILURE"
	case errors.Is(err, ErrTransport):
		return "TRANSPORT_FAILURE"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	}
	return "INTERNAL"
}

// HTTPStatus maps an error onto the status code for a request-level failure.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
