// Package errors defines the error codes returned by the dashboard API and
// the JSON envelopes every handler writes.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"rfm-dashboard/internal/observability"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeMethod         ErrorCode = "METHOD_NOT_ALLOWED"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

var statusCodes = map[ErrorCode]int{
	CodeValidation:     http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeMethod:         http.StatusMethodNotAllowed,
	CodeRateLimit:      http.StatusTooManyRequests,
	CodeServiceUnavail: http.StatusServiceUnavailable,
}

// Status is the HTTP status for the code; unknown codes map to 500.
func (c ErrorCode) Status() int {
	if s, ok := statusCodes[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.Status(),
		Timestamp:  time.Now().UTC(),
	}
}

// Wrap builds an AppError carrying err as its cause. The cause message is
// exposed as Details for client errors only.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	if err != nil && appErr.StatusCode < http.StatusInternalServerError {
		appErr.Details = err.Error()
	}
	return appErr
}

func Internal(message string) *AppError { return New(CodeInternal, message) }
func InternalWrap(err error, message string) *AppError { return Wrap(err, CodeInternal, message) }

func Validation(message string) *AppError { return New(CodeValidation, message) }
func ValidationWrap(err error, message string) *AppError { return Wrap(err, CodeValidation, message) }

func NotFound(message string) *AppError { return New(CodeNotFound, message) }
func NotFoundWrap(err error, message string) *AppError { return Wrap(err, CodeNotFound, message) }

func RateLimit(message string) *AppError { return New(CodeRateLimit, message) }

func Unavailable(message string) *AppError { return New(CodeServiceUnavail, message) }
func UnavailableWrap(err error, message string) *AppError { return Wrap(err, CodeServiceUnavail, message) }

// As returns the AppError in err's chain, or an internal error wrapping err.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return InternalWrap(err, "An unexpected error occurred")
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// WriteError writes the error envelope for err and logs it against the
// request: warn for client errors, error for server errors.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := As(err)
	appErr.RequestID = observability.GetRequestID(r.Context())

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	if logger != nil {
		logger.Log(r.Context(), level, "request failed",
			"error_code", appErr.Code,
			"error_message", appErr.Message,
			"status_code", appErr.StatusCode,
			"path", r.URL.Path,
			"cause", appErr.Cause,
		)
	}

	body, encodeErr := json.Marshal(ErrorResponse{Error: appErr})
	if encodeErr != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, appErr.StatusCode, append(body, '\n'), nil)
}

// WriteSuccess writes data inside the success envelope with extra headers.
func WriteSuccess(w http.ResponseWriter, data any, headers map[string]string) {
	body, err := EncodeSuccess(data)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, body, headers)
}

// EncodeSuccess renders the success envelope for data, for callers that
// store the body before writing it.
func EncodeSuccess(data any) ([]byte, error) {
	body, err := json.Marshal(SuccessResponse{Data: data, Success: true})
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return append(body, '\n'), nil
}

// WriteEncoded writes a body produced by EncodeSuccess.
func WriteEncoded(w http.ResponseWriter, body []byte, headers map[string]string) {
	writeJSON(w, http.StatusOK, body, headers)
}

func writeJSON(w http.ResponseWriter, status int, body []byte, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
