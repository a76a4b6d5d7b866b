package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors by how the caller should react.
type Kind string

const (
	KindValidation   Kind = "validation"   // bad input shape/type, raised before any I/O
	KindExtraction   Kind = "extraction"   // per-record scrape failure, recovered locally
	KindPersistence  Kind = "persistence"  // insert/query failure, surfaced to the caller
	KindNotification Kind = "notification" // one recipient's send failed
)

// Sentinel errors for common cases
var (
	ErrConnectionType  = errors.New("database handle must be a valid open connection")
	ErrEmptyBatch      = errors.New("readings batch must be a non-empty list")
	ErrEmptyProductSet = errors.New("product id set must be non-empty")
	ErrInvalidRecord   = errors.New("record failed input validation")
	ErrUnknownWebsite  = errors.New("no extractor registered for website")
)

// AppError wraps errors with a kind and a message suitable for run reports.
type AppError struct {
	Err     error // Original error (for logging)
	Message string
	Kind    Kind
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for the pipeline error taxonomy

func Validation(err error, message string) *AppError {
	return &AppError{Err: err, Message: message, Kind: KindValidation}
}

func Extraction(err error, message string) *AppError {
	return &AppError{Err: err, Message: message, Kind: KindExtraction}
}

func Persistence(err error, message string) *AppError {
	return &AppError{Err: err, Message: message, Kind: KindPersistence}
}

func Notification(err error, message string) *AppError {
	return &AppError{Err: err, Message: message, Kind: KindNotification}
}

func Wrapf(kind Kind, err error, format string, args ...any) *AppError {
	return &AppError{Err: err, Message: fmt.Sprintf(format, args...), Kind: kind}
}

// GetKind extracts the kind from an error, defaulting to persistence since
// that is the only class a caller is expected to retry wholesale.
func GetKind(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	switch {
	case errors.Is(err, ErrConnectionType),
		errors.Is(err, ErrEmptyBatch),
		errors.Is(err, ErrEmptyProductSet),
		errors.Is(err, ErrInvalidRecord):
		return KindValidation
	case errors.Is(err, ErrUnknownWebsite):
		return KindExtraction
	default:
		return KindPersistence
	}
}

// IsValidation reports whether the error is a caller mistake rather than a
// runtime failure.
func IsValidation(err error) bool {
	return GetKind(err) == KindValidation
}
