package extractor

import (
	"errors"
	"fmt"
	"time"

	"github.com/pricepulse/backend/internal/apperror"
)

// Common extraction errors. All of them are per-record and non-fatal to a
// batch: the dispatcher logs and drops the record.
var (
	ErrWrongPageType      = errors.New("page is not a product page")
	ErrPriceNotFound      = errors.New("current price not found in response")
	ErrSaleStatusNotFound = errors.New("sale status not found in response")
	ErrEmptyResponse      = errors.New("empty response from retailer")

	// ErrUnknownWebsite aliases the shared sentinel so callers can match
	// either package.
	ErrUnknownWebsite = apperror.ErrUnknownWebsite
)

// ExtractError records which retailer and operation failed
type ExtractError struct {
	WebsiteName string
	Operation   string
	Err         error
	Timestamp   time.Time
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("[%s] %s: %v at %s",
		e.WebsiteName, e.Operation, e.Err, e.Timestamp.Format(time.RFC3339))
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError
func NewExtractError(websiteName, operation string, err error) *ExtractError {
	return &ExtractError{
		WebsiteName: websiteName,
		Operation:   operation,
		Err:         err,
		Timestamp:   time.Now(),
	}
}

// IsBadPage reports whether the error means the fetched page was not a
// product page, a data problem rather than a transient one.
func IsBadPage(err error) bool {
	return errors.Is(err, ErrWrongPageType)
}
