// Package common holds error values shared by every layer of the service.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// validation errors, caused by the client and never retried
	ErrValidation         = errors.New("validation error")
	ErrMissingName        = errors.New("customer name is required")
	ErrEmptyMedia         = errors.New("at least one photo or video is required")
	ErrFreePreviewCount   = errors.New("exactly one video must be marked as free preview")
	ErrInvalidExpiry      = errors.New("expiry days must be a positive number")
	ErrInvalidPaymentLink = errors.New("payment link must be an absolute http(s) URL")

	// lookup errors
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("link expired")

	// processing errors
	ErrTranscode        = errors.New("transcode failed")
	ErrThumbnail        = errors.New("thumbnail extraction failed")
	ErrStore            = errors.New("store failed")
	ErrWatermarkMissing = errors.New("watermark asset not found")
)

// ExpiredError reports a submission whose link is past its expiry time.
// errors.Is(err, ErrExpired) holds for it.
type ExpiredError struct {
	ExpiresAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("link expired at %s", e.ExpiresAt.Format(time.RFC3339))
}

func (e *ExpiredError) Is(target error) bool {
	return target == ErrExpired
}

// Validation wraps one of the validation sentinels so that callers can match
// both the specific cause and the ErrValidation class.
func Validation(cause error) error {
	return fmt.Errorf("%w: %w", ErrValidation, cause)
}
