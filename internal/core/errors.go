package core

import "errors"

// Business-rule and validation errors surfaced by the measure workflow.
// Layers wrap these with context; the HTTP boundary matches with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyCustomerCode = errors.New("empty customer code")
	ErrInvalidType       = errors.New("invalid measure type")
	ErrInvalidDatetime   = errors.New("invalid measure datetime")
	ErrNegativeValue     = errors.New("negative measure value")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDuplicateMeasure  = errors.New("measure already reported for this month")
	ErrRecognitionFailed = errors.New("image recognition failed")
	ErrNoNumericValue    = errors.New("no numeric value in recognizer response")
	ErrNotFound          = errors.New("measure not found")
	ErrAlreadyConfirmed  = errors.New("measure already confirmed")
)
