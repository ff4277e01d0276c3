// Package recognize extracts meter readings from photos through an external
// image-recognition model.
package recognize

import (
	"context"
	"regexp"
	"strconv"

	"medidor/internal/core"
)

// Variant selects the extraction instruction sent with the image.
type Variant string

const (
	// VariantDefault reads the digits from the bounded display region.
	VariantDefault Variant = "default"
	// VariantDualColor additionally tells the model to ignore digits
	// rendered in the secondary color, for dual-color-dial displays.
	VariantDualColor Variant = "dual_color"
)

// Options carries per-call parameters for an extraction.
type Options struct {
	MIMEType string
	Variant  Variant
}

// Recognizer turns image bytes into the model's free-form text answer.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, opt Options) (string, error)
}

var digitRun = regexp.MustCompile(`\d+`)

// ParseValue extracts the meter reading from the recognizer's free-form
// response: the first run of digits that fits an int64. A response with no
// parseable digits is core.ErrNoNumericValue, never a silent zero.
func ParseValue(response string) (int64, error) {
	for _, run := range digitRun.FindAllString(response, -1) {
		if v, err := strconv.ParseInt(run, 10, 64); err == nil {
			return v, nil
		}
	}
	return 0, core.ErrNoNumericValue
}
