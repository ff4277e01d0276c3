package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"medidor/internal/core"
	"medidor/internal/imaging"
	"medidor/internal/recognize"
)

// MeasureStore is the persistence surface the service needs.
type MeasureStore interface {
	Create(ctx context.Context, m core.Measure) error
	Get(ctx context.Context, id string) (core.Measure, error)
	ExistsForMonth(ctx context.Context, customerCode string, t core.MeasureType, year, month int) (bool, error)
	ListByCustomer(ctx context.Context, customerCode string, t *core.MeasureType) ([]core.Measure, error)
	Confirm(ctx context.Context, id string, value int64) error
}

// EventPublisher announces confirmed measures to downstream billing.
type EventPublisher interface {
	PublishMeasureConfirmed(ctx context.Context, id string, confirmedValue int64) error
}

// MeasureService orchestrates measure submission, confirmation and listing
// across the store, the recognizer and the event broker.
type MeasureService struct {
	store            MeasureStore
	recognizer       recognize.Recognizer
	publisher        EventPublisher
	recognizeTimeout time.Duration
}

func NewMeasureService(store MeasureStore, recognizer recognize.Recognizer, publisher EventPublisher, recognizeTimeout time.Duration) *MeasureService {
	if recognizeTimeout <= 0 {
		recognizeTimeout = 60 * time.Second
	}
	return &MeasureService{
		store:            store,
		recognizer:       recognizer,
		publisher:        publisher,
		recognizeTimeout: recognizeTimeout,
	}
}

type SubmitInput struct {
	ImageBase64  string
	CustomerCode string
	MeasureType  string
	Datetime     time.Time
	DialVariant  string
}

type SubmitResult struct {
	ID       string
	Value    int64
	ImageURL string
}

// Submit runs the full reading workflow: validate, sniff the image format,
// reject month duplicates, call the recognizer once, parse the value and
// persist the unconfirmed measure.
func (s *MeasureService) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if strings.TrimSpace(in.ImageBase64) == "" {
		return SubmitResult{}, fmt.Errorf("%w: image is required", core.ErrInvalidInput)
	}
	if strings.TrimSpace(in.CustomerCode) == "" {
		return SubmitResult{}, fmt.Errorf("%w: customer_code is required", core.ErrInvalidInput)
	}
	measureType, err := core.ParseMeasureType(in.MeasureType)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: measure_type must be WATER or GAS", core.ErrInvalidInput)
	}
	if in.Datetime.IsZero() {
		return SubmitResult{}, fmt.Errorf("%w: measure_datetime is required", core.ErrInvalidInput)
	}
	variant, err := parseVariant(in.DialVariant)
	if err != nil {
		return SubmitResult{}, err
	}

	image, _, err := imaging.DecodeBase64(in.ImageBase64)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: image is not valid base64", core.ErrInvalidInput)
	}
	mime, err := imaging.SniffMime(image)
	if err != nil {
		return SubmitResult{}, err
	}

	year, month := in.Datetime.Year(), int(in.Datetime.Month())
	exists, err := s.store.ExistsForMonth(ctx, in.CustomerCode, measureType, year, month)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("check month duplicate: %w", err)
	}
	if exists {
		return SubmitResult{}, core.ErrDuplicateMeasure
	}

	// Single attempt against the recognizer, bounded by the configured
	// timeout. There is no retry; a failure surfaces to the caller.
	rctx, cancel := context.WithTimeout(ctx, s.recognizeTimeout)
	defer cancel()
	response, err := s.recognizer.Recognize(rctx, image, recognize.Options{
		MIMEType: mime,
		Variant:  variant,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", core.ErrRecognitionFailed, err)
	}

	value, err := recognize.ParseValue(response)
	if err != nil {
		return SubmitResult{}, err
	}

	measure := core.Measure{
		ID:           uuid.NewString(),
		CustomerCode: in.CustomerCode,
		Type:         measureType,
		Datetime:     in.Datetime,
		Value:        value,
		Confirmed:    false,
	}
	measure.ImageURL = imageRef(measure.ID, mime)

	if err := measure.Validate(); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	if err := s.store.Create(ctx, measure); err != nil {
		return SubmitResult{}, fmt.Errorf("save measure: %w", err)
	}

	slog.InfoContext(ctx, "Measure submitted",
		"id", measure.ID,
		"customer_code", measure.CustomerCode,
		"measure_type", measure.Type,
		"measure_value", measure.Value)

	return SubmitResult{ID: measure.ID, Value: value, ImageURL: measure.ImageURL}, nil
}

// Confirm finalizes a measure with the caller-supplied value. The transition
// happens exactly once; a confirmed event is published best-effort.
func (s *MeasureService) Confirm(ctx context.Context, id string, confirmedValue int64) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", core.ErrInvalidInput)
	}
	if confirmedValue < 0 {
		return fmt.Errorf("%w: confirmed_value must not be negative", core.ErrInvalidInput)
	}

	measure, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if measure.Confirmed {
		return core.ErrAlreadyConfirmed
	}

	if err := s.store.Confirm(ctx, id, confirmedValue); err != nil {
		return err
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping confirmed event", "id", id)
		return nil
	}
	if err := s.publisher.PublishMeasureConfirmed(ctx, id, confirmedValue); err != nil {
		// The confirmation is already persisted; the worker sweep picks
		// up measures whose event got lost.
		slog.ErrorContext(ctx, "Failed to publish confirmed event", "id", id, "error", err)
	}
	return nil
}

// List returns the customer's measures, optionally filtered by type. An
// empty result is reported as core.ErrNotFound for API compatibility.
func (s *MeasureService) List(ctx context.Context, customerCode, typeFilter string) ([]core.Measure, error) {
	if strings.TrimSpace(customerCode) == "" {
		return nil, fmt.Errorf("%w: customer code is required", core.ErrInvalidInput)
	}

	var filter *core.MeasureType
	if strings.TrimSpace(typeFilter) != "" {
		t, err := core.ParseMeasureType(typeFilter)
		if err != nil {
			return nil, err
		}
		filter = &t
	}

	measures, err := s.store.ListByCustomer(ctx, customerCode, filter)
	if err != nil {
		return nil, fmt.Errorf("list measures: %w", err)
	}
	if len(measures) == 0 {
		return nil, core.ErrNotFound
	}
	return measures, nil
}

// Close closes any dependency that holds a connection.
func (s *MeasureService) Close() error {
	var errs []error
	for name, dep := range map[string]any{
		"store":     s.store,
		"publisher": s.publisher,
	} {
		if closer, ok := dep.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close measure service: %v", errs)
	}
	return nil
}

func parseVariant(s string) (recognize.Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(recognize.VariantDefault):
		return recognize.VariantDefault, nil
	case string(recognize.VariantDualColor):
		return recognize.VariantDualColor, nil
	default:
		return "", fmt.Errorf("%w: unknown dial_variant %q", core.ErrInvalidInput, s)
	}
}

func imageRef(id, mime string) string {
	ext := "img"
	switch mime {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}
	return fmt.Sprintf("/files/%s.%s", id, ext)
}
