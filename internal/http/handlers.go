package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"medidor/internal/core"
	"medidor/internal/services"
)

// MeasureAPI is the slice of the service the handlers need.
type MeasureAPI interface {
	Submit(ctx context.Context, in services.SubmitInput) (services.SubmitResult, error)
	Confirm(ctx context.Context, id string, confirmedValue int64) error
	List(ctx context.Context, customerCode, typeFilter string) ([]core.Measure, error)
}

type uploadRequest struct {
	Image           string `json:"image"`
	CustomerCode    string `json:"customer_code"`
	MeasureType     string `json:"measure_type"`
	MeasureDatetime string `json:"measure_datetime"`
	DialVariant     string `json:"dial_variant,omitempty"`
}

type uploadResponse struct {
	ImageURL     string `json:"image_url"`
	MeasureValue int64  `json:"measure_value"`
	MeasureUUID  string `json:"measure_uuid"`
}

type confirmRequest struct {
	MeasureUUID    string   `json:"measure_uuid"`
	ConfirmedValue *float64 `json:"confirmed_value"`
}

type confirmResponse struct {
	Success bool `json:"success"`
}

type measureItem struct {
	MeasureUUID     string `json:"measure_uuid"`
	MeasureDatetime string `json:"measure_datetime"`
	MeasureType     string `json:"measure_type"`
	MeasureValue    int64  `json:"measure_value"`
	HasConfirmed    bool   `json:"has_confirmed"`
	ImageURL        string `json:"image_url"`
}

type listResponse struct {
	CustomerCode string        `json:"customer_code"`
	Measures     []measureItem `json:"measures"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_DATA", "request body is not valid JSON")
		return
	}

	datetime, err := parseDatetime(req.MeasureDatetime)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_DATA", err.Error())
		return
	}

	res, err := s.api.Submit(r.Context(), services.SubmitInput{
		ImageBase64:  req.Image,
		CustomerCode: req.CustomerCode,
		MeasureType:  req.MeasureType,
		Datetime:     datetime,
		DialVariant:  req.DialVariant,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Upload failed",
			"customer_code", req.CustomerCode,
			"measure_type", req.MeasureType,
			"error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		ImageURL:     res.ImageURL,
		MeasureValue: res.Value,
		MeasureUUID:  res.ID,
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_DATA", "request body is not valid JSON")
		return
	}
	if req.ConfirmedValue == nil {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_DATA", "confirmed_value is required")
		return
	}
	v := *req.ConfirmedValue
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
		writeErrorCode(w, http.StatusBadRequest, "INVALID_DATA", "confirmed_value must be an integer")
		return
	}

	if err := s.api.Confirm(r.Context(), req.MeasureUUID, int64(v)); err != nil {
		slog.ErrorContext(r.Context(), "Confirm failed", "measure_uuid", req.MeasureUUID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmResponse{Success: true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	customerCode := r.PathValue("customerCode")
	typeFilter := r.URL.Query().Get("measure_type")

	measures, err := s.api.List(r.Context(), customerCode, typeFilter)
	if err != nil {
		// Empty list and missing id share a sentinel but not a code.
		if errors.Is(err, core.ErrNotFound) {
			writeErrorCode(w, http.StatusNotFound, "MEASURES_NOT_FOUND", "No readings found")
			return
		}
		slog.ErrorContext(r.Context(), "List failed", "customer_code", customerCode, "error", err)
		writeError(w, err)
		return
	}

	items := make([]measureItem, len(measures))
	for i, m := range measures {
		items[i] = measureItem{
			MeasureUUID:     m.ID,
			MeasureDatetime: m.Datetime.UTC().Format(time.RFC3339),
			MeasureType:     string(m.Type),
			MeasureValue:    m.Value,
			HasConfirmed:    m.Confirmed,
			ImageURL:        m.ImageURL,
		}
	}

	writeJSON(w, http.StatusOK, listResponse{CustomerCode: customerCode, Measures: items})
}

// parseDatetime accepts RFC3339 timestamps and bare dates.
func parseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("measure_datetime is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("measure_datetime %q is not a valid timestamp", s)
}
