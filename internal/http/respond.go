package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"medidor/internal/core"
)

// errorBody is the envelope every failed request carries.
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response body", "error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorBody{ErrorCode: code, ErrorDescription: description})
}

// writeError maps a service error onto the API's status and error code
// vocabulary. Anything unmatched becomes a 500 carrying the raw message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUnsupportedFormat):
		writeErrorCode(w, http.StatusBadRequest, "UNSUPPORTED_IMAGE_FORMAT", err.Error())
	case errors.Is(err, core.ErrInvalidType):
		writeErrorCode(w, http.StatusBadRequest, "INVALID_TYPE", err.Error())
	case errors.Is(err, core.ErrInvalidInput):
		writeErrorCode(w, http.StatusBadRequest, "INVALID_DATA", err.Error())
	case errors.Is(err, core.ErrDuplicateMeasure):
		writeErrorCode(w, http.StatusConflict, "DOUBLE_REPORT", "Reading for this month already reported")
	case errors.Is(err, core.ErrAlreadyConfirmed):
		writeErrorCode(w, http.StatusConflict, "CONFIRMATION_DUPLICATE", "Reading already confirmed")
	case errors.Is(err, core.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "MEASURE_NOT_FOUND", "Reading not found")
	case errors.Is(err, core.ErrRecognitionFailed):
		writeErrorCode(w, http.StatusInternalServerError, "RECOGNITION_FAILED", err.Error())
	case errors.Is(err, core.ErrNoNumericValue):
		writeErrorCode(w, http.StatusInternalServerError, "NO_NUMERIC_VALUE", err.Error())
	default:
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
