package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kinforge/kinforgebackend/apperrors"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}
	writeJSON(w, httpStatus, resp)
}

// WriteError maps an engine error onto the taxonomy and writes the
// standardized body. Failures always cross this boundary as structured
// results, never as raw errors.
func WriteError(w http.ResponseWriter, err error) {
	var fetchErr *apperrors.FetchError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		WriteAPIError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		WriteAPIError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.As(err, &fetchErr):
		WriteAPIError(w, http.StatusBadGateway, "upstream_fetch_error", err.Error())
	case errors.Is(err, apperrors.ErrStorage):
		WriteAPIError(w, http.StatusInternalServerError, "storage_error", err.Error())
	default:
		WriteAPIError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
