/*
Package resp provides helpers for writing JSON HTTP responses.

Success payloads are written as-is so each endpoint controls its own response shape;
errors share one body layout carrying the business code and the client message.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"callinvite/internal/pkg/errs"
	"callinvite/internal/pkg/logx"
)

// ErrorResponse is the body written for every error response.
type ErrorResponse struct {
	// Code is the business error code (see the errs package).
	Code int `json:"code"`

	// Error is the client-facing error message.
	Error string `json:"error"`
}

// RespondJSON sets the JSON headers and writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
			"path", r.URL.Path,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Warn("Failed to write response body", "path", r.URL.Path, "error", err.Error())
	}
}

// RespondSuccess writes data with HTTP 200.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, data)
}

// RespondCreated writes data with HTTP 201.
func RespondCreated(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusCreated, data)
}

// RespondError writes customErr using its own HTTP status.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, ErrorResponse{
		Code:  customErr.Code,
		Error: customErr.Message,
	})
}
