/*
Package req provides helpers for HTTP request parsing and data binding.

It decodes JSON bodies strictly and translates decoding failures into the
application's error codes.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"callinvite/internal/pkg/errs"
)

// MaxJSONBodySize is the largest JSON body accepted by the API (64 KB).
const MaxJSONBodySize int64 = 64 << 10

// BindJSON decodes the JSON request body into dst.
// Unknown fields and trailing content are rejected.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// Query returns the trimmed value of a query parameter.
func Query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
