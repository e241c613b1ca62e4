package errs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorStatuses(t *testing.T) {
	cases := []struct {
		code   int
		status int
		msg    string
	}{
		{ErrEmailsRequired, http.StatusBadRequest, "At least one email is required"},
		{ErrInviteNotFound, http.StatusNotFound, "Invalid token"},
		{ErrInviteExpired, http.StatusGone, "Token expired"},
		{ErrServerMisconfigured, http.StatusInternalServerError, "Server misconfigured"},
		{ErrMissingRoomOrIdentity, http.StatusBadRequest, "Missing room or identity"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "Too many requests. Please try again later."},
	}

	for _, tc := range cases {
		err := NewError(tc.code)
		assert.Equal(t, tc.code, err.Code)
		assert.Equal(t, tc.status, err.Status)
		assert.Equal(t, tc.msg, err.Message)
	}
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(9999)
	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewErrorDoesNotMutateTemplate(t *testing.T) {
	first := NewError(ErrInvalidParams)
	first.Message = "changed"

	second := NewError(ErrInvalidParams)
	assert.Equal(t, "Invalid request parameters", second.Message)
}
