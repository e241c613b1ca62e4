/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its client message and HTTP status.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// Entries without a Status fall back to 400 Bad Request.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters"},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Malformed JSON body"},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data"},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Invite Errors
	ErrEmailsRequired:      {Code: ErrEmailsRequired, Message: "At least one email is required"},
	ErrInviteTokenRequired: {Code: ErrInviteTokenRequired, Message: "Token is required"},
	ErrInviteNotFound:      {Code: ErrInviteNotFound, Message: "Invalid token", Status: http.StatusNotFound},
	ErrInviteExpired:       {Code: ErrInviteExpired, Message: "Token expired", Status: http.StatusGone},
	ErrRoomCreateFailed:    {Code: ErrRoomCreateFailed, Message: "Failed to create room", Status: http.StatusInternalServerError},

	// 3xxx: Access Token and Relay Errors
	ErrMissingRoomOrIdentity: {Code: ErrMissingRoomOrIdentity, Message: "Missing room or identity"},
	ErrServerMisconfigured:   {Code: ErrServerMisconfigured, Message: "Server misconfigured", Status: http.StatusInternalServerError},
	ErrUnauthorized:          {Code: ErrUnauthorized, Message: "Invalid or missing access token", Status: http.StatusUnauthorized},
	ErrRoomForbidden:         {Code: ErrRoomForbidden, Message: "Token does not grant access to this room", Status: http.StatusForbidden},
	ErrRelayUnavailable:      {Code: ErrRelayUnavailable, Message: "Relay unavailable", Status: http.StatusServiceUnavailable},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Internal Server Error", Status: http.StatusInternalServerError},
}
