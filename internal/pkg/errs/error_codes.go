/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the server
and in responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not valid JSON for the endpoint.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained data after the JSON value.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Invite Errors
const (
	// ErrEmailsRequired indicates that an invite batch had no usable recipient.
	ErrEmailsRequired = 2101

	// ErrInviteTokenRequired indicates that validation was requested without a token.
	ErrInviteTokenRequired = 2102

	// ErrInviteNotFound indicates that no invite matches the token.
	ErrInviteNotFound = 2103

	// ErrInviteExpired indicates that the invite token is past its expiry.
	ErrInviteExpired = 2104

	// ErrRoomCreateFailed indicates that the room record for a batch could not be stored.
	ErrRoomCreateFailed = 2105
)

// 3xxx: Access Token and Relay Errors
const (
	// ErrMissingRoomOrIdentity indicates that a token request lacked the room or identity.
	ErrMissingRoomOrIdentity = 3001

	// ErrServerMisconfigured indicates that media-service credentials are not configured.
	ErrServerMisconfigured = 3002

	// ErrUnauthorized indicates a missing or invalid access token on the relay endpoint.
	ErrUnauthorized = 3003

	// ErrRoomForbidden indicates an access token that does not grant the requested room.
	ErrRoomForbidden = 3004

	// ErrRelayUnavailable indicates that the relay hub is shutting down.
	ErrRelayUnavailable = 3005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000
)
