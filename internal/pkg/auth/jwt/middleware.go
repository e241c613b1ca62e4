package jwt

import (
	"context"
	"net/http"
	"strings"

	"callinvite/internal/pkg/errs"
	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/resp"
)

type contextKey string

const (
	// ContextAuthPayloadKey stores the verified *Payload in the request context.
	ContextAuthPayloadKey contextKey = "auth_payload"

	// QueryTokenKey is the query parameter used by websocket clients, which cannot set headers.
	QueryTokenKey = "access_token"
)

// TokenFromRequest reads the token from the Authorization header or the access_token query parameter.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	return strings.TrimSpace(r.URL.Query().Get(QueryTokenKey))
}

// RequireAccessToken rejects requests without a valid access token with 401
// and injects the verified Payload into the context otherwise.
func RequireAccessToken(apiKey, secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := ParseAccessToken(TokenFromRequest(r), apiKey, secret)
			if err != nil {
				logx.Warn("Rejected request with invalid access token", "error", err.Error())
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext returns the verified Payload, or nil when none is present.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	if !ok {
		return nil
	}

	return payload
}
