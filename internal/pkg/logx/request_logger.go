/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP middleware that logs each request once it completes.
Client IPs are anonymized and bearer-style query parameters (invite tokens, access
tokens) are redacted before the URI is written to the log.
*/
package logx

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// sensitiveParams lists query parameters whose values grant access and must never be logged.
var sensitiveParams = []string{"token", "access_token"}

// anonymizeIP zeros the last IPv4 octet or keeps only the first half of an IPv6 address.
func anonymizeIP(ipStr string) string {
	host, _, err := net.SplitHostPort(ipStr)
	if err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		return "127.0.0.1"
	}

	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}

	return ip.Mask(net.CIDRMask(64, 128)).String()
}

// redactURI replaces the values of sensitive query parameters with "REDACTED".
func redactURI(u *url.URL) string {
	if u == nil {
		return ""
	}

	query := u.Query()
	changed := false
	for _, key := range sensitiveParams {
		if query.Has(key) {
			query.Set(key, "REDACTED")
			changed = true
		}
	}

	if !changed {
		return u.RequestURI()
	}

	redacted := *u
	redacted.RawQuery = query.Encode()
	return redacted.RequestURI()
}

// RequestLogger returns middleware that logs method, URI, status, size and latency.
// The per-request logger is stored in the request context for handlers to reuse.
func RequestLogger() func(next http.Handler) http.Handler {
	baseLogger := Logger()

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := baseLogger.With().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("request_method", r.Method).
				Str("request_uri", redactURI(r.URL)).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))

			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()

			logEvent := logger.Info()
			if status >= 500 {
				logEvent = logger.Error()
			} else if status >= 400 {
				logEvent = logger.Warn()
			}

			logEvent.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Msg("Request completed")
		}

		return http.HandlerFunc(fn)
	}
}
