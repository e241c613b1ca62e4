/*
Package handler provides the HTTP handlers and routing setup for the call invite server.

This file contains HandleRelay, which authenticates a member with their media-service
access token, upgrades the connection to WebSocket and attaches it to the room hub.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"callinvite/internal/app/participant"
	"callinvite/internal/app/relay"
	"callinvite/internal/pkg/auth/jwt"
	"callinvite/internal/pkg/errs"
	"callinvite/internal/pkg/limiter"
	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/resp"
)

// HandleRelay serves GET /relay/{room}. It must run behind jwt.RequireAccessToken.
func HandleRelay(deps *AppDeps, upgrader websocket.Upgrader, joinLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !joinLimiter.Allow(r) {
			logx.Warn("Relay connection rejected: rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		roomName := chi.URLParam(r, "room")
		if roomName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if !payload.CanJoin(roomName) {
			logx.Warn("Relay connection rejected: token not valid for room.", "room", roomName, "identity", payload.Identity())
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomForbidden))
			return
		}

		if deps.Relay.Closed() {
			resp.RespondError(w, r, errs.NewError(errs.ErrRelayUnavailable))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := relay.NewClient(conn, participant.FromPayload(payload))

		if err := deps.Relay.Join(roomName, client); err != nil {
			logx.Warn("Relay join failed", "room", roomName, "error", err.Error())

			code := websocket.CloseInternalServerErr
			if errors.Is(err, relay.ErrHubClosed) {
				code = websocket.CloseServiceRestart
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()))
			_ = conn.Close()
			return
		}

		logx.Info("Relay connection established", "room", roomName, "identity", payload.Identity())

		go client.WritePump()
		client.ReadPump()
	}
}
