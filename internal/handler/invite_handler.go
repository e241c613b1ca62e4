/*
Package handler provides the HTTP handlers and routing setup for the call invite server.

This file contains the invite endpoints: creating an invite batch and validating a
token when a recipient follows their join link.
*/
package handler

import (
	"errors"
	"net/http"

	"callinvite/internal/app/invite"
	"callinvite/internal/pkg/errs"
	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/req"
	"callinvite/internal/pkg/resp"
)

type CreateInviteInput struct {
	// Emails lists the recipients. Blank entries are ignored.
	Emails []string `json:"emails"`
	// Email is accepted for single-recipient clients and merged into Emails.
	Email string `json:"email,omitempty"`
	// RoomName is optional; a unique name is generated when empty.
	RoomName string `json:"roomName,omitempty"`
	// CaptionLang is the default caption language for the room.
	CaptionLang string `json:"captionLang,omitempty"`
}

type CreateInviteResponse struct {
	// Success is false when no recipient could be invited.
	Success  bool            `json:"success"`
	RoomID   string          `json:"roomId"`
	RoomName string          `json:"roomName"`
	Results  []invite.Result `json:"results"`
}

// HandleCreateInvites creates one room and an invite per recipient.
func HandleCreateInvites(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateInviteInput

		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		emails := input.Emails
		if input.Email != "" {
			emails = append(emails, input.Email)
		}

		batch, err := deps.Invites.CreateInvites(r.Context(), invite.CreateInvitesInput{
			Emails:      emails,
			RoomName:    input.RoomName,
			CaptionLang: input.CaptionLang,
		})
		if err != nil {
			if errors.Is(err, invite.ErrNoRecipients) {
				resp.RespondError(w, r, errs.NewError(errs.ErrEmailsRequired))
				return
			}

			logx.Error(err, "Failed to create invite batch")
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomCreateFailed))
			return
		}

		logx.Info("Invite batch created", "room_id", batch.Room.ID, "recipients", len(batch.Results))

		resp.RespondCreated(w, r, CreateInviteResponse{
			Success:  anyDelivered(batch.Results),
			RoomID:   batch.Room.ID,
			RoomName: batch.Room.LiveKitRoomName,
			Results:  batch.Results,
		})
	}
}

// anyDelivered reports whether at least one recipient got (or would have got) their link.
func anyDelivered(results []invite.Result) bool {
	for _, res := range results {
		if res.Status == invite.StatusSent || res.Status == invite.StatusMockSent {
			return true
		}
	}
	return false
}

type ValidateInviteResponse struct {
	Valid       bool   `json:"valid"`
	RoomName    string `json:"roomName,omitempty"`
	Email       string `json:"email,omitempty"`
	CaptionLang string `json:"captionLang,omitempty"`
	Code        int    `json:"code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HandleValidateInvite resolves an invite token to its room.
func HandleValidateInvite(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		validation, err := deps.Invites.ValidateInvite(r.Context(), req.Query(r, "token"))
		if err != nil {
			var customErr *errs.CustomError

			switch {
			case errors.Is(err, invite.ErrTokenRequired):
				resp.RespondError(w, r, errs.NewError(errs.ErrInviteTokenRequired))
				return
			case errors.Is(err, invite.ErrInviteNotFound):
				customErr = errs.NewError(errs.ErrInviteNotFound)
			case errors.Is(err, invite.ErrInviteExpired):
				customErr = errs.NewError(errs.ErrInviteExpired)
			default:
				logx.Error(err, "Failed to validate invite")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			resp.RespondJSON(w, r, customErr.Status, ValidateInviteResponse{
				Valid: false,
				Code:  customErr.Code,
				Error: customErr.Message,
			})
			return
		}

		resp.RespondSuccess(w, r, ValidateInviteResponse{
			Valid:       true,
			RoomName:    validation.RoomName,
			Email:       validation.Email,
			CaptionLang: validation.CaptionLang,
		})
	}
}
