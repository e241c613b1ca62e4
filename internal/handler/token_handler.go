package handler

import (
	"errors"
	"net/http"

	"callinvite/internal/app/access"
	"callinvite/internal/pkg/errs"
	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/req"
	"callinvite/internal/pkg/resp"
)

// HandleIssueToken mints a media-service token for ?room&identity&name.
func HandleIssueToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grant, err := deps.Tokens.IssueToken(req.Query(r, "room"), req.Query(r, "identity"), req.Query(r, "name"))
		if err != nil {
			switch {
			case errors.Is(err, access.ErrMissingRoomOrIdentity):
				resp.RespondError(w, r, errs.NewError(errs.ErrMissingRoomOrIdentity))
			case errors.Is(err, access.ErrNotConfigured):
				logx.Warn("Token requested but media service credentials are not configured")
				resp.RespondError(w, r, errs.NewError(errs.ErrServerMisconfigured))
			default:
				logx.Error(err, "Failed to sign access token")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			}
			return
		}

		resp.RespondSuccess(w, r, grant)
	}
}
