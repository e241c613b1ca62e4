package handler

import (
	"net/http"

	"callinvite/internal/app/reaction"
	"callinvite/internal/pkg/lang"
	"callinvite/internal/pkg/resp"
)

type ClientConfigResponse struct {
	LiveKitURL       string        `json:"livekitUrl"`
	SupabaseURL      string        `json:"supabaseUrl"`
	SupabaseAnonKey  string        `json:"supabaseAnonKey"`
	CaptionLanguages []lang.Option `json:"captionLanguages"`
	ReactionEmojis   []string      `json:"reactionEmojis"`

	// TranslateURL is the translation lookup clients should call.
	TranslateURL       string `json:"translateUrl"`
	TranslateTimeoutMs int64  `json:"translateTimeoutMs"`
}

// HandleClientConfig returns the public settings a browser client needs.
func HandleClientConfig(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, ClientConfigResponse{
			LiveKitURL:         deps.Config.LiveKit.URL,
			SupabaseURL:        deps.Config.SupabaseURL,
			SupabaseAnonKey:    deps.Config.SupabaseAnonKey,
			CaptionLanguages:   lang.Supported,
			ReactionEmojis:     reaction.PresetEmojis,
			TranslateURL:       deps.Config.TranslateURL,
			TranslateTimeoutMs: deps.Config.TranslateTimeout.Milliseconds(),
		})
	}
}
