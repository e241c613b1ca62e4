package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/randx"
)

const maxResponseSize = 64 << 10

// apiClient talks to the call invite server's JSON endpoints.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{base: base, http: &http.Client{Timeout: 15 * time.Second}}
}

// get fetches path with query and returns the status code and body.
func (c *apiClient) get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return 0, nil, fmt.Errorf("parse server url: %w", err)
	}
	u = u.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return res.StatusCode, body, nil
}

type serverSettings struct {
	translateURL     string
	translateTimeout time.Duration
}

func (c *apiClient) clientConfig(ctx context.Context) (*serverSettings, error) {
	status, body, err := c.get(ctx, "client-config", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("client config request failed (%d)", status)
	}

	return &serverSettings{
		translateURL:     gjson.GetBytes(body, "translateUrl").String(),
		translateTimeout: time.Duration(gjson.GetBytes(body, "translateTimeoutMs").Int()) * time.Millisecond,
	}, nil
}

type inviteTarget struct {
	room        string
	captionLang string
}

// validateInvite resolves an invite token the way the join page does.
func (c *apiClient) validateInvite(ctx context.Context, token string) (*inviteTarget, error) {
	status, body, err := c.get(ctx, "validate-invite", url.Values{"token": {token}})
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK || !gjson.GetBytes(body, "valid").Bool() {
		reason := gjson.GetBytes(body, "error").String()
		if reason == "" {
			reason = "Unknown error"
		}
		return nil, fmt.Errorf("invalid invite: %s", reason)
	}

	return &inviteTarget{
		room:        gjson.GetBytes(body, "roomName").String(),
		captionLang: gjson.GetBytes(body, "captionLang").String(),
	}, nil
}

// token asks the server for a media-service token granting access to room.
func (c *apiClient) token(ctx context.Context, room, identity, name string) (string, error) {
	query := url.Values{"room": {room}, "identity": {identity}}
	if name != "" {
		query.Set("name", name)
	}

	status, body, err := c.get(ctx, "livekit/token", query)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("token request failed (%d): %s", status, gjson.GetBytes(body, "error").String())
	}

	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		return "", errors.New("token response carried no token")
	}
	return token, nil
}

// prepare fills in what the flags left open: the room and caption language from an
// invite, a guest identity, and translation settings from the server.
func prepare(ctx context.Context, api *apiClient, opts options) (options, error) {
	if opts.invite != "" {
		target, err := api.validateInvite(ctx, opts.invite)
		if err != nil {
			return opts, err
		}
		opts.room = target.room
		if !opts.langSet && target.captionLang != "" {
			opts.lang = target.captionLang
		}
	}

	if opts.room == "" {
		return opts, errors.New("--room or --invite is required")
	}

	if opts.identity == "" {
		suffix, err := randx.Base62(6)
		if err != nil {
			return opts, err
		}
		opts.identity = "user-" + suffix
	}

	settings, err := api.clientConfig(ctx)
	if err != nil {
		logx.Warn("Could not load client config, using local translation defaults", "error", err.Error())
		return opts, nil
	}
	if !opts.translateURLSet && settings.translateURL != "" {
		opts.translateURL = settings.translateURL
	}
	if settings.translateTimeout > 0 {
		opts.translateTimeout = settings.translateTimeout
	}

	return opts, nil
}
