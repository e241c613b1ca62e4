/*
Package translate looks up caption translations from the MyMemory HTTP API.
*/
package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public MyMemory endpoint.
const DefaultBaseURL = "https://api.mymemory.translated.net"

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

// ErrEmptyTranslation is returned when the service answers without a translation.
var ErrEmptyTranslation = errors.New("translate: empty translation")

// Client calls the translation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for baseURL (DefaultBaseURL when empty).
// A timeout <= 0 uses a 5 second default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Translate returns text translated from source to target. Identical languages
// return text unchanged without a request.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}

	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", source+"|"+target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("translate: read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: unexpected http status %d", res.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return "", errors.New("translate: invalid json response")
	}

	result := gjson.ParseBytes(body)

	// responseStatus is a number on success and sometimes a string on quota errors.
	if status := result.Get("responseStatus"); status.Exists() && status.Int() != http.StatusOK {
		details := result.Get("responseDetails").String()
		return "", fmt.Errorf("translate: service status %d: %s", status.Int(), details)
	}

	translated := strings.TrimSpace(result.Get("responseData.translatedText").String())
	if translated == "" {
		return "", ErrEmptyTranslation
	}

	return translated, nil
}
