package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get", r.URL.Path)
		assert.Equal(t, "good morning", r.URL.Query().Get("q"))
		assert.Equal(t, "en|es", r.URL.Query().Get("langpair"))
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"buenos días","match":1},"responseStatus":200}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL+"/", time.Second).Translate(context.Background(), "good morning", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "buenos días", got)
}

func TestTranslateSameLanguageSkipsRequest(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)

	got, err := c.Translate(context.Background(), "hello", "en", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestTranslateErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"http error":      {http.StatusBadGateway, `{}`},
		"service status":  {http.StatusOK, `{"responseData":{"translatedText":"QUOTA"},"responseStatus":"429","responseDetails":"quota"}`},
		"empty":           {http.StatusOK, `{"responseData":{"translatedText":""},"responseStatus":200}`},
		"invalid json":    {http.StatusOK, `<html>`},
		"missing payload": {http.StatusOK, `{"responseStatus":200}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Translate(context.Background(), "hello", "en", "fr")
			assert.Error(t, err)
		})
	}
}

func TestTranslateHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, 5*time.Second).Translate(ctx, "hello", "en", "de")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", 0)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
}
