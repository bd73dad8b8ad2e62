package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	obmocks "letreviewer/shared/observability/mocks"
	"letreviewer/workers/retriever/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(cfg ClientConfig) *Client {
	return NewClient(cfg, obmocks.NewQuietLogger(), obmocks.NewQuietMetrics())
}

func TestClient_Fetch(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("binary"))
	}))
	defer server.Close()

	client := newTestClient(ClientConfig{UserAgent: "Mozilla/5.0 test"})
	resp, err := client.Fetch(context.Background(), server.URL, map[string]string{"Accept": "*/*"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.ContentType)
	assert.Equal(t, "binary", string(resp.Body))
	assert.Equal(t, "Mozilla/5.0 test", gotUA)
	assert.Equal(t, "*/*", gotAccept)
}

func TestClient_HeaderOverridesUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	_, err := newTestClient(DefaultConfig()).Fetch(context.Background(), server.URL, map[string]string{"User-Agent": "custom"})

	require.NoError(t, err)
	assert.Equal(t, "custom", gotUA)
}

func TestClient_NonSuccessIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html>denied</html>"))
	}))
	defer server.Close()

	resp, err := newTestClient(DefaultConfig()).Fetch(context.Background(), server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "<html>denied</html>", string(resp.Body))
}

func TestClient_BodyCap(t *testing.T) {
	t.Run("declared length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Repeat("a", 64)))
		}))
		defer server.Close()

		_, err := newTestClient(ClientConfig{MaxBodySize: 16}).Fetch(context.Background(), server.URL, nil)
		assert.ErrorIs(t, err, domain.ErrArtifactTooLarge)
	})

	t.Run("chunked body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for i := 0; i < 8; i++ {
				w.Write([]byte(strings.Repeat("b", 8)))
				w.(http.Flusher).Flush()
			}
		}))
		defer server.Close()

		_, err := newTestClient(ClientConfig{MaxBodySize: 16}).Fetch(context.Background(), server.URL, nil)
		assert.ErrorIs(t, err, domain.ErrArtifactTooLarge)
	})

	t.Run("exactly at the cap", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Repeat("c", 16)))
		}))
		defer server.Close()

		resp, err := newTestClient(ClientConfig{MaxBodySize: 16}).Fetch(context.Background(), server.URL, nil)
		require.NoError(t, err)
		assert.Len(t, resp.Body, 16)
	})
}

func TestClient_TransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newTestClient(DefaultConfig()).Fetch(context.Background(), url, nil)
		require.Error(t, err)
		var domainErr *domain.DomainError
		assert.False(t, errors.As(err, &domainErr))
	})

	t.Run("context deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := newTestClient(DefaultConfig()).Fetch(ctx, server.URL, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := newTestClient(DefaultConfig()).Fetch(context.Background(), "://bad", nil)
		assert.Error(t, err)
	})
}
