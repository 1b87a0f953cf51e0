package lmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesClassifyParsesContentBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "sid")

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"category\":\"tracking\",\"confidence\":0.8}"}]}`))
	}))
	defer srv.Close()

	c := NewMessagesClient(srv.URL, "test-key", "claude-3")
	d, raw, err := c.Classify(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "tracking", string(d.Category))
	assert.Equal(t, 0.8, d.Confidence)
	assert.Contains(t, raw, "tracking")
}

func TestMessagesListModelsAlwaysReturnsStaticFallback(t *testing.T) {
	c := NewMessagesClient("https://unused.invalid", "k", "claude-3")
	ids, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, staticModelFallback, ids)
}

func TestMessagesTestConnectionFailsOnBadEndpoint(t *testing.T) {
	c := NewMessagesClient("http://127.0.0.1:0", "k", "claude-3")
	err := c.TestConnection(context.Background())
	assert.Error(t, err)
}
