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

func TestChatCompletionClassifyParsesChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "sid")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"category\":\"session\",\"purpose\":\"auth\",\"sensitivity\":\"High\",\"third_party\":false,\"confidence\":0.9}"}}]}`))
	}))
	defer srv.Close()

	c := NewChatCompletionClient(srv.URL, "test-key", "gpt-4")
	d, raw, err := c.Classify(context.Background(), "sid", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "session", string(d.Category))
	assert.Equal(t, 0.9, d.Confidence)
	assert.Contains(t, raw, "session")
}

func TestChatCompletionClassifyNonOKStatusIsLMUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewChatCompletionClient(srv.URL, "test-key", "gpt-4")
	_, _, err := c.Classify(context.Background(), "sid", "example.com")
	assert.ErrorIs(t, err, ErrLMUnavailable)
}

func TestChatCompletionListModelsParsesDataArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-4"}]}`))
	}))
	defer srv.Close()

	c := NewChatCompletionClient(srv.URL, "test-key", "gpt-4")
	ids, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4"}, ids)
}

func TestChatCompletionListModelsFallsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewChatCompletionClient(srv.URL, "bad-key", "gpt-4")
	ids, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, staticModelFallback, ids)
}
