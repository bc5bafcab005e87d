package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://example.org/article", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))

		_ = json.NewEncoder(w).Encode(ReadResponse{
			Code: 200,
			Data: ReadData{
				Title:   "Example Article",
				URL:     "https://example.org/article",
				Content: "# Example\n\nContent here.",
				Usage:   ReadUsage{Tokens: 42},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))

	resp, err := client.Read(context.Background(), "https://example.org/article")
	require.NoError(t, err)
	assert.Equal(t, "Example Article", resp.Data.Title)
	assert.Equal(t, "# Example\n\nContent here.", resp.Data.Content)
	assert.Equal(t, 42, resp.Data.Usage.Tokens)
}

func TestReadRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(ReadResponse{Code: 200, Data: ReadData{Content: "ok"}})
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))

	resp, err := client.Read(context.Background(), "https://example.org/a")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReadPermanentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "invalid key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL))

	_, err := client.Read(context.Background(), "https://example.org/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestEmbed(t *testing.T) {
	var gotReq embedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		// Out-of-order response items; the client must reorder by index.
		_ = json.NewEncoder(w).Encode(embedResponse{Data: []embedItem{
			{Index: 1, Embedding: []float32{1, 1}},
			{Index: 0, Embedding: []float32{0, 0}},
		}})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithEmbedBaseURL(srv.URL), WithEmbedModel("jina-embeddings-v3"))

	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, "jina-embeddings-v3", gotReq.Model)
	assert.Equal(t, []string{"first", "second"}, gotReq.Input)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 0}, vectors[0])
	assert.Equal(t, []float32{1, 1}, vectors[1])
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Data: []embedItem{{Index: 0, Embedding: []float32{1}}}})
	}))
	defer srv.Close()

	client := NewClient("k", WithEmbedBaseURL(srv.URL))

	_, err := client.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 inputs")
}

func TestEmbedEmptyInput(t *testing.T) {
	client := NewClient("k")
	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedRetriesWithBody(t *testing.T) {
	var calls atomic.Int32
	var lastInput []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		lastInput = req.Input
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Data: []embedItem{{Index: 0, Embedding: []float32{1}}}})
	}))
	defer srv.Close()

	client := NewClient("k", WithEmbedBaseURL(srv.URL))

	_, err := client.Embed(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"text"}, lastInput, "request body is replayed on retry")
}
