package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertPoints(t *testing.T) {
	var gotPath, gotKey, gotWait string
	var gotBody upsertRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotWait = r.URL.Query().Get("wait")
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"status": {"result": "acknowledged"}, "time": 0.002}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")

	points := []Point{
		{ID: "id-1", Vector: []float32{0.1, 0.2}, Payload: map[string]any{"title": "First"}},
		{ID: "id-2", Vector: []float32{0.3, 0.4}},
	}
	require.NoError(t, client.UpsertPoints(context.Background(), "opportunities_v1", points))

	assert.Equal(t, "/collections/opportunities_v1/points", gotPath)
	assert.Equal(t, "true", gotWait)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotBody.Points, 2)
	assert.Equal(t, "id-1", gotBody.Points[0].ID)
	assert.Equal(t, "First", gotBody.Points[0].Payload["title"])
}

func TestUpsertPointsEmptyIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	require.NoError(t, client.UpsertPoints(context.Background(), "c", nil))
	assert.False(t, called)
}

func TestUpsertPointsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status": {"error": "collection not found"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.UpsertPoints(context.Background(), "missing", []Point{{ID: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "collection not found")
}

func TestUpsertPointsOmitsAPIKeyHeaderWhenUnset(t *testing.T) {
	var hasHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasHeader = r.Header["Api-Key"]
		_, _ = w.Write([]byte(`{"status": "ok", "time": 0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	require.NoError(t, client.UpsertPoints(context.Background(), "c", []Point{{ID: "x"}}))
	assert.False(t, hasHeader)
}
