// Package qdrant provides a minimal client for the Qdrant points API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Qdrant operations used by the index stage.
type Client interface {
	// UpsertPoints inserts or replaces points in a collection, keyed by point ID.
	UpsertPoints(ctx context.Context, collection string, points []Point) error
}

// Point is one vector-index entry: the record identifier, its embedding,
// and a denormalized payload for filtered search.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

type upsertRequest struct {
	Points []Point `json:"points"`
}

type statusResponse struct {
	Status any     `json:"status"`
	Time   float64 `json:"time"`
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Qdrant client for the given endpoint URL.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	body, err := json.Marshal(upsertRequest{Points: points})
	if err != nil {
		return eris.Wrap(err, "qdrant: marshal points")
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "qdrant: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "qdrant: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "qdrant: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("qdrant: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result statusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return eris.Wrap(err, "qdrant: unmarshal response")
	}

	return nil
}
