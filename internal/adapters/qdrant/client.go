package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Client talks to a Qdrant instance over its REST API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	log        *logger.Logger
}

// ScoredPoint is a single search hit with its similarity score and stored payload.
type ScoredPoint struct {
	ID      json.Number            `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// NewClient creates a Qdrant client for the configured collection.
func NewClient(cfg config.SearchConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.QdrantURL, "/"),
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Get().With("component", "qdrant", "collection", cfg.Collection),
	}
}

// Search runs a vector similarity search and returns hits above the score threshold.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	if len(vector) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty query vector")
	}
	if limit <= 0 {
		limit = 5
	}

	payload := map[string]interface{}{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}

	var result struct {
		Result []ScoredPoint `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, payload, &result); err != nil {
		return nil, err
	}

	c.log.Debugw("Vector search completed", "hits", len(result.Result), "limit", limit)
	return result.Result, nil
}

// UpsertPoint writes (or overwrites) a point with its vector and payload.
func (c *Client) UpsertPoint(ctx context.Context, id interface{}, vector []float32, payload map[string]interface{}) error {
	body := map[string]interface{}{
		"points": []map[string]interface{}{
			{"id": id, "vector": vector, "payload": payload},
		},
	}
	url := fmt.Sprintf("%s/collections/%s/points", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPut, url, body, nil)
}

// DeletePoints removes points by ID.
func (c *Client) DeletePoints(ctx context.Context, ids ...interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]interface{}{"points": ids}
	url := fmt.Sprintf("%s/collections/%s/points/delete", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPost, url, body, nil)
}

// Health verifies that the collection exists and is reachable.
func (c *Client) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	return c.do(ctx, http.MethodGet, url, nil, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal qdrant request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "create qdrant request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read qdrant response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(errors.ErrNotFound, "qdrant %s: %s", url, string(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrapf(errors.ErrExternal, "qdrant API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrap(err, "unmarshal qdrant response")
		}
	}
	return nil
}
