package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.SearchConfig{
		QdrantURL:  server.URL,
		Collection: "products_kb",
	})
	return client, server
}

func TestSearchSendsThresholdAndParsesHits(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collections/products_kb/points/search", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 0.3, body["score_threshold"])
		assert.Equal(t, true, body["with_payload"])
		assert.Equal(t, float64(5), body["limit"])

		_, _ = w.Write([]byte(`{"result":[
			{"id":1,"score":0.91,"payload":{"name":"iPhone 15 Pro","price":999}},
			{"id":2,"score":0.42,"payload":{"name":"MacBook Air","price":1199}}
		]}`))
	})

	hits, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0.91, hits[0].Score)
	assert.Equal(t, "iPhone 15 Pro", hits[0].Payload["name"])
}

func TestSearchRejectsEmptyVector(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Search(context.Background(), nil, 5, 0.3)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestSearchWrapsAPIErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"collection not found"}}`, http.StatusNotFound)
	})

	_, err := client.Search(context.Background(), []float32{0.1}, 5, 0.3)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestUpsertAndDeletePoints(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	ctx := context.Background()
	require.NoError(t, client.UpsertPoint(ctx, 7, []float32{0.5}, map[string]interface{}{"name": "iPad"}))
	require.NoError(t, client.DeletePoints(ctx, 7))
	require.NoError(t, client.DeletePoints(ctx)) // no-op without IDs

	assert.Equal(t, []string{
		"PUT /collections/products_kb/points",
		"POST /collections/products_kb/points/delete",
	}, paths)
}
