package qdrant

import (
	"context"

	"hermes/internal/adapters/embeddings"
	"hermes/internal/domain/product"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Compile-time check
var _ product.Searcher = (*ProductSearcher)(nil)

// ProductSearcher implements product.Searcher on top of the Qdrant client,
// embedding queries through the embedding provider.
type ProductSearcher struct {
	client   *Client
	embedder embeddings.Provider
	log      *logger.Logger
}

// NewProductSearcher creates a Qdrant-backed product searcher.
func NewProductSearcher(client *Client, embedder embeddings.Provider) *ProductSearcher {
	return &ProductSearcher{
		client:   client,
		embedder: embedder,
		log:      logger.Get().With("component", "product_searcher"),
	}
}

// Search embeds the query, runs the vector search, and decodes payloads into
// typed products. Undecodable payloads are skipped with a warning rather
// than failing the whole search.
func (s *ProductSearcher) Search(ctx context.Context, query string, limit int, scoreThreshold float64) ([]product.Match, error) {
	if query == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty search query")
	}

	vector, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed search query")
	}

	points, err := s.client.Search(ctx, vector, limit, scoreThreshold)
	if err != nil {
		return nil, err
	}

	matches := make([]product.Match, 0, len(points))
	for _, point := range points {
		p, err := product.Decode(point.Payload)
		if err != nil {
			s.log.Warnf("Skipping undecodable product payload (point %s): %v", point.ID, err)
			continue
		}
		matches = append(matches, product.Match{Score: point.Score, Product: p})
	}

	return matches, nil
}
