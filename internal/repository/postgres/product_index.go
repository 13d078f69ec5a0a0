package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"hermes/internal/adapters/embeddings"
	"hermes/internal/domain/product"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Compile-time check
var _ product.Searcher = (*ProductIndex)(nil)

// ProductIndex implements product.Searcher on Postgres with pgvector,
// as an alternative to the Qdrant backend. Each indexed row stores the
// product payload as JSONB next to its embedding.
type ProductIndex struct {
	db       *sqlx.DB
	embedder embeddings.Provider
	log      *logger.Logger
}

// NewProductIndex creates a pgvector-backed product searcher.
func NewProductIndex(db *sqlx.DB, embedder embeddings.Provider) *ProductIndex {
	return &ProductIndex{
		db:       db,
		embedder: embedder,
		log:      logger.Get().With("component", "product_index"),
	}
}

type productIndexRow struct {
	Payload    []byte  `db:"payload"`
	Similarity float64 `db:"similarity"`
}

// Search embeds the query and returns products above the similarity
// threshold, best match first.
func (r *ProductIndex) Search(ctx context.Context, query string, limit int, scoreThreshold float64) ([]product.Match, error) {
	if query == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty search query")
	}
	if limit <= 0 {
		limit = 5
	}

	vector, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed search query")
	}

	sqlQuery := `
		SELECT payload, 1 - (embedding <=> $1) as similarity
		FROM product_index
		WHERE embedding_model = $2
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`

	var rows []productIndexRow
	err = r.db.SelectContext(ctx, &rows, sqlQuery,
		pgvector.NewVector(vector), r.embedder.Name(), scoreThreshold, limit)
	if err != nil {
		return nil, errors.Wrap(err, "pgvector product search")
	}

	matches := make([]product.Match, 0, len(rows))
	for _, row := range rows {
		var payload map[string]interface{}
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			r.log.Warnf("Skipping product row with bad payload: %v", err)
			continue
		}

		p, err := product.Decode(payload)
		if err != nil {
			r.log.Warnf("Skipping undecodable product payload: %v", err)
			continue
		}

		matches = append(matches, product.Match{Score: row.Similarity, Product: p})
	}

	return matches, nil
}

// Index upserts one product with its embedding so it becomes searchable.
func (r *ProductIndex) Index(ctx context.Context, p product.Product, document string) error {
	vector, err := r.embedder.GenerateEmbedding(ctx, document)
	if err != nil {
		return errors.Wrap(err, "embed product document")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":          p.ID,
		"category":    p.Category.String(),
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"stock":       p.Stock,
	})
	if err != nil {
		return errors.Wrap(err, "marshal product payload")
	}

	query := `
		INSERT INTO product_index (product_id, embedding_model, embedding, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, embedding_model)
		DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`

	_, err = r.db.ExecContext(ctx, query, p.ID, r.embedder.Name(), pgvector.NewVector(vector), payload)
	if err != nil {
		return errors.Wrap(err, "upsert product index row")
	}
	return nil
}
