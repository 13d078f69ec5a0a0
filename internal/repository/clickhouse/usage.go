package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"hermes/internal/domain/usage"
	"hermes/pkg/clickhouse"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Compile-time check
var _ usage.Repository = (*UsageRepository)(nil)

// UsageRepository archives usage records in ClickHouse. Writes go through
// the batch writer; single-row inserts would waste ClickHouse's bulk path.
type UsageRepository struct {
	conn        driver.Conn
	batchWriter *clickhouse.BatchWriter
}

// NewUsageRepository creates a usage archive with a batch writer.
func NewUsageRepository(conn driver.Conn) *UsageRepository {
	repo := &UsageRepository{conn: conn}

	repo.batchWriter = clickhouse.NewBatchWriter(clickhouse.BatchWriterConfig{
		FlushFunc:    repo.flushBatch,
		TableName:    "agent_usage",
		MaxBatchSize: 500,
		MaxAge:       5 * time.Second,
	})

	return repo
}

// Start begins the background flush loop.
func (r *UsageRepository) Start(ctx context.Context) {
	r.batchWriter.Start(ctx)
}

// Stop flushes pending records and shuts the writer down.
func (r *UsageRepository) Stop(ctx context.Context) error {
	return r.batchWriter.Stop(ctx)
}

// Store buffers a usage record for the next batch insert.
func (r *UsageRepository) Store(ctx context.Context, record *usage.Record) error {
	return r.batchWriter.Add(ctx, record)
}

func (r *UsageRepository) flushBatch(ctx context.Context, batch []any) error {
	if len(batch) == 0 {
		return nil
	}

	log := logger.Get().With("component", "usage_batch")

	query := `
		INSERT INTO agent_usage (
			timestamp, event_id, chat_id, user_id,
			agent_type, provider, model,
			input_tokens, output_tokens, total_tokens,
			input_cost_usd, output_cost_usd, total_cost_usd,
			tokens_estimated, latency_ms, success, error
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?
		)
	`

	start := time.Now()

	stmt, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return errors.Wrap(err, "prepare usage batch")
	}
	defer stmt.Close()

	valid := 0
	for _, item := range batch {
		record, ok := item.(*usage.Record)
		if !ok {
			log.Warnf("Skipping invalid item type: %T", item)
			continue
		}

		err := stmt.Append(
			record.Timestamp, record.EventID, record.ChatID, record.UserID,
			record.AgentType, record.Provider, record.Model,
			record.InputTokens, record.OutputTokens, record.TotalTokens,
			record.InputCost, record.OutputCost, record.TotalCost,
			record.TokensEstimated, record.LatencyMs, record.Success, record.Error,
		)
		if err != nil {
			return errors.Wrap(err, "append to usage batch")
		}
		valid++
	}

	if err := stmt.Send(); err != nil {
		return errors.Wrap(err, "send usage batch")
	}

	log.Infof("Batch inserted %d usage records in %v", valid, time.Since(start))
	return nil
}

// AgentCosts returns total cost grouped by agent type for a time range.
func (r *UsageRepository) AgentCosts(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	query := `
		SELECT agent_type, sum(total_cost_usd) as total_cost
		FROM agent_usage
		WHERE timestamp BETWEEN ? AND ?
		GROUP BY agent_type
		ORDER BY total_cost DESC
	`
	return r.groupedCosts(ctx, query, from, to)
}

// ModelCosts returns total cost grouped by model for a time range.
func (r *UsageRepository) ModelCosts(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	query := `
		SELECT model, sum(total_cost_usd) as total_cost
		FROM agent_usage
		WHERE timestamp BETWEEN ? AND ?
		GROUP BY model
		ORDER BY total_cost DESC
	`
	return r.groupedCosts(ctx, query, from, to)
}

// ChatStats returns the archived agent activity for one conversation.
// Freshly buffered records are not visible until the next batch flush.
func (r *UsageRepository) ChatStats(ctx context.Context, chatID int64) (usage.ChatStats, error) {
	query := `
		SELECT
			count() as invocations,
			groupUniqArray(agent_type) as agent_types,
			sum(total_cost_usd) as total_cost
		FROM agent_usage
		WHERE chat_id = ?
	`

	var stats usage.ChatStats
	row := r.conn.QueryRow(ctx, query, chatID)

	var invocations uint64
	if err := row.Scan(&invocations, &stats.AgentTypes, &stats.TotalCost); err != nil {
		return usage.ChatStats{}, errors.Wrap(err, "scan chat usage stats")
	}
	stats.Invocations = int64(invocations)

	return stats, nil
}

func (r *UsageRepository) groupedCosts(ctx context.Context, query string, from, to time.Time) (map[string]float64, error) {
	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "query grouped usage costs")
	}
	defer rows.Close()

	costs := make(map[string]float64)
	for rows.Next() {
		var key string
		var cost float64
		if err := rows.Scan(&key, &cost); err != nil {
			return nil, errors.Wrap(err, "scan usage cost row")
		}
		costs[key] = cost
	}

	return costs, rows.Err()
}
