package usage

import (
	"context"
	"time"
)

// Repository archives usage records. The archive is append-only; there is
// no update or delete path.
type Repository interface {
	// Store appends a usage record to the archive.
	Store(ctx context.Context, record *Record) error

	// AgentCosts returns total cost grouped by agent type for a time range.
	AgentCosts(ctx context.Context, from, to time.Time) (map[string]float64, error)

	// ModelCosts returns total cost grouped by model for a time range.
	ModelCosts(ctx context.Context, from, to time.Time) (map[string]float64, error)

	// ChatStats returns lifetime invocation count, agents used and total
	// cost for one conversation.
	ChatStats(ctx context.Context, chatID int64) (ChatStats, error)
}

// ChatStats summarizes the archived agent activity of a single chat.
type ChatStats struct {
	Invocations int64
	AgentTypes  []string
	TotalCost   float64
}
