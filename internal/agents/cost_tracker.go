package agents

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/domain/usage"
	"hermes/internal/events"
	"hermes/internal/metrics"
	"hermes/pkg/logger"
)

// Redis hash fields within a cost bucket.
const (
	fieldTotalCost     = "total_cost"
	fieldTotalRequests = "total_requests"
	fieldTotalTokens   = "total_tokens"
)

// CostStore is the minimal Redis surface the tracker needs. Buckets are
// hashes so increments stay atomic under concurrent agents.
type CostStore interface {
	HIncrByFloat(ctx context.Context, key, field string, incr float64) error
	HIncrBy(ctx context.Context, key, field string, incr int64) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RedisCostStore implements CostStore on a live Redis connection.
type RedisCostStore struct {
	client *redis.Client
}

// NewRedisCostStore wraps a Redis client as a cost store.
func NewRedisCostStore(client *redis.Client) *RedisCostStore {
	return &RedisCostStore{client: client}
}

func (s *RedisCostStore) HIncrByFloat(ctx context.Context, key, field string, incr float64) error {
	return s.client.HIncrByFloat(ctx, key, field, incr).Err()
}

func (s *RedisCostStore) HIncrBy(ctx context.Context, key, field string, incr int64) error {
	return s.client.HIncrBy(ctx, key, field, incr).Err()
}

func (s *RedisCostStore) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *RedisCostStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisCostStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

var _ CostStore = (*RedisCostStore)(nil)

// Invocation describes one completed (or failed) agent call for accounting.
type Invocation struct {
	AgentType string
	Model     ai.ModelInfo

	ChatID int64
	UserID int64

	// InputText and OutputText back the token estimate when the provider
	// did not report usage.
	InputText  string
	OutputText string
	Usage      ai.Usage

	Latency      time.Duration
	Success      bool
	ErrorMessage string
}

// CostTracker prices agent invocations and maintains rolling day and month
// spending buckets in Redis. Each invocation is also archived to the usage
// repository and mirrored onto the event bus when those are configured.
type CostTracker struct {
	store     CostStore
	archive   usage.Repository
	publisher *events.Publisher
	cfg       config.CostConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewCostTracker creates a cost tracker. Store, archive and publisher are
// all optional; a nil store disables the Redis buckets.
func NewCostTracker(store CostStore, archive usage.Repository, publisher *events.Publisher, cfg config.CostConfig) *CostTracker {
	return &CostTracker{
		store:     store,
		archive:   archive,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.Get().With("component", "cost_tracker"),
		now:       time.Now,
	}
}

// estimateTokens approximates token count at four characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}

// CalculateCost prices a token count against a model's per-1K rates.
// Unknown models carry zero rates and price to zero.
func CalculateCost(model ai.ModelInfo, inputTokens, outputTokens int) (inputCost, outputCost float64) {
	inputCost = float64(inputTokens) / 1000.0 * model.InputCostPer1K
	outputCost = float64(outputTokens) / 1000.0 * model.OutputCostPer1K
	return inputCost, outputCost
}

// Track prices an invocation, updates the spending buckets and archives the
// record. Bucket and archive failures are logged, never propagated: cost
// accounting must not fail the conversation.
func (t *CostTracker) Track(ctx context.Context, inv Invocation) *usage.Record {
	inputTokens := inv.Usage.PromptTokens
	outputTokens := inv.Usage.CompletionTokens
	estimated := false
	if !inv.Usage.Reported() {
		inputTokens = estimateTokens(inv.InputText)
		outputTokens = estimateTokens(inv.OutputText)
		estimated = true
	}

	inputCost, outputCost := CalculateCost(inv.Model, inputTokens, outputTokens)
	totalCost := inputCost + outputCost
	if inv.Model.InputCostPer1K == 0 && inv.Model.OutputCostPer1K == 0 {
		t.log.Warnf("No pricing for model %q, recording zero cost", inv.Model.Name)
	}

	rec := &usage.Record{
		Timestamp:       t.now(),
		EventID:         uuid.NewString(),
		ChatID:          inv.ChatID,
		UserID:          inv.UserID,
		AgentType:       inv.AgentType,
		Provider:        string(inv.Model.Provider),
		Model:           inv.Model.Name,
		InputTokens:     uint32(inputTokens),
		OutputTokens:    uint32(outputTokens),
		TotalTokens:     uint32(inputTokens + outputTokens),
		InputCost:       inputCost,
		OutputCost:      outputCost,
		TotalCost:       totalCost,
		TokensEstimated: estimated,
		LatencyMs:       uint32(inv.Latency.Milliseconds()),
		Success:         inv.Success,
		Error:           inv.ErrorMessage,
	}

	if t.store != nil && t.cfg.TrackingEnabled {
		if err := t.saveBuckets(ctx, rec); err != nil {
			t.log.Errorf("Failed to update cost buckets: %v", err)
		}
	}

	if t.archive != nil {
		if err := t.archive.Store(ctx, rec); err != nil {
			t.log.Errorf("Failed to archive usage record: %v", err)
		}
	}

	if t.publisher != nil {
		event := events.UsageEvent{
			EventID:     rec.EventID,
			ChatID:      rec.ChatID,
			AgentType:   rec.AgentType,
			Provider:    rec.Provider,
			Model:       rec.Model,
			TotalTokens: rec.TotalTokens,
			TotalCost:   rec.TotalCost,
			Success:     rec.Success,
			Timestamp:   rec.Timestamp,
		}
		if err := t.publisher.PublishUsage(ctx, event); err != nil {
			t.log.Errorf("Failed to publish usage event: %v", err)
		}
	}

	metrics.AgentCost.WithLabelValues(rec.AgentType, rec.Model).Add(rec.TotalCost)
	metrics.AgentTokens.WithLabelValues(rec.AgentType, rec.Model, "input").Add(float64(rec.InputTokens))
	metrics.AgentTokens.WithLabelValues(rec.AgentType, rec.Model, "output").Add(float64(rec.OutputTokens))

	t.log.Infof("Usage recorded - agent: %s, model: %s, tokens: %d+%d, cost: $%.6f",
		rec.AgentType, rec.Model, rec.InputTokens, rec.OutputTokens, rec.TotalCost)

	return rec
}

func (t *CostTracker) saveBuckets(ctx context.Context, rec *usage.Record) error {
	day := rec.Timestamp.Format("2006-01-02")
	month := rec.Timestamp.Format("2006-01")

	dailyKey := "ai_costs:daily:" + day
	monthlyKey := "ai_costs:monthly:" + month
	agentKey := "ai_costs:agent:" + day
	modelKey := "ai_costs:model:" + day

	if err := t.store.HIncrByFloat(ctx, dailyKey, fieldTotalCost, rec.TotalCost); err != nil {
		return err
	}
	if err := t.store.HIncrBy(ctx, dailyKey, fieldTotalRequests, 1); err != nil {
		return err
	}
	if err := t.store.HIncrBy(ctx, dailyKey, fieldTotalTokens, int64(rec.TotalTokens)); err != nil {
		return err
	}
	if err := t.store.HIncrByFloat(ctx, monthlyKey, fieldTotalCost, rec.TotalCost); err != nil {
		return err
	}
	if err := t.store.HIncrByFloat(ctx, agentKey, rec.AgentType, rec.TotalCost); err != nil {
		return err
	}
	if err := t.store.HIncrByFloat(ctx, modelKey, rec.Model, rec.TotalCost); err != nil {
		return err
	}

	// Day buckets expire together; the monthly bucket must outlive its
	// month, so it gets the longer TTL.
	for _, key := range []string{dailyKey, agentKey, modelKey} {
		if err := t.store.Expire(ctx, key, 30*24*time.Hour); err != nil {
			return err
		}
	}
	return t.store.Expire(ctx, monthlyKey, t.cfg.BucketTTL)
}

// DailyCost returns the total spend for a day (today when zero time).
func (t *CostTracker) DailyCost(ctx context.Context, day time.Time) (float64, error) {
	if day.IsZero() {
		day = t.now()
	}
	return t.bucketCost(ctx, "ai_costs:daily:"+day.Format("2006-01-02"))
}

// MonthlyCost returns the total spend for a month (current when zero time).
func (t *CostTracker) MonthlyCost(ctx context.Context, month time.Time) (float64, error) {
	if month.IsZero() {
		month = t.now()
	}
	return t.bucketCost(ctx, "ai_costs:monthly:"+month.Format("2006-01"))
}

func (t *CostTracker) bucketCost(ctx context.Context, key string) (float64, error) {
	if t.store == nil {
		return 0, nil
	}

	val, err := t.store.HGet(ctx, key, fieldTotalCost)
	if err != nil || val == "" {
		return 0, err
	}
	return strconv.ParseFloat(val, 64)
}

// LimitStatus reports one spending window against its configured limit.
type LimitStatus struct {
	Current    float64 `json:"current"`
	Limit      float64 `json:"limit"`
	Exceeded   bool    `json:"exceeded"`
	Percentage float64 `json:"percentage"`
}

// LimitsSnapshot is an advisory point-in-time view of both windows.
type LimitsSnapshot struct {
	Daily   LimitStatus `json:"daily"`
	Monthly LimitStatus `json:"monthly"`
}

// CheckLimits compares current spend against both limits. Store failures
// degrade to zero spend so a Redis outage never blocks conversations.
func (t *CostTracker) CheckLimits(ctx context.Context) LimitsSnapshot {
	daily, err := t.DailyCost(ctx, time.Time{})
	if err != nil {
		t.log.Errorf("Failed to read daily cost: %v", err)
	}
	monthly, err := t.MonthlyCost(ctx, time.Time{})
	if err != nil {
		t.log.Errorf("Failed to read monthly cost: %v", err)
	}

	return LimitsSnapshot{
		Daily:   limitStatus(daily, t.cfg.DailyLimitUSD),
		Monthly: limitStatus(monthly, t.cfg.MonthlyLimitUSD),
	}
}

func limitStatus(current, limit float64) LimitStatus {
	status := LimitStatus{Current: current, Limit: limit}
	if limit > 0 {
		status.Exceeded = current > limit
		status.Percentage = current / limit * 100
	}
	return status
}

// CostSummary aggregates one spending window for reporting endpoints.
type CostSummary struct {
	Period                string             `json:"period"`
	TotalCost             float64            `json:"total_cost"`
	TotalRequests         int64              `json:"total_requests"`
	TotalTokens           int64              `json:"total_tokens"`
	ByAgent               map[string]float64 `json:"breakdown_by_agent"`
	ByModel               map[string]float64 `json:"breakdown_by_model"`
	AverageCostPerRequest float64            `json:"average_cost_per_request"`
}

// Summary builds the spending report for "daily" or "monthly". Daily
// breakdowns come from the Redis day hashes; monthly breakdowns are
// aggregated from the archive, which keeps every record.
func (t *CostTracker) Summary(ctx context.Context, period string) (*CostSummary, error) {
	summary := &CostSummary{
		Period:  period,
		ByAgent: map[string]float64{},
		ByModel: map[string]float64{},
	}
	if t.store == nil {
		return summary, nil
	}

	day := t.now().Format("2006-01-02")

	costKey := "ai_costs:daily:" + day
	if period == "monthly" {
		costKey = "ai_costs:monthly:" + t.now().Format("2006-01")
	}

	bucket, err := t.store.HGetAll(ctx, costKey)
	if err != nil {
		return nil, err
	}
	summary.TotalCost = parseFloatField(bucket, fieldTotalCost)
	summary.TotalRequests = parseIntField(bucket, fieldTotalRequests)
	summary.TotalTokens = parseIntField(bucket, fieldTotalTokens)
	if summary.TotalRequests > 0 {
		summary.AverageCostPerRequest = summary.TotalCost / float64(summary.TotalRequests)
	}

	if period != "monthly" {
		if byAgent, err := t.store.HGetAll(ctx, "ai_costs:agent:"+day); err == nil {
			summary.ByAgent = parseFloatMap(byAgent)
		}
		if byModel, err := t.store.HGetAll(ctx, "ai_costs:model:"+day); err == nil {
			summary.ByModel = parseFloatMap(byModel)
		}
	} else if t.archive != nil {
		from := time.Date(t.now().Year(), t.now().Month(), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		if byAgent, err := t.archive.AgentCosts(ctx, from, to); err == nil {
			summary.ByAgent = byAgent
		} else {
			t.log.Warnf("Failed to aggregate monthly agent costs: %v", err)
		}
		if byModel, err := t.archive.ModelCosts(ctx, from, to); err == nil {
			summary.ByModel = byModel
		} else {
			t.log.Warnf("Failed to aggregate monthly model costs: %v", err)
		}
	}

	return summary, nil
}

func parseFloatField(bucket map[string]string, field string) float64 {
	v, _ := strconv.ParseFloat(bucket[field], 64)
	return v
}

func parseIntField(bucket map[string]string, field string) int64 {
	v, _ := strconv.ParseInt(bucket[field], 10, 64)
	return v
}

func parseFloatMap(raw map[string]string) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		out[k] = f
	}
	return out
}
