package agents

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/domain/usage"
)

// fakeArchive is an in-memory usage.Repository.
type fakeArchive struct {
	records []usage.Record
	byAgent map[string]float64
	byModel map[string]float64
}

func (a *fakeArchive) Store(_ context.Context, record *usage.Record) error {
	a.records = append(a.records, *record)
	return nil
}

func (a *fakeArchive) AgentCosts(context.Context, time.Time, time.Time) (map[string]float64, error) {
	return a.byAgent, nil
}

func (a *fakeArchive) ModelCosts(context.Context, time.Time, time.Time) (map[string]float64, error) {
	return a.byModel, nil
}

func (a *fakeArchive) ChatStats(context.Context, int64) (usage.ChatStats, error) {
	return usage.ChatStats{}, nil
}

var _ usage.Repository = (*fakeArchive)(nil)

// memStore is an in-memory CostStore for tests.
type memStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	ttls   map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		hashes: make(map[string]map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *memStore) hash(key string) map[string]string {
	if _, ok := s.hashes[key]; !ok {
		s.hashes[key] = make(map[string]string)
	}
	return s.hashes[key]
}

func (s *memStore) HIncrByFloat(_ context.Context, key, field string, incr float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hash(key)
	current, _ := strconv.ParseFloat(h[field], 64)
	h[field] = strconv.FormatFloat(current+incr, 'f', -1, 64)
	return nil
}

func (s *memStore) HIncrBy(_ context.Context, key, field string, incr int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hash(key)
	current, _ := strconv.ParseInt(h[field], 10, 64)
	h[field] = strconv.FormatInt(current+incr, 10)
	return nil
}

func (s *memStore) HGet(_ context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashes[key][field], nil
}

func (s *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[key] = ttl
	return nil
}

func testCostConfig() config.CostConfig {
	return config.CostConfig{
		TrackingEnabled: true,
		DailyLimitUSD:   50.0,
		MonthlyLimitUSD: 1000.0,
		Policy:          PolicyAdvisory,
		BucketTTL:       720 * time.Hour,
	}
}

func newTestTracker(store CostStore) *CostTracker {
	tracker := NewCostTracker(store, nil, nil, testCostConfig())
	tracker.now = func() time.Time {
		return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return tracker
}

func gpt35Info() ai.ModelInfo {
	return ai.ModelInfo{
		Provider:        "openai",
		Name:            ai.ModelGPT35Turbo,
		InputCostPer1K:  0.0005,
		OutputCostPer1K: 0.0015,
	}
}

func TestCalculateCost(t *testing.T) {
	input, output := CalculateCost(gpt35Info(), 100, 50)

	assert.InDelta(t, 0.00005, input, 1e-9)
	assert.InDelta(t, 0.000075, output, 1e-9)
	assert.InDelta(t, 0.000125, input+output, 1e-9)
}

func TestCalculateCostUnknownModel(t *testing.T) {
	input, output := CalculateCost(ai.ModelInfo{Name: "mystery-model"}, 5000, 5000)

	assert.Zero(t, input)
	assert.Zero(t, output)
}

func TestTrackReportedUsage(t *testing.T) {
	store := newMemStore()
	tracker := newTestTracker(store)

	rec := tracker.Track(context.Background(), Invocation{
		AgentType: "sales_assistant",
		Model:     gpt35Info(),
		ChatID:    42,
		UserID:    7,
		Usage:     ai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		Latency:   250 * time.Millisecond,
		Success:   true,
	})

	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.EventID)
	assert.Equal(t, uint32(100), rec.InputTokens)
	assert.Equal(t, uint32(50), rec.OutputTokens)
	assert.Equal(t, uint32(150), rec.TotalTokens)
	assert.False(t, rec.TokensEstimated)
	assert.InDelta(t, 0.000125, rec.TotalCost, 1e-9)
	assert.Equal(t, uint32(250), rec.LatencyMs)

	daily, err := store.HGet(context.Background(), "ai_costs:daily:2025-03-15", fieldTotalCost)
	require.NoError(t, err)
	cost, err := strconv.ParseFloat(daily, 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.000125, cost, 1e-9)

	requests, _ := store.HGet(context.Background(), "ai_costs:daily:2025-03-15", fieldTotalRequests)
	assert.Equal(t, "1", requests)

	monthly, _ := store.HGet(context.Background(), "ai_costs:monthly:2025-03", fieldTotalCost)
	monthlyCost, _ := strconv.ParseFloat(monthly, 64)
	assert.InDelta(t, 0.000125, monthlyCost, 1e-9)

	byAgent, _ := store.HGet(context.Background(), "ai_costs:agent:2025-03-15", "sales_assistant")
	assert.NotEmpty(t, byAgent)

	byModel, _ := store.HGet(context.Background(), "ai_costs:model:2025-03-15", ai.ModelGPT35Turbo)
	assert.NotEmpty(t, byModel)
}

func TestTrackEstimatesTokensWhenUnreported(t *testing.T) {
	tracker := newTestTracker(newMemStore())

	// 40 chars in, 20 out: the estimate is len/4.
	rec := tracker.Track(context.Background(), Invocation{
		AgentType:  "general_assistant",
		Model:      gpt35Info(),
		InputText:  "0123456789012345678901234567890123456789",
		OutputText: "01234567890123456789",
		Success:    true,
	})

	assert.True(t, rec.TokensEstimated)
	assert.Equal(t, uint32(10), rec.InputTokens)
	assert.Equal(t, uint32(5), rec.OutputTokens)
	assert.Equal(t, uint32(15), rec.TotalTokens)
}

func TestTrackFailuresKeepRequestCount(t *testing.T) {
	store := newMemStore()
	tracker := newTestTracker(store)

	tracker.Track(context.Background(), Invocation{
		AgentType:    "technical_support",
		Model:        gpt35Info(),
		InputText:    "¿Por qué no enciende mi Mac?",
		Success:      false,
		ErrorMessage: "provider unavailable",
	})

	requests, _ := store.HGet(context.Background(), "ai_costs:daily:2025-03-15", fieldTotalRequests)
	assert.Equal(t, "1", requests)
}

func TestCheckLimitsUnderBudget(t *testing.T) {
	store := newMemStore()
	tracker := newTestTracker(store)
	ctx := context.Background()

	for _, cost := range []float64{0.02, 0.01, 0.015} {
		require.NoError(t, store.HIncrByFloat(ctx, "ai_costs:daily:2025-03-15", fieldTotalCost, cost))
		require.NoError(t, store.HIncrByFloat(ctx, "ai_costs:monthly:2025-03", fieldTotalCost, cost))
	}

	snapshot := tracker.CheckLimits(ctx)

	assert.InDelta(t, 0.045, snapshot.Daily.Current, 1e-9)
	assert.False(t, snapshot.Daily.Exceeded)
	assert.InDelta(t, 0.09, snapshot.Daily.Percentage, 1e-6)
	assert.False(t, snapshot.Monthly.Exceeded)
}

func TestCheckLimitsExceeded(t *testing.T) {
	store := newMemStore()
	tracker := newTestTracker(store)
	ctx := context.Background()

	require.NoError(t, store.HIncrByFloat(ctx, "ai_costs:daily:2025-03-15", fieldTotalCost, 51.0))

	snapshot := tracker.CheckLimits(ctx)

	assert.True(t, snapshot.Daily.Exceeded)
	assert.Greater(t, snapshot.Daily.Percentage, 100.0)
	assert.False(t, snapshot.Monthly.Exceeded)
}

func TestSummaryDaily(t *testing.T) {
	store := newMemStore()
	tracker := newTestTracker(store)
	ctx := context.Background()

	tracker.Track(ctx, Invocation{
		AgentType: "sales_assistant",
		Model:     gpt35Info(),
		Usage:     ai.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500},
		Success:   true,
	})
	tracker.Track(ctx, Invocation{
		AgentType: "product_expert",
		Model:     gpt35Info(),
		Usage:     ai.Usage{PromptTokens: 2000, CompletionTokens: 1000, TotalTokens: 3000},
		Success:   true,
	})

	summary, err := tracker.Summary(ctx, "daily")
	require.NoError(t, err)

	assert.Equal(t, "daily", summary.Period)
	assert.Equal(t, int64(2), summary.TotalRequests)
	assert.Equal(t, int64(4500), summary.TotalTokens)
	assert.Len(t, summary.ByAgent, 2)
	assert.Contains(t, summary.ByAgent, "sales_assistant")
	assert.Contains(t, summary.ByModel, ai.ModelGPT35Turbo)
	assert.InDelta(t, summary.TotalCost/2, summary.AverageCostPerRequest, 1e-9)
}

func TestSummaryMonthlyBreakdownsFromArchive(t *testing.T) {
	store := newMemStore()
	archive := &fakeArchive{
		byAgent: map[string]float64{"sales_assistant": 12.5, "product_expert": 3.1},
		byModel: map[string]float64{ai.ModelGPT35Turbo: 15.6},
	}
	tracker := newTestTracker(store)
	tracker.archive = archive
	ctx := context.Background()

	tracker.Track(ctx, Invocation{
		AgentType: "sales_assistant",
		Model:     gpt35Info(),
		Usage:     ai.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500},
		Success:   true,
	})

	summary, err := tracker.Summary(ctx, "monthly")
	require.NoError(t, err)

	assert.Equal(t, "monthly", summary.Period)
	assert.Equal(t, int64(1), summary.TotalRequests)
	assert.Equal(t, 12.5, summary.ByAgent["sales_assistant"])
	assert.Equal(t, 15.6, summary.ByModel[ai.ModelGPT35Turbo])
	require.Len(t, archive.records, 1)
	assert.Equal(t, "sales_assistant", archive.records[0].AgentType)
}

func TestTrackedRecordsKeepInvocationRates(t *testing.T) {
	store := newMemStore()
	archive := &fakeArchive{}
	tracker := newTestTracker(store)
	tracker.archive = archive
	ctx := context.Background()

	tracker.Track(ctx, Invocation{
		AgentType: "sales_assistant",
		Model:     gpt35Info(),
		Usage:     ai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		Success:   true,
	})

	// Same token counts through a pricier model, as after a provider switch.
	gpt4 := ai.ModelInfo{
		Provider:        "openai",
		Name:            ai.ModelGPT4,
		InputCostPer1K:  0.03,
		OutputCostPer1K: 0.06,
	}
	tracker.Track(ctx, Invocation{
		AgentType: "sales_assistant",
		Model:     gpt4,
		Usage:     ai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		Success:   true,
	})

	require.Len(t, archive.records, 2)
	assert.InDelta(t, 0.000125, archive.records[0].TotalCost, 1e-9)
	assert.InDelta(t, 0.006, archive.records[1].TotalCost, 1e-9)

	// The day bucket is the sum of each record priced at its own rates.
	daily, _ := store.HGet(ctx, "ai_costs:daily:2025-03-15", fieldTotalCost)
	cost, err := strconv.ParseFloat(daily, 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.006125, cost, 1e-9)
}

func TestSummaryWithoutStore(t *testing.T) {
	tracker := NewCostTracker(nil, nil, nil, testCostConfig())

	summary, err := tracker.Summary(context.Background(), "daily")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalCost)
	assert.Empty(t, summary.ByAgent)
}
