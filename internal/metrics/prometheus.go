package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Routing metrics
	MessagesRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_messages_routed_total",
			Help: "Total number of routed messages",
		},
		[]string{"bot_type", "intent", "response_type"},
	)

	IntentConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_intent_confidence",
			Help:    "Confidence distribution of intent classification",
			Buckets: []float64{0.1, 0.2, 0.3, 0.5, 0.7, 0.8, 0.9, 1},
		},
		[]string{"intent"},
	)

	Escalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_escalations_total",
			Help: "Total number of conversations escalated to a human",
		},
		[]string{"bot_type"},
	)

	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_agent_calls_total",
			Help: "Total number of agent calls",
		},
		[]string{"agent", "model", "status"}, // status: success|error
	)

	AgentCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_agent_cost_usd",
			Help: "Total AI cost in USD",
		},
		[]string{"agent", "model"},
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_agent_latency_seconds",
			Help:    "Agent execution latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"agent", "model"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_agent_tokens_total",
			Help: "Total tokens used by agents",
		},
		[]string{"agent", "model", "type"}, // type: input|output
	)

	// Provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_provider_calls_total",
			Help: "Total number of LLM provider calls",
		},
		[]string{"provider", "status"}, // status: success|error|rate_limited
	)

	// Search metrics
	ProductSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_product_searches_total",
			Help: "Total number of product vector searches",
		},
		[]string{"backend", "status"}, // backend: qdrant|pgvector
	)

	// Cost limit metrics
	CostLimitExceeded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hermes_cost_limit_exceeded",
			Help: "Whether a cost limit is currently exceeded (0/1)",
		},
		[]string{"window"}, // window: daily|monthly
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(MessagesRouted)
	prometheus.MustRegister(IntentConfidence)
	prometheus.MustRegister(Escalations)

	prometheus.MustRegister(AgentCalls)
	prometheus.MustRegister(AgentCost)
	prometheus.MustRegister(AgentLatency)
	prometheus.MustRegister(AgentTokens)

	prometheus.MustRegister(ProviderCalls)
	prometheus.MustRegister(ProductSearches)
	prometheus.MustRegister(CostLimitExceeded)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
