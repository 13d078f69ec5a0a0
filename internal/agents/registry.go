package agents

import (
	"sync"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/domain/product"
	"hermes/pkg/logger"
)

// NodeRegistry lazily builds and caches agent nodes by type. Nodes are
// stateless between calls, so one instance per type is shared.
type NodeRegistry struct {
	mu    sync.Mutex
	nodes map[AgentType]*Node

	settings  *Settings
	providers *ai.ProviderRegistry
	searcher  product.Searcher
	tracker   *CostTracker
	aiCfg     config.AIConfig
	searchCfg config.SearchConfig
	log       *logger.Logger
}

// NewNodeRegistry constructs an empty node registry over shared collaborators.
func NewNodeRegistry(
	settings *Settings,
	providers *ai.ProviderRegistry,
	searcher product.Searcher,
	tracker *CostTracker,
	aiCfg config.AIConfig,
	searchCfg config.SearchConfig,
) *NodeRegistry {
	return &NodeRegistry{
		nodes:     make(map[AgentType]*Node),
		settings:  settings,
		providers: providers,
		searcher:  searcher,
		tracker:   tracker,
		aiCfg:     aiCfg,
		searchCfg: searchCfg,
		log:       logger.Get().With("component", "node_registry"),
	}
}

// Node returns the cached node for an agent type, building it on first use.
func (r *NodeRegistry) Node(agentType AgentType) (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if node, ok := r.nodes[agentType]; ok {
		return node, nil
	}

	node, err := NewNode(agentType, r.settings, r.providers, r.searcher, r.tracker, r.aiCfg, r.searchCfg)
	if err != nil {
		return nil, err
	}

	r.nodes[agentType] = node
	r.log.Infof("Agent node %s created", agentType)
	return node, nil
}

// Preload warms the cache for the most used agents so first messages do
// not pay construction cost.
func (r *NodeRegistry) Preload(types ...AgentType) {
	for _, t := range types {
		if _, err := r.Node(t); err != nil {
			r.log.Warnf("Failed to preload agent %s: %v", t, err)
		}
	}
}

// Loaded reports which agent types have instantiated nodes.
func (r *NodeRegistry) Loaded() map[AgentType]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[AgentType]bool, len(r.nodes))
	for t := range r.nodes {
		out[t] = true
	}
	return out
}
