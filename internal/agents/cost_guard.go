package agents

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"hermes/internal/adapters/config"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Cost limit policies. Advisory surfaces warnings on responses; enforce
// refuses paid agent calls once a limit is exceeded. Direct responses and
// escalations cost nothing and are never blocked.
const (
	PolicyAdvisory = "advisory"
	PolicyEnforce  = "enforce"
)

// approachingThreshold is the fraction of a limit at which the guard
// starts warning.
var approachingThreshold = decimal.NewFromFloat(0.80)

// CostGuard gates paid agent calls on the spending limits.
type CostGuard struct {
	tracker *CostTracker
	policy  string
	log     *logger.Logger
}

// NewCostGuard creates a guard over the tracker's limit snapshots.
// Unrecognized policies fall back to advisory.
func NewCostGuard(tracker *CostTracker, cfg config.CostConfig) *CostGuard {
	policy := strings.ToLower(strings.TrimSpace(cfg.Policy))
	if policy != PolicyEnforce {
		policy = PolicyAdvisory
	}

	return &CostGuard{
		tracker: tracker,
		policy:  policy,
		log:     logger.Get().With("component", "cost_guard"),
	}
}

// Policy returns the active limit policy.
func (g *CostGuard) Policy() string {
	return g.policy
}

// CheckBudget verifies spending limits before a paid agent call. Under the
// advisory policy it only logs and updates the gauge; under enforce it
// returns ErrDailyLimitExceeded or ErrMonthlyLimitExceeded when the
// corresponding window is over budget.
func (g *CostGuard) CheckBudget(ctx context.Context) error {
	snapshot := g.tracker.CheckLimits(ctx)

	g.observe("daily", snapshot.Daily)
	g.observe("monthly", snapshot.Monthly)

	if g.policy != PolicyEnforce {
		return nil
	}

	if snapshot.Daily.Exceeded {
		return errors.Wrapf(errors.ErrDailyLimitExceeded,
			"$%s / $%s", money(snapshot.Daily.Current), money(snapshot.Daily.Limit))
	}
	if snapshot.Monthly.Exceeded {
		return errors.Wrapf(errors.ErrMonthlyLimitExceeded,
			"$%s / $%s", money(snapshot.Monthly.Current), money(snapshot.Monthly.Limit))
	}

	return nil
}

func (g *CostGuard) observe(window string, status LimitStatus) {
	gauge := 0.0
	if status.Exceeded {
		gauge = 1.0
		g.log.Warnf("Cost limit exceeded (%s): $%s / $%s",
			window, money(status.Current), money(status.Limit))
	} else if status.Limit > 0 {
		current := decimal.NewFromFloat(status.Current)
		threshold := decimal.NewFromFloat(status.Limit).Mul(approachingThreshold)
		if current.GreaterThanOrEqual(threshold) {
			g.log.Warnf("Approaching %s cost limit: $%s / $%s (80%% threshold)",
				window, money(status.Current), money(status.Limit))
		}
	}
	metrics.CostLimitExceeded.WithLabelValues(window).Set(gauge)
}

// RemainingDailyBudget returns how much of the daily limit is left.
func (g *CostGuard) RemainingDailyBudget(ctx context.Context) (decimal.Decimal, error) {
	snapshot := g.tracker.CheckLimits(ctx)

	remaining := decimal.NewFromFloat(snapshot.Daily.Limit).
		Sub(decimal.NewFromFloat(snapshot.Daily.Current))
	if remaining.LessThan(decimal.Zero) {
		remaining = decimal.Zero
	}

	return remaining, nil
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
