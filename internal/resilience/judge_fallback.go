package resilience

import (
	"context"

	"github.com/callistoworks/parley/pkg/judge"
)

// JudgeFallback implements [judge.Provider] with automatic failover across
// multiple scoring backends. Each backend has its own circuit breaker; when
// the primary fails or its breaker is open, the next healthy fallback is
// tried in registration order.
type JudgeFallback struct {
	group *FallbackGroup[judge.Provider]
}

// Compile-time interface assertion.
var _ judge.Provider = (*JudgeFallback)(nil)

// NewJudgeFallback creates a [JudgeFallback] with primary as the preferred
// backend.
func NewJudgeFallback(primary judge.Provider, cfg FallbackConfig) *JudgeFallback {
	return &JudgeFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers an additional judge as a fallback.
func (f *JudgeFallback) AddFallback(provider judge.Provider) {
	f.group.AddFallback(provider.Name(), provider)
}

// Name identifies the chain in logs. Individual calls report the backend that
// actually served them through ScoreNamed.
func (f *JudgeFallback) Name() string { return "fallback-chain" }

// Score sends the request to the first healthy judge and returns its result.
func (f *JudgeFallback) Score(ctx context.Context, req judge.Request) (judge.Result, error) {
	res, _, err := f.ScoreNamed(ctx, req)
	return res, err
}

// ScoreNamed is Score plus the name of the backend that produced the result,
// so exchanges can record which judge scored them.
func (f *JudgeFallback) ScoreNamed(ctx context.Context, req judge.Request) (judge.Result, string, error) {
	return ExecuteWithResultNamed(f.group, func(p judge.Provider) (judge.Result, error) {
		return p.Score(ctx, req)
	})
}

// Providers lists the chain's backend names in try order.
func (f *JudgeFallback) Providers() []string {
	return f.group.Names()
}
