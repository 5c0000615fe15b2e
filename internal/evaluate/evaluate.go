// Package evaluate turns a player response into scores and claims. It drives
// a chain of judge providers with per-provider circuit breakers under a hard
// timeout, and falls back to the deterministic heuristic judge when the whole
// chain fails — a judge outage degrades scoring quality, never availability.
package evaluate

import (
	"context"
	"time"

	"github.com/callistoworks/parley/internal/negotiation"
	"github.com/callistoworks/parley/internal/observe"
	"github.com/callistoworks/parley/internal/resilience"
	"github.com/callistoworks/parley/pkg/judge"
	"github.com/callistoworks/parley/pkg/judge/heuristic"
	"github.com/callistoworks/parley/pkg/types"
)

// DefaultTimeout bounds one full pass over the judge chain. A scoring call
// blocking a turn for longer than this is worse than a fallback score.
const DefaultTimeout = 3 * time.Second

// Config tunes the evaluator.
type Config struct {
	// Timeout caps the judge chain per turn. Default: DefaultTimeout.
	Timeout time.Duration
}

// Evaluator implements negotiation.Evaluator on top of a judge failover
// chain. The zero value is not usable; call New.
type Evaluator struct {
	chain    *resilience.JudgeFallback
	terminal judge.Provider
	timeout  time.Duration
	metrics  *observe.Metrics
}

var _ negotiation.Evaluator = (*Evaluator)(nil)

// New builds an Evaluator over the given chain. The heuristic judge is the
// terminal fallback; it also serves as the whole chain when chain is nil
// (offline deployments).
func New(chain *resilience.JudgeFallback, cfg Config, metrics *observe.Metrics) *Evaluator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Evaluator{
		chain:    chain,
		terminal: heuristic.New(),
		timeout:  cfg.Timeout,
		metrics:  metrics,
	}
}

// Evaluate scores one response. It never returns an error from judge
// failures: when the chain times out or exhausts its providers, the heuristic
// judge scores the turn deterministically and the exchange records it as the
// provider.
func (e *Evaluator) Evaluate(ctx context.Context, s *types.Session, response string) (negotiation.Scored, error) {
	req := judge.Request{
		Kind:        s.Kind,
		Personality: s.Personality,
		History:     s.Turns,
		Claims:      s.Claims,
		Response:    response,
	}

	start := time.Now()
	if e.chain != nil {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		res, name, err := e.chain.ScoreNamed(callCtx, req)
		cancel()
		elapsed := time.Since(start)
		if err == nil {
			e.metrics.RecordJudgeCall(ctx, name, "ok", elapsed)
			return negotiation.Scored{
				Scores:   res.Scores,
				Claims:   res.Claims,
				Provider: name,
				Latency:  elapsed,
			}, nil
		}
		e.metrics.RecordJudgeCall(ctx, "chain", "error", elapsed)
		observe.Logger(ctx).Warn("judge chain failed, scoring heuristically",
			"session_id", s.ID,
			"error", err,
			"elapsed", elapsed,
		)
	}

	// Terminal fallback. The heuristic judge cannot fail.
	res, err := e.terminal.Score(ctx, req)
	if err != nil {
		return negotiation.Scored{}, err
	}
	elapsed := time.Since(start)
	e.metrics.RecordJudgeCall(ctx, e.terminal.Name(), "ok", elapsed)
	return negotiation.Scored{
		Scores:   res.Scores,
		Claims:   res.Claims,
		Provider: e.terminal.Name(),
		Latency:  elapsed,
	}, nil
}

// Providers lists the chain's backends plus the terminal fallback, for
// readiness reporting.
func (e *Evaluator) Providers() []string {
	var names []string
	if e.chain != nil {
		names = e.chain.Providers()
	}
	return append(names, e.terminal.Name())
}
