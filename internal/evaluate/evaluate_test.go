package evaluate

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/callistoworks/parley/internal/observe"
	"github.com/callistoworks/parley/internal/resilience"
	"github.com/callistoworks/parley/pkg/judge"
	"github.com/callistoworks/parley/pkg/judge/heuristic"
	"github.com/callistoworks/parley/pkg/judge/mock"
	"github.com/callistoworks/parley/pkg/types"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func testSession() *types.Session {
	return &types.Session{
		ID:   "s1",
		Kind: types.KindInterrogation,
		Personality: types.NPCPersonality{
			Title: "Customs Officer", Trait: "Shrewd Investigator", BaseSuspicion: 0.5,
		},
		Status: types.StatusOpen,
	}
}

func TestEvaluate_UsesChain(t *testing.T) {
	primary := &mock.Judge{
		ProviderName: "primary",
		Results:      []judge.Result{{Scores: types.ExchangeScore{Persuasiveness: 0.8}}},
	}
	chain := resilience.NewJudgeFallback(primary, resilience.FallbackConfig{})
	e := New(chain, Config{}, testMetrics(t))

	scored, err := e.Evaluate(context.Background(), testSession(), "The manifest is on file.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scored.Provider != "primary" {
		t.Fatalf("provider = %q, want primary", scored.Provider)
	}
	if scored.Scores.Persuasiveness != 0.8 {
		t.Fatalf("scores not from chain: %+v", scored.Scores)
	}
}

func TestEvaluate_FallsBackToHeuristic(t *testing.T) {
	failing := &mock.Judge{ProviderName: "primary", Err: errors.New("upstream down")}
	chain := resilience.NewJudgeFallback(failing, resilience.FallbackConfig{})
	e := New(chain, Config{}, testMetrics(t))

	scored, err := e.Evaluate(context.Background(), testSession(), "I am definitely the pilot, check the records.")
	if err != nil {
		t.Fatalf("fallback surfaced an error: %v", err)
	}
	if scored.Provider != heuristic.Name {
		t.Fatalf("provider = %q, want %q", scored.Provider, heuristic.Name)
	}
	if scored.Scores.Confidence <= 0 {
		t.Fatalf("heuristic produced empty scores: %+v", scored.Scores)
	}
}

func TestEvaluate_TimeoutFallsBack(t *testing.T) {
	slow := &mock.Judge{
		ProviderName: "slow",
		ScoreFunc: func(ctx context.Context, _ judge.Request) (judge.Result, error) {
			<-ctx.Done()
			return judge.Result{}, ctx.Err()
		},
	}
	chain := resilience.NewJudgeFallback(slow, resilience.FallbackConfig{})
	e := New(chain, Config{Timeout: 20 * time.Millisecond}, testMetrics(t))

	start := time.Now()
	scored, err := e.Evaluate(context.Background(), testSession(), "Give me a second here.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
	if scored.Provider != heuristic.Name {
		t.Fatalf("provider = %q, want heuristic after timeout", scored.Provider)
	}
}

func TestEvaluate_NilChainIsOffline(t *testing.T) {
	e := New(nil, Config{}, testMetrics(t))
	scored, err := e.Evaluate(context.Background(), testSession(), "Certainly, here are my papers.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scored.Provider != heuristic.Name {
		t.Fatalf("provider = %q, want %q", scored.Provider, heuristic.Name)
	}
}

func TestProviders_IncludesTerminal(t *testing.T) {
	chain := resilience.NewJudgeFallback(&mock.Judge{ProviderName: "a"}, resilience.FallbackConfig{})
	e := New(chain, Config{}, testMetrics(t))
	got := e.Providers()
	if len(got) != 2 || got[0] != "a" || got[1] != heuristic.Name {
		t.Fatalf("providers = %v", got)
	}
}
