// Package mock provides a test double for the judge.Provider interface.
//
// Use Judge to script scoring results and inspect which requests the
// evaluator sent:
//
//	j := &mock.Judge{
//	    ProviderName: "scripted",
//	    Results:      []judge.Result{{Scores: types.ExchangeScore{Confidence: 0.9}}},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/callistoworks/parley/pkg/judge"
)

// ScoreCall records a single invocation of Judge.Score.
type ScoreCall struct {
	// Ctx is the context passed to Score.
	Ctx context.Context
	// Req is the request passed to Score.
	Req judge.Request
}

// Judge is a mock implementation of judge.Provider.
type Judge struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Results is replayed in order across Score calls. When exhausted, the
	// last entry repeats. When empty, Score returns the zero Result.
	Results []judge.Result

	// Err, if non-nil, is returned as the error from every Score call.
	Err error

	// ScoreFunc, if set, overrides Results/Err entirely.
	ScoreFunc func(ctx context.Context, req judge.Request) (judge.Result, error)

	// ScoreCalls records every call to Score in order.
	ScoreCalls []ScoreCall
}

var _ judge.Provider = (*Judge)(nil)

// Name returns ProviderName, or "mock" when unset.
func (j *Judge) Name() string {
	if j.ProviderName == "" {
		return "mock"
	}
	return j.ProviderName
}

// Score records the call and returns the next scripted result.
func (j *Judge) Score(ctx context.Context, req judge.Request) (judge.Result, error) {
	j.mu.Lock()
	idx := len(j.ScoreCalls)
	j.ScoreCalls = append(j.ScoreCalls, ScoreCall{Ctx: ctx, Req: req})
	j.mu.Unlock()

	if j.ScoreFunc != nil {
		return j.ScoreFunc(ctx, req)
	}
	if j.Err != nil {
		return judge.Result{}, j.Err
	}
	if len(j.Results) == 0 {
		return judge.Result{}, nil
	}
	if idx >= len(j.Results) {
		idx = len(j.Results) - 1
	}
	return j.Results[idx], nil
}

// CallCount returns how many times Score was invoked.
func (j *Judge) CallCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.ScoreCalls)
}
