// Package judge defines the scoring provider contract consumed by the
// exchange evaluator. A provider assesses one player response in the context
// of the conversation so far; the engine treats it as an opaque capability,
// so LLM-backed and offline heuristic providers are interchangeable.
package judge

import (
	"context"
	"errors"

	"github.com/callistoworks/parley/pkg/types"
)

// ErrUnparsable marks a provider reply that could not be turned into a valid
// Result. The evaluator treats it like any other provider failure.
var ErrUnparsable = errors.New("judge: unparsable provider reply")

// Request carries everything a provider may use to score a response. History
// and Claims are snapshots; providers must not retain or mutate them.
type Request struct {
	Kind        types.Kind
	Personality types.NPCPersonality

	// History is the prior exchanges, oldest first.
	History []types.Exchange

	// Claims is the player's accumulated claim record, for consistency
	// assessment. Contradiction detection itself stays in the engine.
	Claims []types.Claim

	// Response is the new player utterance to score.
	Response string
}

// Result is a provider's assessment: the four axes plus similarity, and any
// claims extracted from the response. Turn numbers on extracted claims are
// assigned by the engine, not the provider.
type Result struct {
	Scores types.ExchangeScore
	Claims []types.Claim
}

// Clamp forces every score axis into [0, 1]. Providers call it before
// returning so a sloppy upstream reply can never leak an out-of-range value
// into the trust model.
func (r *Result) Clamp() {
	r.Scores.Persuasiveness = clamp01(r.Scores.Persuasiveness)
	r.Scores.Confidence = clamp01(r.Scores.Confidence)
	r.Scores.Consistency = clamp01(r.Scores.Consistency)
	r.Scores.Believability = clamp01(r.Scores.Believability)
	r.Scores.Similarity = clamp01(r.Scores.Similarity)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Provider scores player responses. Implementations must be safe for
// concurrent use and honor ctx cancellation.
type Provider interface {
	// Name identifies the provider in logs, metrics and exchange records.
	Name() string

	// Score assesses one response. An error means this provider could not
	// produce a result; the caller decides whether to fail over.
	Score(ctx context.Context, req Request) (Result, error)
}
