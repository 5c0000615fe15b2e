package negotiation

import (
	"fmt"

	"github.com/callistoworks/parley/pkg/types"
)

// ResolveConfig carries the per-kind termination tuning. Thresholds are
// configuration so the same resolver serves guards and traders with
// different pressure profiles.
type ResolveConfig struct {
	// SuccessThreshold: trust at or below this value wins the negotiation.
	SuccessThreshold float64 `yaml:"success_threshold"`

	// FailureThreshold: trust at or above this value ends it unfavorably,
	// without waiting for the turn budget.
	FailureThreshold float64 `yaml:"failure_threshold"`

	// ContradictionCap: more than this many contradictions in a single turn
	// ends the session unfavorably on the spot.
	ContradictionCap int `yaml:"contradiction_cap"`
}

// DefaultResolveConfig returns the standard tuning for a negotiation kind.
func DefaultResolveConfig(kind types.Kind) ResolveConfig {
	cfg := ResolveConfig{
		SuccessThreshold: 0.25,
		FailureThreshold: 0.85,
		ContradictionCap: 2,
	}
	if kind == types.KindHaggling {
		cfg.SuccessThreshold = 0.3
		cfg.FailureThreshold = 0.9
	}
	return cfg
}

// Resolve decides whether the session terminates, returning nil while it
// stays open. It only reads the already-updated session state and never
// scores anything itself, so calling it twice on unchanged state yields the
// same result.
//
// Rule priority:
//  1. Turn budget exhausted: forced unfavorable. An interrogation that runs
//     out the clock is a failure; a haggling session settles at the standing
//     offer when the trader had softened to the success line, otherwise
//     rejects.
//  2. Trust at or below the success threshold: favorable outcome.
//  3. Trust at or above the failure threshold, or the latest turn blowing the
//     contradiction cap: unfavorable, immediately.
func Resolve(s *types.Session, cfg ResolveConfig) *types.OutcomeResult {
	if len(s.Turns) == 0 {
		return nil
	}
	summary := Summarize(s)

	if s.TurnsLeft <= 0 {
		return budgetOutcome(s, summary, cfg)
	}
	if s.Trust <= cfg.SuccessThreshold {
		return successOutcome(s, summary)
	}
	last := s.Turns[len(s.Turns)-1]
	if s.Trust >= cfg.FailureThreshold || len(last.Contradictions) > cfg.ContradictionCap {
		reason := types.ReasonTrustFailure
		if len(last.Contradictions) > cfg.ContradictionCap {
			reason = types.ReasonContradictionOverload
		}
		return failureOutcome(s, summary, reason)
	}
	return nil
}

func successOutcome(s *types.Session, summary types.ScoreSummary) *types.OutcomeResult {
	out := &types.OutcomeResult{
		Reason:      types.ReasonTrustSuccess,
		FinalScores: summary,
	}
	switch s.Kind {
	case types.KindHaggling:
		out.Decision = types.DecisionAccepted
		// A strong negotiator earns a discount on top of the accepted deal.
		out.Adjustment = 1 - 0.2*summary.WeightedPersuasion
		out.Reply = fmt.Sprintf("%s %s nods. \"You drive a fair bargain. Deal.\"",
			s.Personality.Title, s.Personality.Name)
	default:
		out.Decision = types.DecisionGranted
		out.Adjustment = 1 + 0.5*summary.WeightedPersuasion
		out.Reply = fmt.Sprintf("%s %s waves you through. \"Your story checks out. She's all yours.\"",
			s.Personality.Title, s.Personality.Name)
	}
	return out
}

func failureOutcome(s *types.Session, summary types.ScoreSummary, reason types.Reason) *types.OutcomeResult {
	out := &types.OutcomeResult{
		Reason:      reason,
		FinalScores: summary,
	}
	switch s.Kind {
	case types.KindHaggling:
		out.Decision = types.DecisionRejected
		out.Adjustment = 1
		out.Reply = fmt.Sprintf("%s %s turns away. \"We're done here. Price stands.\"",
			s.Personality.Title, s.Personality.Name)
	default:
		out.Decision = types.DecisionDenied
		out.Adjustment = 0.5
		out.Reply = fmt.Sprintf("%s %s shakes their head. \"Your story doesn't hold together. Request denied.\"",
			s.Personality.Title, s.Personality.Name)
	}
	return out
}

func budgetOutcome(s *types.Session, summary types.ScoreSummary, cfg ResolveConfig) *types.OutcomeResult {
	out := &types.OutcomeResult{
		Reason:      types.ReasonTurnBudgetExhausted,
		FinalScores: summary,
	}
	if s.Kind == types.KindHaggling {
		// Settle at the standing offer only when the trader had already
		// softened to the success line; an offer on the table is not a deal.
		if _, ok := s.LastOffer(); ok && s.Trust <= cfg.SuccessThreshold {
			out.Decision = types.DecisionCountered
			out.Adjustment = 1 - 0.1*summary.WeightedPersuasion
			out.Reply = fmt.Sprintf("%s %s sighs. \"Enough talk. Final offer, take it or leave it.\"",
				s.Personality.Title, s.Personality.Name)
			return out
		}
		out.Decision = types.DecisionRejected
		out.Adjustment = 1
		out.Reply = fmt.Sprintf("%s %s shrugs. \"I don't have all day. No deal.\"",
			s.Personality.Title, s.Personality.Name)
		return out
	}
	out.Decision = types.DecisionDenied
	out.Adjustment = 0.5
	out.Reply = fmt.Sprintf("%s %s checks the time. \"I've heard enough. Take it up with the harbormaster.\"",
		s.Personality.Title, s.Personality.Name)
	return out
}

// Summarize aggregates a session's per-turn scores into the outcome summary.
// WeightedPersuasion blends the axes the outcome consumer cares about:
// 0.5·persuasiveness + 0.3·confidence + 0.2·consistency.
func Summarize(s *types.Session) types.ScoreSummary {
	var sum types.ScoreSummary
	n := len(s.Turns)
	if n == 0 {
		sum.FinalTrust = s.Trust
		return sum
	}
	for _, t := range s.Turns {
		sum.AvgPersuasiveness += t.Scores.Persuasiveness
		sum.AvgConfidence += t.Scores.Confidence
		sum.AvgConsistency += t.Scores.Consistency
		sum.AvgBelievability += t.Scores.Believability
		sum.Contradictions += len(t.Contradictions)
	}
	fn := float64(n)
	sum.AvgPersuasiveness /= fn
	sum.AvgConfidence /= fn
	sum.AvgConsistency /= fn
	sum.AvgBelievability /= fn
	sum.WeightedPersuasion = 0.5*sum.AvgPersuasiveness + 0.3*sum.AvgConfidence + 0.2*sum.AvgConsistency
	sum.FinalTrust = s.Trust
	return sum
}
