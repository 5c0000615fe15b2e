// Package negotiation implements the trust-state engine behind the shipyard
// interrogation and port haggling dialogues. Personality generation,
// contradiction tracking, the trust update rule and outcome resolution are
// pure functions; the Orchestrator composes them and is the only component
// that mutates a session.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/callistoworks/parley/internal/observe"
	"github.com/callistoworks/parley/pkg/types"
)

// MaxResponseLen caps the player response size in bytes. Anything longer is
// rejected before evaluation.
const MaxResponseLen = 4096

var (
	// ErrSessionResolved is returned when a caller advances a session that
	// already reached a terminal outcome. This is a caller bug: a resolved
	// session is frozen and never re-opens.
	ErrSessionResolved = errors.New("negotiation: session already resolved")

	// ErrEmptyResponse is returned for a blank player response. No turn is
	// consumed and no state changes.
	ErrEmptyResponse = errors.New("negotiation: empty player response")

	// ErrResponseTooLong is returned when the response exceeds MaxResponseLen.
	ErrResponseTooLong = errors.New("negotiation: player response too long")

	// ErrInvalidKind is returned for an unrecognised negotiation kind.
	ErrInvalidKind = errors.New("negotiation: invalid kind")
)

// Scored is the full result of judging one player response.
type Scored struct {
	Scores   types.ExchangeScore
	Claims   []types.Claim
	Provider string
	Latency  time.Duration
}

// Evaluator scores a player response against a session snapshot. The
// production implementation (internal/evaluate) chains LLM judges with a
// deterministic fallback, so errors are rare; the orchestrator still
// propagates them rather than guessing a score itself.
type Evaluator interface {
	Evaluate(ctx context.Context, s *types.Session, response string) (Scored, error)
}

// PromptSource supplies the NPC line the player is currently answering.
// Implementations must be deterministic over session state so the pending
// prompt can be recomputed instead of persisted.
type PromptSource interface {
	Prompt(s *types.Session) string
}

// Tuning bundles the per-kind knobs for one negotiation variant.
type Tuning struct {
	TurnBudget int
	Weights    TrustWeights
	Resolve    ResolveConfig
	Tolerance  Tolerance
}

// DefaultTuning returns the standard tuning for a kind. Interrogations are
// short and decisive; haggling gives the player more room to work the price.
func DefaultTuning(kind types.Kind) Tuning {
	budget := 3
	if kind == types.KindHaggling {
		budget = 5
	}
	return Tuning{
		TurnBudget: budget,
		Weights:    DefaultTrustWeights(kind),
		Resolve:    DefaultResolveConfig(kind),
		Tolerance:  DefaultTolerance(),
	}
}

// TurnResult is what one Advance call produced: the recorded exchange, and
// either the next NPC prompt (session still open) or the terminal outcome.
type TurnResult struct {
	Exchange   types.Exchange
	NextPrompt string
	Outcome    *types.OutcomeResult
}

// Orchestrator runs the per-turn loop. It assumes single-threaded access to
// any given session; serialization is the session owner's job.
type Orchestrator struct {
	evaluator Evaluator
	prompts   PromptSource
	tuning    map[types.Kind]Tuning
}

// New builds an Orchestrator. Kinds missing from tuning fall back to
// DefaultTuning.
func New(evaluator Evaluator, prompts PromptSource, tuning map[types.Kind]Tuning) *Orchestrator {
	return &Orchestrator{
		evaluator: evaluator,
		prompts:   prompts,
		tuning:    tuning,
	}
}

func (o *Orchestrator) tuningFor(kind types.Kind) Tuning {
	if t, ok := o.tuning[kind]; ok {
		return t
	}
	return DefaultTuning(kind)
}

// NewSession creates a fresh session for the given ID and kind. Trust starts
// at the NPC's base suspicion.
func (o *Orchestrator) NewSession(id string, kind types.Kind) (*types.Session, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	p := GeneratePersonality(id, kind)
	now := time.Now().UTC()
	return &types.Session{
		ID:          id,
		Kind:        kind,
		Personality: p,
		Trust:       p.BaseSuspicion,
		Status:      types.StatusOpen,
		TurnsLeft:   o.tuningFor(kind).TurnBudget,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// PendingPrompt returns the NPC line the player should answer next. Only
// meaningful while the session is open.
func (o *Orchestrator) PendingPrompt(s *types.Session) string {
	return o.prompts.Prompt(s)
}

// Advance applies one player response to the session. Per call: validate,
// evaluate, check contradictions, update trust, append the exchange and its
// claims, consume a turn, then resolve. On a terminal outcome the session is
// frozen; otherwise the result carries the next NPC prompt.
//
// Validation failures leave the session untouched and consume no turn. A turn
// is atomic: once evaluation starts it runs to completion, fallback included.
func (o *Orchestrator) Advance(ctx context.Context, s *types.Session, response string) (*TurnResult, error) {
	if s.Resolved() {
		return nil, fmt.Errorf("%w: %s", ErrSessionResolved, s.ID)
	}
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, ErrEmptyResponse
	}
	if len(response) > MaxResponseLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrResponseTooLong, len(response), MaxResponseLen)
	}

	tun := o.tuningFor(s.Kind)
	seq := len(s.Turns) + 1
	npcPrompt := o.prompts.Prompt(s)

	scored, err := o.evaluator.Evaluate(ctx, s, trimmed)
	if err != nil {
		return nil, fmt.Errorf("negotiation: evaluate turn %d of %s: %w", seq, s.ID, err)
	}

	claims := scored.Claims
	for i := range claims {
		claims[i].Turn = seq
	}
	contradictions := CheckContradictions(s.Claims, claims, tun.Tolerance)
	s.Trust = UpdateTrust(s.Trust, s.Personality, scored.Scores, len(contradictions), tun.Weights)

	exch := types.Exchange{
		Sequence:       seq,
		NPCPrompt:      npcPrompt,
		PlayerResponse: trimmed,
		Scores:         scored.Scores,
		Contradictions: contradictions,
		TrustAfter:     s.Trust,
		Provider:       scored.Provider,
		ScoredIn:       scored.Latency,
	}
	s.Turns = append(s.Turns, exch)
	s.Claims = append(s.Claims, claims...)
	s.TurnsLeft--
	s.UpdatedAt = time.Now().UTC()

	res := &TurnResult{Exchange: exch}
	if out := Resolve(s, tun.Resolve); out != nil {
		s.Status = types.StatusResolved
		s.Outcome = out
		res.Outcome = out
		observe.Logger(ctx).Info("session resolved",
			"session_id", s.ID,
			"kind", string(s.Kind),
			"decision", string(out.Decision),
			"reason", string(out.Reason),
			"turns", seq,
			"final_trust", s.Trust,
		)
		return res, nil
	}

	res.NextPrompt = o.prompts.Prompt(s)
	observe.Logger(ctx).Debug("turn applied",
		"session_id", s.ID,
		"turn", seq,
		"provider", scored.Provider,
		"contradictions", len(contradictions),
		"trust", s.Trust,
	)
	return res, nil
}
