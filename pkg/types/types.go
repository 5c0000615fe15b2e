// Package types defines the shared data model used across all Parley packages.
//
// These types form the lingua franca between the negotiation engine, judge
// providers, session stores, and the HTTP layer. They are intentionally
// minimal — each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

import "time"

// Kind selects which negotiation variant a session runs.
type Kind string

const (
	// KindInterrogation is the first-login shipyard scenario: a player talks
	// a security guard into releasing a claimed ship.
	KindInterrogation Kind = "interrogation"

	// KindHaggling is the port trade scenario: a player negotiates a price
	// with a trader NPC.
	KindHaggling Kind = "haggling"
)

// IsValid reports whether k is a recognised negotiation kind.
func (k Kind) IsValid() bool {
	return k == KindInterrogation || k == KindHaggling
}

// Status is the lifecycle state of a negotiation session.
type Status string

const (
	// StatusOpen means the session accepts further turns.
	StatusOpen Status = "open"

	// StatusResolved means a terminal outcome has been reached. A resolved
	// session never accepts further turns.
	StatusResolved Status = "resolved"
)

// NPCPersonality describes the NPC on the other side of the table.
// It is derived deterministically from the session ID and kind at session
// creation and is immutable thereafter.
type NPCPersonality struct {
	// Name is the NPC's surname (e.g., "Kowalski").
	Name string `json:"name"`

	// Title is the NPC's role label (e.g., "Customs Officer", "Cargo Broker").
	Title string `json:"title"`

	// Trait is the personality archetype label (e.g., "Paranoid Newbie").
	Trait string `json:"trait"`

	// BaseSuspicion is the NPC's starting suspicion (interrogation) or
	// firmness (haggling) in [0, 1]. Higher values make the NPC harder to
	// win over: persuasive arguments are discounted more heavily.
	BaseSuspicion float64 `json:"base_suspicion"`

	// Description is flavour text for the trait, surfaced to the UI.
	Description string `json:"description"`
}

// ExchangeScore holds the judge's per-axis assessment of one player response.
// All axes are always populated in [0, 1] — a failed judge call substitutes a
// deterministic fallback score, never a partial record.
type ExchangeScore struct {
	// Persuasiveness measures how convincing the argument is.
	Persuasiveness float64 `json:"persuasiveness"`

	// Confidence measures how assured the player sounds.
	Confidence float64 `json:"confidence"`

	// Consistency measures agreement with the player's earlier statements.
	Consistency float64 `json:"consistency"`

	// Believability measures the overall plausibility of the story.
	Believability float64 `json:"believability"`

	// Similarity measures how close the response is to the player's previous
	// attempts. Its effect on trust is a signed tunable weight — upstream
	// material never specified whether repetition should be penalised or
	// rewarded, so the engine takes no default position.
	Similarity float64 `json:"similarity"`
}

// Claim is an atomic factual assertion extracted from a player response.
// Claims are append-only within a session; a contradiction is a relationship
// between two claims, never a mutation of either.
type Claim struct {
	// Text is the raw assertion as extracted (e.g., "Claims to be a pilot").
	Text string `json:"text"`

	// Turn is the exchange sequence number that produced this claim.
	Turn int `json:"turn"`

	// Slot is the semantic slot the claim occupies (e.g., "claimed-ship-type",
	// "claimed-role", "offered-price"). Two claims can only contradict when
	// they share a slot.
	Slot string `json:"slot"`

	// Value is the normalized comparison value for categorical claims.
	Value string `json:"value"`

	// Number is the normalized numeric value when IsNumber is true.
	Number float64 `json:"number,omitempty"`

	// IsNumber marks claims compared with an epsilon tolerance rather than
	// string equality.
	IsNumber bool `json:"is_number,omitempty"`
}

// ContradictionRef records a conflict between two claims in the same slot.
type ContradictionRef struct {
	Slot       string `json:"slot"`
	PriorTurn  int    `json:"prior_turn"`
	PriorValue string `json:"prior_value"`
	NewTurn    int    `json:"new_turn"`
	NewValue   string `json:"new_value"`
}

// Exchange is one NPC-prompt/player-response pair plus everything derived
// from it. Exchanges are appended to the session in sequence order and are
// never modified afterwards.
type Exchange struct {
	// Sequence is the 1-based position of this exchange within the session.
	Sequence int `json:"sequence"`

	// NPCPrompt is the prompt the player was answering.
	NPCPrompt string `json:"npc_prompt"`

	// PlayerResponse is the player's free-text answer.
	PlayerResponse string `json:"player_response"`

	// Scores is the judge assessment of PlayerResponse. Always populated.
	Scores ExchangeScore `json:"scores"`

	// Contradictions lists conflicts between this turn's claims and the
	// session's accumulated claim history.
	Contradictions []ContradictionRef `json:"contradictions,omitempty"`

	// TrustAfter snapshots the session trust value immediately after this
	// exchange was applied, for audit and replay.
	TrustAfter float64 `json:"trust_after"`

	// Provider is the identifier of the judge that produced Scores
	// (e.g., "anyllm/anthropic", "heuristic"). Recorded for observability.
	Provider string `json:"provider,omitempty"`

	// ScoredIn is how long the scoring call took.
	ScoredIn time.Duration `json:"scored_in,omitempty"`
}

// Decision is the terminal verdict of a session.
type Decision string

const (
	// DecisionGranted — interrogation: the claimed ship is released.
	DecisionGranted Decision = "granted"

	// DecisionDenied — interrogation: the claim is refused.
	DecisionDenied Decision = "denied"

	// DecisionAccepted — haggling: the standing offer is accepted.
	DecisionAccepted Decision = "accepted"

	// DecisionRejected — haggling: no deal.
	DecisionRejected Decision = "rejected"

	// DecisionCountered — haggling: the trader's final word is a
	// counteroffer at the adjustment price.
	DecisionCountered Decision = "countered"
)

// Reason identifies which termination rule produced an outcome.
type Reason string

const (
	// ReasonTrustSuccess — trust crossed the success threshold.
	ReasonTrustSuccess Reason = "trust_success"

	// ReasonTrustFailure — trust crossed the failure threshold.
	ReasonTrustFailure Reason = "trust_failure"

	// ReasonContradictionOverload — a single turn exceeded the contradiction cap.
	ReasonContradictionOverload Reason = "contradiction_overload"

	// ReasonTurnBudgetExhausted — the turn budget ran out.
	ReasonTurnBudgetExhausted Reason = "turn_budget_exhausted"
)

// ScoreSummary aggregates a finished session's scores for the outcome consumer.
type ScoreSummary struct {
	// AvgPersuasiveness..AvgBelievability are per-axis means over all turns.
	AvgPersuasiveness float64 `json:"avg_persuasiveness"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgConsistency    float64 `json:"avg_consistency"`
	AvgBelievability  float64 `json:"avg_believability"`

	// WeightedPersuasion is the blended negotiation score used for
	// adjustment computation: 0.5·persuasiveness + 0.3·confidence +
	// 0.2·consistency.
	WeightedPersuasion float64 `json:"weighted_persuasion"`

	// FinalTrust is the session trust value at termination.
	FinalTrust float64 `json:"final_trust"`

	// Contradictions is the total contradiction count across all turns.
	Contradictions int `json:"contradictions"`
}

// OutcomeResult is the terminal value of a session. The engine computes it;
// a separate collaborator applies its game effects.
type OutcomeResult struct {
	Decision Decision `json:"decision"`
	Reason   Reason   `json:"reason"`

	// FinalScores summarises the session for the outcome consumer.
	FinalScores ScoreSummary `json:"final_scores"`

	// Adjustment is a multiplier the outcome consumer may apply: starting
	// credits for interrogation, unit price for haggling. Computed here,
	// never applied here.
	Adjustment float64 `json:"adjustment"`

	// Reply is the NPC's closing line for this outcome.
	Reply string `json:"reply,omitempty"`
}

// Session is the unit of state for one negotiation conversation.
//
// All mutation goes through the negotiation orchestrator; every other
// component treats a Session (or a snapshot of it) as read-only input.
// A session must not be advanced by two concurrent calls — serialization is
// the session owner's responsibility.
type Session struct {
	// ID is the externally supplied opaque identifier. It doubles as the
	// deterministic personality seed.
	ID string `json:"id"`

	// Kind selects interrogation or haggling semantics.
	Kind Kind `json:"kind"`

	// Personality is generated once at creation and immutable thereafter.
	Personality NPCPersonality `json:"personality"`

	// Turns is the ordered exchange history. Insertion order is meaningful:
	// it drives recency weighting and contradiction lookups.
	Turns []Exchange `json:"turns"`

	// Trust is the suspicion (interrogation) or firmness (haggling) scalar
	// in [0, 1]. Low is good for the player in both kinds.
	Trust float64 `json:"trust"`

	// Claims is the append-only set of assertions extracted so far.
	Claims []Claim `json:"claims"`

	// Status is open until an outcome freezes the session.
	Status Status `json:"status"`

	// Outcome is set exactly once, when Status becomes resolved.
	Outcome *OutcomeResult `json:"outcome,omitempty"`

	// TurnsLeft is the remaining turn budget. The session is forced to a
	// terminal outcome when it reaches zero, regardless of scores.
	TurnsLeft int `json:"turns_left"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolved reports whether the session has reached a terminal outcome.
func (s *Session) Resolved() bool {
	return s.Status == StatusResolved
}

// LastOffer returns the most recent numeric claim in the offered-price slot
// and whether one exists. Used by the outcome resolver to settle haggling
// sessions that run out the clock.
func (s *Session) LastOffer() (float64, bool) {
	for i := len(s.Claims) - 1; i >= 0; i-- {
		c := s.Claims[i]
		if c.Slot == SlotOfferedPrice && c.IsNumber {
			return c.Number, true
		}
	}
	return 0, false
}

// Clone returns a deep copy of the session. Stores use it to keep their
// internal snapshots isolated from caller mutation.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Turns = make([]Exchange, len(s.Turns))
	for i, t := range s.Turns {
		cp.Turns[i] = t
		if len(t.Contradictions) > 0 {
			cp.Turns[i].Contradictions = append([]ContradictionRef(nil), t.Contradictions...)
		}
	}
	cp.Claims = append([]Claim(nil), s.Claims...)
	if s.Outcome != nil {
		o := *s.Outcome
		cp.Outcome = &o
	}
	return &cp
}

// Well-known claim slots. Judges may emit additional slots; these are the
// ones the engine itself extracts and reasons about.
const (
	// SlotClaimedShipType — the vessel class the player says is theirs.
	SlotClaimedShipType = "claimed-ship-type"

	// SlotClaimedRole — the profession the player claims (pilot, captain…).
	SlotClaimedRole = "claimed-role"

	// SlotClaimedName — the name the player gives for themselves.
	SlotClaimedName = "claimed-name"

	// SlotOfferedPrice — the numeric offer standing in a haggling session.
	SlotOfferedPrice = "offered-price"

	// SlotClaimedOrigin — where or when the player says they arrived from.
	SlotClaimedOrigin = "claimed-origin"
)
