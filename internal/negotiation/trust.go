package negotiation

import "github.com/callistoworks/parley/pkg/types"

// TrustWeights tunes how one scored exchange moves the trust scalar.
// All weights are non-negative except Similarity, which is signed: positive
// treats repetition as suspicious, negative rewards a player who sticks to
// one story. It defaults to zero so repetition is neutral unless an operator
// takes a position.
type TrustWeights struct {
	Persuasion        float64 `yaml:"persuasion"`
	Confidence        float64 `yaml:"confidence"`
	Inconsistency     float64 `yaml:"inconsistency"`
	Doubt             float64 `yaml:"doubt"`
	ContradictionStep float64 `yaml:"contradiction_step"`
	Similarity        float64 `yaml:"similarity"`

	// Attenuation discounts relief on suspicious NPCs: a paranoid guard
	// gives less credit for the same performance.
	Attenuation float64 `yaml:"attenuation"`
}

// DefaultTrustWeights returns the tuning for a negotiation kind. Traders move
// faster than guards: a good pitch shifts the price quickly, while a guard
// needs sustained consistency before relaxing.
func DefaultTrustWeights(kind types.Kind) TrustWeights {
	w := TrustWeights{
		Persuasion:        0.12,
		Confidence:        0.08,
		Inconsistency:     0.10,
		Doubt:             0.10,
		ContradictionStep: 0.15,
		Similarity:        0,
		Attenuation:       0.5,
	}
	if kind == types.KindHaggling {
		w.Persuasion = 0.16
		w.Confidence = 0.10
		w.ContradictionStep = 0.12
	}
	return w
}

// UpdateTrust applies one scored exchange to the current trust value and
// returns the new value, clamped to [0, 1]. Pure: same inputs, same output.
//
// Weak axes raise trust (pressure), strong delivery lowers it (relief), and
// the NPC's base suspicion attenuates how much relief the player earns.
func UpdateTrust(current float64, p types.NPCPersonality, s types.ExchangeScore, contradictions int, w TrustWeights) float64 {
	pressure := w.Inconsistency*(1-s.Consistency) +
		w.Doubt*(1-s.Believability) +
		w.ContradictionStep*float64(contradictions) +
		w.Similarity*s.Similarity

	relief := (w.Persuasion*s.Persuasiveness + w.Confidence*s.Confidence) *
		(1 - w.Attenuation*p.BaseSuspicion)

	return clamp01(current + pressure - relief)
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
