// Package prompt supplies the NPC lines a player answers. The engine treats
// prompt content as an external concern; this package provides the built-in
// static source with per-kind topic rotation. Selection is a pure function of
// session state, so the pending prompt never needs to be persisted — any
// replica recomputes the same line.
package prompt

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/callistoworks/parley/internal/negotiation"
	"github.com/callistoworks/parley/pkg/types"
)

// Interrogation topics, rotated in order so a full-budget session touches
// each angle of the story once.
const (
	topicIdentity    = "identity_verification"
	topicArrival     = "arrival_details"
	topicShip        = "ship_knowledge"
	topicSituational = "situational_awareness"
)

var interrogationTopics = []string{
	topicIdentity,
	topicArrival,
	topicShip,
	topicSituational,
}

var interrogationQuestions = map[string][]string{
	topicIdentity: {
		"What's your pilot registration name?",
		"What's your clearance code for this sector?",
		"May I see your pilot's license ID number?",
	},
	topicArrival: {
		"When did you dock at this station?",
		"Who processed your landing clearance?",
		"What was your approach vector when you arrived?",
	},
	topicShip: {
		"What's the maximum warp capacity of your vessel?",
		"How old is your ship's registration?",
		"What's your ship's registry identification?",
	},
	topicSituational: {
		"Why is your ship docked in this restricted area?",
		"Do you have authorization for the outer rim transit lanes?",
		"Are you aware of the current security protocols?",
	},
}

var hagglingProbes = []string{
	"What are you offering for the lot?",
	"That's below what I paid for it. Can you do better?",
	"Other buyers have shown interest. Why should I hold it for you?",
	"Talk numbers. What's the cargo actually worth to you?",
	"You know the market rate. Where do you land?",
}

// Static is the built-in deterministic prompt source.
type Static struct{}

var _ negotiation.PromptSource = (*Static)(nil)

// NewStatic returns the built-in prompt source.
func NewStatic() *Static {
	return &Static{}
}

// Prompt returns the NPC line for the session's current turn. The session ID
// offsets the rotation so two sessions don't open with identical scripts, and
// the tone hardens as the conversation drags on or suspicion climbs.
func (st *Static) Prompt(s *types.Session) string {
	if s.Kind == types.KindHaggling {
		return st.hagglingPrompt(s)
	}
	return st.interrogationPrompt(s)
}

func (st *Static) interrogationPrompt(s *types.Session) string {
	turn := len(s.Turns)
	if turn == 0 {
		return fmt.Sprintf("Hold it right there. %s %s, station security. That ship's flagged in my registry. Care to explain why you're climbing into it?",
			s.Personality.Title, s.Personality.Name)
	}

	h := xxhash.Sum64String(s.ID)
	topic := interrogationTopics[(int(h%uint64(len(interrogationTopics)))+turn)%len(interrogationTopics)]
	pool := interrogationQuestions[topic]
	q := pool[(int(h>>16)+turn)%len(pool)]

	switch {
	case turn >= 3 || s.Trust >= 0.75:
		return "That's interesting... " + q + " And this time, I want a straight answer."
	case turn >= 2 || s.Trust >= 0.6:
		return "Hmm, I'm not sure I believe that. " + q
	default:
		return q
	}
}

func (st *Static) hagglingPrompt(s *types.Session) string {
	turn := len(s.Turns)
	if turn == 0 {
		return fmt.Sprintf("%s %s looks you over. \"Everything's for sale, for the right price. Make me an offer.\"",
			s.Personality.Title, s.Personality.Name)
	}

	h := xxhash.Sum64String(s.ID)
	q := hagglingProbes[(int(h>>8)+turn)%len(hagglingProbes)]
	if s.Trust >= 0.75 {
		return "My patience is wearing thin. " + q
	}
	return q
}
