// Package heuristic implements a deterministic, offline judge. It scores
// responses with rule-based text analysis: word counts, confident and
// hesitant language, procedural vocabulary, and string similarity against
// earlier attempts. It serves both as a standalone provider for offline
// deployments and as the evaluator's terminal fallback when every LLM judge
// fails — same inputs always yield the same scores, so a judge outage never
// makes a session non-replayable.
package heuristic

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/callistoworks/parley/pkg/judge"
	"github.com/callistoworks/parley/pkg/types"
)

// Name is the provider identifier recorded on exchanges scored here.
const Name = "heuristic"

var confidentWords = []string{
	"absolutely", "definitely", "certainly", "of course", "obviously", "clearly",
}

var hesitantWords = []string{
	"maybe", "perhaps", "might", "could be", "i think", "not sure",
}

// proceduralWords signal a player who engages with the verification process
// instead of deflecting. They drive the persuasion component.
var proceduralWords = []string{
	"understand", "authorize", "verify", "check", "records", "supervisor",
	"manifest", "clearance",
}

var shipWords = []string{
	"freighter", "scout", "cargo", "patrol", "mining vessel", "yacht", "escape pod",
}

var roleWords = []string{"captain", "pilot", "passenger", "mechanic", "trader"}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Judge is the rule-based provider. The zero value is not usable; call New.
type Judge struct{}

// New returns a ready heuristic judge.
func New() *Judge {
	return &Judge{}
}

var _ judge.Provider = (*Judge)(nil)

func (j *Judge) Name() string { return Name }

// Score rates the response without any external call. It never fails; the
// error return exists only to satisfy the provider contract.
func (j *Judge) Score(_ context.Context, req judge.Request) (judge.Result, error) {
	lower := strings.ToLower(req.Response)
	wordCount := len(strings.Fields(req.Response))

	// Longer answers read as more confident, up to a point.
	confidence := minf(1, float64(wordCount)/20)
	confidence += 0.1 * float64(countOccurrences(lower, confidentWords))
	confidence -= 0.15 * float64(countOccurrences(lower, hesitantWords))

	skill := minf(1, 0.2*float64(countOccurrences(lower, proceduralWords)))

	consistency := 1.0
	if n := priorContradictions(req.History); n > 0 {
		consistency = maxf(0.3, 1-0.2*float64(n))
	}

	persuasiveness := (clamp01(confidence) + skill + consistency) / 3

	res := judge.Result{
		Scores: types.ExchangeScore{
			Persuasiveness: persuasiveness,
			Confidence:     confidence,
			Consistency:    consistency,
			Believability:  persuasiveness,
			Similarity:     similarityToHistory(req.Response, req.History),
		},
		Claims: extractClaims(req, lower),
	}
	res.Clamp()
	return res, nil
}

func extractClaims(req judge.Request, lower string) []types.Claim {
	var claims []types.Claim
	for _, role := range roleWords {
		if containsWord(lower, role) {
			claims = append(claims, types.Claim{
				Text:  "Claims to be a " + role,
				Slot:  types.SlotClaimedRole,
				Value: role,
			})
			break
		}
	}
	for _, ship := range shipWords {
		if strings.Contains(lower, ship) {
			claims = append(claims, types.Claim{
				Text:  "References a " + ship,
				Slot:  types.SlotClaimedShipType,
				Value: ship,
			})
			break
		}
	}
	if name := parseName(lower); name != "" {
		claims = append(claims, types.Claim{
			Text:  "Gives the name " + name,
			Slot:  types.SlotClaimedName,
			Value: name,
		})
	}
	if req.Kind == types.KindHaggling {
		if offer, ok := parseOffer(lower); ok {
			claims = append(claims, types.Claim{
				Text:     "Offers " + offer.Value,
				Slot:     types.SlotOfferedPrice,
				Value:    offer.Value,
				Number:   offer.Number,
				IsNumber: true,
			})
		}
	}
	return claims
}

// parseName pulls the token following "my name is" / "name's", punctuation
// stripped. Single token only: surnames come out of the follow-up questions.
func parseName(lower string) string {
	for _, marker := range []string{"my name is ", "name's "} {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		rest := strings.Fields(lower[idx+len(marker):])
		if len(rest) == 0 {
			continue
		}
		return strings.Trim(rest[0], ".,!?;:'\"")
	}
	return ""
}

func parseOffer(lower string) (types.Claim, bool) {
	matches := numberPattern.FindAllString(lower, -1)
	if len(matches) == 0 {
		return types.Claim{}, false
	}
	// The last number in an utterance is the standing offer.
	raw := matches[len(matches)-1]
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return types.Claim{}, false
	}
	return types.Claim{Value: raw, Number: n}, true
}

// similarityToHistory is the best Jaro-Winkler match between the new response
// and any previous one. A player repeating themselves verbatim scores near 1.
func similarityToHistory(response string, history []types.Exchange) float64 {
	best := 0.0
	for _, ex := range history {
		if ex.PlayerResponse == "" {
			continue
		}
		if sim := matchr.JaroWinkler(strings.ToLower(response), strings.ToLower(ex.PlayerResponse), true); sim > best {
			best = sim
		}
	}
	return best
}

func priorContradictions(history []types.Exchange) int {
	n := 0
	for _, ex := range history {
		n += len(ex.Contradictions)
	}
	return n
}

func countOccurrences(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// containsWord matches on word boundaries so "copilot" does not claim "pilot".
func containsWord(lower, word string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		leftOK := start == 0 || !isWordChar(lower[start-1])
		rightOK := end == len(lower) || !isWordChar(lower[end])
		if leftOK && rightOK {
			return true
		}
		idx = end
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}

func clamp01(v float64) float64 {
	return minf(1, maxf(0, v))
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
