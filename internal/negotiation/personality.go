package negotiation

import (
	"github.com/cespare/xxhash/v2"

	"github.com/callistoworks/parley/pkg/types"
)

// trait pairs an archetype label with the disposition it implies. For guards
// Base is starting suspicion; for traders it is starting firmness. Either way
// it seeds Session.Trust.
type trait struct {
	Name        string
	Base        float64
	Description string
}

// npcNames is shared between both kinds. Stations are multicultural; vendors
// and guards draw from the same crew rosters.
var npcNames = []string{
	"Chen", "Rodriguez", "Sato", "O'Brien", "Kowalski", "Singh",
	"Müller", "Nakamura", "Garcia", "Petrov", "Kim", "Anderson",
}

var guardTitles = []string{
	"Security Officer",
	"Guard",
	"Security Chief",
	"Station Inspector",
	"Docking Authority",
	"Customs Officer",
}

var guardTraits = []trait{
	{
		Name:        "Strict Rule-Follower",
		Base:        0.6,
		Description: "By-the-book enforcer who trusts procedure over instinct",
	},
	{
		Name:        "Friendly Veteran",
		Base:        0.3,
		Description: "Experienced officer who's seen it all and can spot a good story",
	},
	{
		Name:        "Paranoid Newbie",
		Base:        0.7,
		Description: "Fresh recruit trying to prove themselves, suspicious of everyone",
	},
	{
		Name:        "Tired Night-Shifter",
		Base:        0.4,
		Description: "Exhausted from long shifts, just wants to process paperwork quickly",
	},
	{
		Name:        "Shrewd Investigator",
		Base:        0.5,
		Description: "Keen observer who listens carefully and catches inconsistencies",
	},
	{
		Name:        "Cynical Bureaucrat",
		Base:        0.55,
		Description: "Seen too many lies to trust anyone easily",
	},
}

var traderTitles = []string{
	"Cargo Broker",
	"Commodities Dealer",
	"Port Merchant",
	"Supply Master",
	"Freight Agent",
	"Market Vendor",
}

var traderTraits = []trait{
	{
		Name:        "Hard Bargainer",
		Base:        0.65,
		Description: "Squeezes every credit and respects buyers who push back",
	},
	{
		Name:        "Easygoing Dealer",
		Base:        0.35,
		Description: "Prefers fast, friendly deals over drawn-out haggling",
	},
	{
		Name:        "Volume Mover",
		Base:        0.45,
		Description: "Margins matter less than keeping cargo flowing",
	},
	{
		Name:        "Old Port Hand",
		Base:        0.5,
		Description: "Knows the fair price of everything and every trick in the book",
	},
	{
		Name:        "Desperate Seller",
		Base:        0.3,
		Description: "Overdue on docking fees and motivated to close",
	},
	{
		Name:        "Prestige Merchant",
		Base:        0.6,
		Description: "Trades on reputation and will not be lowballed",
	},
}

// GeneratePersonality derives the NPC for a session. The same (sessionID,
// kind) pair always yields the same personality, with no stored state: the
// session ID is the seed. Independent slices of a single xxhash64 digest pick
// name, title and trait so the three choices do not correlate.
func GeneratePersonality(sessionID string, kind types.Kind) types.NPCPersonality {
	titles, traits := guardTitles, guardTraits
	if kind == types.KindHaggling {
		titles, traits = traderTitles, traderTraits
	}

	h := xxhash.Sum64String(string(kind) + ":" + sessionID)
	name := npcNames[int(h&0xFFFF)%len(npcNames)]
	title := titles[int(h>>16&0xFFFF)%len(titles)]
	tr := traits[int(h>>32&0xFFFF)%len(traits)]

	return types.NPCPersonality{
		Name:          name,
		Title:         title,
		Trait:         tr.Name,
		BaseSuspicion: tr.Base,
		Description:   tr.Description,
	}
}
