package negotiation

import (
	"testing"

	"github.com/callistoworks/parley/pkg/types"
)

func categorical(slot, value string, turn int) types.Claim {
	return types.Claim{Slot: slot, Value: value, Turn: turn}
}

func numeric(slot string, n float64, turn int) types.Claim {
	return types.Claim{Slot: slot, Number: n, IsNumber: true, Turn: turn}
}

func TestCheckContradictions_Categorical(t *testing.T) {
	tol := DefaultTolerance()
	tests := []struct {
		name     string
		existing types.Claim
		incoming types.Claim
		want     int
	}{
		{
			name:     "identical repeat never flags",
			existing: categorical(types.SlotClaimedShipType, "light freighter", 1),
			incoming: categorical(types.SlotClaimedShipType, "light freighter", 2),
			want:     0,
		},
		{
			name:     "case and whitespace normalize away",
			existing: categorical(types.SlotClaimedShipType, "Light  Freighter", 1),
			incoming: categorical(types.SlotClaimedShipType, "light freighter", 2),
			want:     0,
		},
		{
			name:     "typo'd repeat is not a contradiction",
			existing: categorical(types.SlotClaimedName, "morrison", 1),
			incoming: categorical(types.SlotClaimedName, "morrisson", 2),
			want:     0,
		},
		{
			name:     "changed story flags",
			existing: categorical(types.SlotClaimedRole, "pilot", 1),
			incoming: categorical(types.SlotClaimedRole, "passenger", 2),
			want:     1,
		},
		{
			name:     "different slots never conflict",
			existing: categorical(types.SlotClaimedRole, "pilot", 1),
			incoming: categorical(types.SlotClaimedName, "passenger", 2),
			want:     0,
		},
		{
			name:     "empty value never conflicts",
			existing: categorical(types.SlotClaimedRole, "", 1),
			incoming: categorical(types.SlotClaimedRole, "pilot", 2),
			want:     0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckContradictions([]types.Claim{tt.existing}, []types.Claim{tt.incoming}, tol)
			if len(got) != tt.want {
				t.Fatalf("got %d contradictions, want %d: %+v", len(got), tt.want, got)
			}
		})
	}
}

func TestCheckContradictions_Numeric(t *testing.T) {
	tol := DefaultTolerance()

	within := CheckContradictions(
		[]types.Claim{numeric(types.SlotOfferedPrice, 500, 1)},
		[]types.Claim{numeric(types.SlotOfferedPrice, 500.004, 2)},
		tol,
	)
	if len(within) != 0 {
		t.Fatalf("rounding noise flagged as contradiction: %+v", within)
	}

	beyond := CheckContradictions(
		[]types.Claim{numeric(types.SlotOfferedPrice, 500, 1)},
		[]types.Claim{numeric(types.SlotOfferedPrice, 600, 2)},
		tol,
	)
	if len(beyond) != 1 {
		t.Fatalf("changed offer not flagged: %+v", beyond)
	}
	if beyond[0].PriorTurn != 1 || beyond[0].NewTurn != 2 {
		t.Fatalf("ref turns = %d/%d, want 1/2", beyond[0].PriorTurn, beyond[0].NewTurn)
	}
}

func TestCheckContradictions_OrderIndependent(t *testing.T) {
	tol := DefaultTolerance()
	a := categorical(types.SlotClaimedRole, "pilot", 1)
	b := categorical(types.SlotClaimedRole, "captain", 2)

	forward := CheckContradictions([]types.Claim{a}, []types.Claim{b}, tol)
	reverse := CheckContradictions([]types.Claim{b}, []types.Claim{a}, tol)
	if len(forward) != len(reverse) {
		t.Fatalf("detection depends on order: %d vs %d", len(forward), len(reverse))
	}
}

func TestCheckContradictions_WithinSameTurn(t *testing.T) {
	incoming := []types.Claim{
		categorical(types.SlotClaimedRole, "pilot", 1),
		categorical(types.SlotClaimedRole, "passenger", 1),
	}
	got := CheckContradictions(nil, incoming, DefaultTolerance())
	if len(got) != 1 {
		t.Fatalf("self-contradiction in one response not flagged: %+v", got)
	}
}
