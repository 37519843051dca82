package swipe

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestResolve_Threshold(t *testing.T) {
	tests := []struct {
		name       string
		dx         float64
		wantCommit bool
		want       Outcome
	}{
		{"past reject threshold", -76, true, Reject},
		{"just inside reject threshold", -74, false, ""},
		{"exactly on threshold", -75, false, ""},
		{"no movement", 0, false, ""},
		{"past accept threshold", 76, true, Accept},
		{"just inside accept threshold", 74, false, ""},
		{"far off screen", 1000, true, Accept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, commit := Resolve(tt.dx, 300, 0.25)
			if commit != tt.wantCommit || got != tt.want {
				t.Errorf("Resolve(%v) = (%q, %v), want (%q, %v)", tt.dx, got, commit, tt.want, tt.wantCommit)
			}
		})
	}
}

func TestParseOutcome(t *testing.T) {
	for _, in := range []string{"accept", "LIKE", " right "} {
		if o, err := ParseOutcome(in); err != nil || o != Accept {
			t.Errorf("ParseOutcome(%q) = %q, %v", in, o, err)
		}
	}
	for _, in := range []string{"reject", "pass", "left"} {
		if o, err := ParseOutcome(in); err != nil || o != Reject {
			t.Errorf("ParseOutcome(%q) = %q, %v", in, o, err)
		}
	}
	if _, err := ParseOutcome("maybe"); !errors.Is(err, ErrUnknownOutcome) {
		t.Errorf("expected ErrUnknownOutcome, got %v", err)
	}
}

func TestGesture_DisplacementIncludesOrigin(t *testing.T) {
	var g gesture
	g.begin(100, 50, PoseAt(-20, 5, 300))

	dx, dy := g.displacement(130, 40)
	if dx != 10 || dy != -5 {
		t.Errorf("displacement = (%v, %v), want (10, -5)", dx, dy)
	}
	if g.phase != PhaseDragging {
		t.Errorf("phase = %s, want dragging", g.phase)
	}
}

func TestPhase_String(t *testing.T) {
	if PhaseCommittingReject.String() != "committing_reject" {
		t.Errorf("got %s", PhaseCommittingReject)
	}
	if Phase(42).String() != "phase(42)" {
		t.Errorf("got %s", Phase(42))
	}
}

func TestFrameJSONRoundTrip(t *testing.T) {
	in := Frame{Seq: 3, Phase: PhaseCommittingAccept, State: State{ActiveSlot: SlotB, DeckSize: 2}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Frame
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Phase != PhaseCommittingAccept || out.State.ActiveSlot != SlotB {
		t.Errorf("got phase %s slot %s", out.Phase, out.State.ActiveSlot)
	}

	var p Phase
	if err := p.UnmarshalText([]byte("spinning")); err == nil {
		t.Error("expected an error for an unknown phase")
	}
}
