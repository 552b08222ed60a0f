package interview

import "testing"

func TestPhaseOf_BoundaryTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		turn, maxTurns int
		want           Phase
	}{
		{0, 8, PhaseIntro},
		{-1, 8, PhaseIntro},
		{1, 8, PhaseProjects},
		{2, 8, PhaseProjects},
		{3, 8, PhaseTechnical},
		{4, 8, PhaseTechnical},
		{5, 8, PhaseBehavioral},
		{6, 8, PhaseBehavioral},
		{7, 8, PhaseWrapup},
		{8, 8, PhaseWrapup},
		{7, 12, PhaseScenario},
		{10, 12, PhaseScenario},
		{11, 12, PhaseWrapup},
		// Intro is checked before the wrap-up boundary.
		{0, 1, PhaseIntro},
		{1, 1, PhaseWrapup},
		{0, 2, PhaseIntro},
		{1, 2, PhaseWrapup},
	}

	for _, tc := range cases {
		if got := PhaseOf(tc.turn, tc.maxTurns); got != tc.want {
			t.Errorf("PhaseOf(%d, %d) = %s, want %s", tc.turn, tc.maxTurns, got, tc.want)
		}
	}
}

// TestPhaseOf_Monotonic verifies the phase never regresses as the turn index
// walks from 0 to maxTurns-1.
func TestPhaseOf_Monotonic(t *testing.T) {
	t.Parallel()

	order := map[Phase]int{
		PhaseIntro:      0,
		PhaseProjects:   1,
		PhaseTechnical:  2,
		PhaseBehavioral: 3,
		PhaseScenario:   4,
		PhaseWrapup:     5,
	}

	for maxTurns := 2; maxTurns <= 20; maxTurns++ {
		if got := PhaseOf(0, maxTurns); got != PhaseIntro {
			t.Errorf("PhaseOf(0, %d) = %s, want intro", maxTurns, got)
		}
		if got := PhaseOf(maxTurns-1, maxTurns); got != PhaseWrapup {
			t.Errorf("PhaseOf(%d, %d) = %s, want wrapup", maxTurns-1, maxTurns, got)
		}
		prev := -1
		for turn := 0; turn < maxTurns; turn++ {
			rank := order[PhaseOf(turn, maxTurns)]
			if rank < prev {
				t.Errorf("maxTurns=%d: phase regressed at turn %d", maxTurns, turn)
			}
			prev = rank
		}
	}
}

func TestInferLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role string
		want Level
	}{
		{"Senior Backend Engineer", LevelSenior},
		{"Staff Software Engineer", LevelSenior},
		{"Junior Developer", LevelJunior},
		{"Graduate SWE", LevelJunior},
		{"Engineering Intern", LevelIntern},
		{"Tech Lead", LevelLead},
		{"Principal Engineer", LevelLead},
		{"Software Engineer", LevelMid},
		{"", LevelMid},
	}
	for _, tc := range cases {
		if got := InferLevel(tc.role); got != tc.want {
			t.Errorf("InferLevel(%q) = %s, want %s", tc.role, got, tc.want)
		}
	}
}
