package interview

// Phase is the current stage of the interview script.
type Phase string

const (
	PhaseIntro      Phase = "intro"
	PhaseProjects   Phase = "projects"
	PhaseTechnical  Phase = "technical"
	PhaseBehavioral Phase = "behavioral"
	PhaseScenario   Phase = "scenario"
	PhaseWrapup     Phase = "wrapup"
)

// PhaseOf maps a turn index to its interview phase. The mapping is total and
// deterministic; phase must never be set except through this function.
//
// The intro rule is checked before the wrap-up boundary, so a single-turn
// interview at turn 0 is intro, not wrapup.
func PhaseOf(turnIndex, maxTurns int) Phase {
	if turnIndex <= 0 {
		return PhaseIntro
	}
	if turnIndex >= max(0, maxTurns-1) {
		return PhaseWrapup
	}
	switch {
	case turnIndex <= 2:
		return PhaseProjects
	case turnIndex <= 4:
		return PhaseTechnical
	case turnIndex <= 6:
		return PhaseBehavioral
	default:
		return PhaseScenario
	}
}
