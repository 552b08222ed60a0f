// Package question builds interview questions: a prompt assembled from the
// session context is sent to the configured language model, the raw reply is
// sanitised, and a phase-keyed canned bank covers every failure mode so the
// interview never stalls for lack of a question.
package question

import (
	"fmt"
	"slices"

	"github.com/MrWong99/intervox/internal/interview"
)

// bank holds the canned fallback questions per phase. The projects and
// technical phases carry distinct junior and senior variants; the remaining
// phases read the same at any seniority.
var bank = map[interview.Phase][]string{
	interview.PhaseIntro: {
		"To start, could you briefly introduce yourself and walk me through your background?",
		"Tell me a little about yourself and what drew you to this role.",
	},
	interview.PhaseBehavioral: {
		"Tell me about a time you disagreed with a teammate. How did you resolve it?",
		"Describe a situation where you received critical feedback. What did you do with it?",
		"Tell me about a deadline you nearly missed and how you handled it.",
	},
	interview.PhaseScenario: {
		"Imagine a production incident hits right before a major release. Walk me through your first hour.",
		"Suppose a stakeholder asks for a feature you believe is a bad idea. How do you respond?",
	},
	interview.PhaseWrapup: {
		"Before we wrap up, is there anything about your experience we haven't covered that you'd like to share?",
		"As we finish, what questions do you have for us about the role or the team?",
	},
}

var juniorBank = map[interview.Phase][]string{
	interview.PhaseProjects: {
		"Tell me about a project from your studies or personal work that you're proud of. What was your part in it?",
		"Walk me through something you built recently. What did you learn from it?",
	},
	interview.PhaseTechnical: {
		"How would you explain the difference between a list and a map, and when would you pick each?",
		"Describe how you would debug a program that crashes only sometimes.",
	},
}

var seniorBank = map[interview.Phase][]string{
	interview.PhaseProjects: {
		"Tell me about a system you owned end to end. What trade-offs shaped its architecture?",
		"Describe a project where you had to influence other teams. How did you drive it to completion?",
	},
	interview.PhaseTechnical: {
		"How do you approach designing a service that must stay available through partial infrastructure failure?",
		"Walk me through how you would diagnose a gradual memory leak in a long-running production service.",
	},
}

// Canned returns a fallback question for the given phase and seniority that
// has not been asked yet. When every bank entry for the phase is exhausted it
// reuses the first entry with a follow-up suffix so the returned string is
// still distinct from every asked question.
func Canned(phase interview.Phase, level interview.Level, asked []string) string {
	pool := bank[phase]
	switch phase {
	case interview.PhaseProjects, interview.PhaseTechnical:
		if level.AtLeast(interview.LevelSenior) {
			pool = seniorBank[phase]
		} else {
			pool = juniorBank[phase]
		}
	}
	if len(pool) == 0 {
		pool = bank[interview.PhaseBehavioral]
	}
	for _, q := range pool {
		if !slices.Contains(asked, q) {
			return q
		}
	}
	// Exhausted: derive a fresh string rather than repeat verbatim.
	followup := fmt.Sprintf("%s Feel free to pick a different example this time.", pool[0])
	for slices.Contains(asked, followup) {
		followup += " Anything else comes to mind?"
	}
	return followup
}
