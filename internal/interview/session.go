// Package interview holds the per-interview session record, its in-memory
// store, and the pure domain functions over it: the turn→phase script,
// seniority inference, and fact extraction.
package interview

import "time"

// State is the orchestration state of one session. Transitions are driven
// exclusively by the orchestrator.
type State string

const (
	StateAwaitingJoin    State = "awaiting-join"
	StateQuestionIssued  State = "question-issued"
	StateCapturingAnswer State = "capturing-answer"
	StateTranscribing    State = "transcribing"
	StateEvaluating      State = "evaluating"
	StateCompleted       State = "completed"
)

// RecentTranscriptCap is how many raw transcripts are kept as short-term
// context for the next question.
const RecentTranscriptCap = 3

// Session is the server-side record of one in-progress interview. It is
// created at interview start, mutated only under its store entry's lock,
// and evicted at TTL; there is no persistence.
type Session struct {
	// ID is the opaque correlation key for every channel event and HTTP
	// call referencing this interview.
	ID string

	// Context strings supplied at creation; never mutated.
	Company         string
	Role            string
	RoleDescription string
	Competencies    string

	// Level is the candidate seniority band, inferred from Role when not
	// supplied explicitly.
	Level Level

	// TurnIndex counts completed answers, clamped to MaxTurns.
	TurnIndex int

	// MaxTurns is fixed at creation, ≥ 1.
	MaxTurns int

	// Phase is always PhaseOf(TurnIndex, MaxTurns).
	Phase Phase

	// State is the orchestration state.
	State State

	// CurrentQuestion is the question most recently issued; empty before
	// the first question exists.
	CurrentQuestion string

	// AskedQuestions is the append-only history of every issued question,
	// used to forbid repetition.
	AskedQuestions []string

	// RecentTranscripts holds at most the last RecentTranscriptCap raw
	// transcripts, oldest evicted first.
	RecentTranscripts []string

	// Transcripts is the full uncapped transcript history.
	Transcripts []string

	// SummarySoFar is the accumulated fact summary, capped by the
	// orchestrator; overflow drops the oldest content.
	SummarySoFar string

	// Chunks buffers the raw audio fragments of the turn currently being
	// answered; empty except while capture is active.
	Chunks [][]byte

	// Scores holds the per-turn evaluation scores, for the closing average.
	Scores []int

	// CreatedAt and Touched drive TTL eviction.
	CreatedAt time.Time
	Touched   time.Time
}

// PushQuestion records q as issued: appended to the asked history and set
// as the current question.
func (s *Session) PushQuestion(q string) {
	s.AskedQuestions = append(s.AskedQuestions, q)
	s.CurrentQuestion = q
}

// PushTranscript appends t to the full history and the capped recent
// window.
func (s *Session) PushTranscript(t string) {
	s.Transcripts = append(s.Transcripts, t)
	s.RecentTranscripts = append(s.RecentTranscripts, t)
	if len(s.RecentTranscripts) > RecentTranscriptCap {
		s.RecentTranscripts = s.RecentTranscripts[len(s.RecentTranscripts)-RecentTranscriptCap:]
	}
}

// AdvanceTurn increments the turn index (clamped to MaxTurns) and
// recomputes the phase. Reports whether the interview is now finished.
func (s *Session) AdvanceTurn() bool {
	s.TurnIndex++
	if s.TurnIndex > s.MaxTurns {
		s.TurnIndex = s.MaxTurns
	}
	s.Phase = PhaseOf(s.TurnIndex, s.MaxTurns)
	return s.TurnIndex >= s.MaxTurns
}

// AverageScore returns the mean of all recorded scores, or 0 when none.
func (s *Session) AverageScore() float64 {
	if len(s.Scores) == 0 {
		return 0
	}
	var sum int
	for _, sc := range s.Scores {
		sum += sc
	}
	return float64(sum) / float64(len(s.Scores))
}
