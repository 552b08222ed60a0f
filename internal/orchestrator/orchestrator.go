// Package orchestrator drives the per-session interview state machine: it
// owns session creation, audio chunk buffering, the end-of-answer sequence
// (transcribe, extract facts, grade, next question), and completion. Every
// external dependency degrades to a deterministic fallback so no error halts
// an interview in progress.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/intervox/internal/evaluate"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/question"
	"github.com/MrWong99/intervox/internal/transcribe"
)

// SentinelTranscript replaces the transcript when transcription fails, so
// the turn still advances and grading has something to chew on.
const SentinelTranscript = "Transcription failed."

// Event names pushed to the session's channel room.
const (
	EventQuestion       = "question"
	EventSessionMissing = "session-missing"
	EventEvaluation     = "evaluation"
	EventInterviewEnded = "interview-ended"
)

// Notifier pushes fire-and-forget events to every channel joined to a
// session id. Implementations must not block.
type Notifier interface {
	Notify(sessionID, event string, payload any)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, any) {}

// QuestionPayload accompanies [EventQuestion].
type QuestionPayload struct {
	Question string `json:"question"`
}

// EvaluationPayload accompanies [EventEvaluation]. NextQuestion is null on
// the terminal turn.
type EvaluationPayload struct {
	Evaluation   evaluate.Evaluation `json:"evaluation"`
	NextQuestion *string             `json:"nextQuestion"`
	Transcript   string              `json:"transcript"`
}

// EndedPayload accompanies [EventInterviewEnded].
type EndedPayload struct {
	Summary      string  `json:"summary"`
	AverageScore float64 `json:"averageScore"`
}

// Params describes a new interview.
type Params struct {
	Company         string
	Role            string
	RoleDescription string
	Competencies    string
	Level           string
	MaxTurns        int
}

// Created reports the outcome of session creation.
type Created struct {
	ID       string
	Question string
	Phase    interview.Phase
}

// Orchestrator coordinates the whole interview flow. Safe for concurrent
// use: all session mutation runs under the store's per-id lock, so each
// session is effectively single-threaded.
type Orchestrator struct {
	store     *interview.Store
	pipeline  *transcribe.Pipeline
	generator *question.Generator
	evaluator *evaluate.Evaluator
	notifier  Notifier
	metrics   *observe.Metrics
	log       *slog.Logger

	defaultMaxTurns int
	summaryCap      int
	grace           time.Duration

	// Recording format the channel delivers; one deployment serves one
	// client build, so this is fixed at construction.
	container  transcribe.Container
	sampleRate int
	channels   int
}

// Option customises an [Orchestrator].
type Option func(*Orchestrator)

// WithNotifier sets the push-event sink. Default discards events.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithMetrics sets the metrics instance. Default is observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger. Default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithDefaultMaxTurns sets the turn count used when a creation request
// leaves it unset. Default 8.
func WithDefaultMaxTurns(n int) Option {
	return func(o *Orchestrator) { o.defaultMaxTurns = n }
}

// WithSummaryCap bounds the accumulated fact summary in runes. Default 1200.
func WithSummaryCap(n int) Option {
	return func(o *Orchestrator) { o.summaryCap = n }
}

// WithGrace sets how long end-of-answer waits for straggling chunks.
// Values below 300 ms are raised to 300 ms.
func WithGrace(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d < 300*time.Millisecond {
			d = 300 * time.Millisecond
		}
		o.grace = d
	}
}

// WithRecordingFormat declares the audio format the channel delivers.
// Default is length-prefixed opus at 48 kHz mono.
func WithRecordingFormat(c transcribe.Container, sampleRate, channels int) Option {
	return func(o *Orchestrator) {
		o.container = c
		o.sampleRate = sampleRate
		o.channels = channels
	}
}

// New wires an orchestrator over its collaborators. pipeline, generator and
// evaluator must be non-nil (the generator and evaluator tolerate nil
// providers internally).
func New(store *interview.Store, pipeline *transcribe.Pipeline, gen *question.Generator, eval *evaluate.Evaluator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           store,
		pipeline:        pipeline,
		generator:       gen,
		evaluator:       eval,
		notifier:        NopNotifier{},
		log:             slog.Default(),
		defaultMaxTurns: 8,
		summaryCap:      1200,
		grace:           300 * time.Millisecond,
		container:       transcribe.ContainerOpus,
		sampleRate:      48000,
		channels:        1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	store.SetOnEvict(o.sessionEvicted)
	return o
}

// sessionEvicted settles the active-session gauge for interviews that aged
// out of the store before completing. Completed sessions already decremented
// it at their final turn.
func (o *Orchestrator) sessionEvicted(s *interview.Session) {
	if s.State == interview.StateCompleted {
		return
	}
	o.metrics.ActiveSessions.Add(context.Background(), -1)
	o.log.Info("abandoned interview evicted", "session", s.ID, "turns", s.TurnIndex)
}

// Create starts a new interview: builds the session, generates the first
// question synchronously (canned fallback included), and stores it.
func (o *Orchestrator) Create(ctx context.Context, p Params) (Created, error) {
	maxTurns := p.MaxTurns
	if maxTurns < 1 {
		maxTurns = o.defaultMaxTurns
	}
	level := interview.Level(p.Level)
	if !level.IsValid() {
		level = interview.InferLevel(p.Role)
	}

	s := &interview.Session{
		ID:              uuid.NewString(),
		Company:         p.Company,
		Role:            p.Role,
		RoleDescription: p.RoleDescription,
		Competencies:    p.Competencies,
		Level:           level,
		MaxTurns:        maxTurns,
		Phase:           interview.PhaseOf(0, maxTurns),
		State:           interview.StateAwaitingJoin,
		CreatedAt:       time.Now(),
		Touched:         time.Now(),
	}

	q, canned := o.nextQuestion(ctx, s)
	if canned {
		o.metrics.RecordFallback(ctx, observe.FallbackCannedQuestion)
	}
	s.PushQuestion(q)
	s.State = interview.StateQuestionIssued

	o.store.Create(s)
	o.metrics.ActiveSessions.Add(ctx, 1)
	o.log.Info("interview created",
		"session", s.ID, "role", p.Role, "level", level, "max_turns", maxTurns)

	return Created{ID: s.ID, Question: q, Phase: s.Phase}, nil
}

// Join handles a channel joining a session room. Known ids re-see the
// current question, completed sessions included (stale display, not
// reopened). Unknown ids get a session-missing event.
func (o *Orchestrator) Join(sessionID string) {
	err := o.store.Do(sessionID, func(s *interview.Session) error {
		if s.CurrentQuestion != "" {
			o.notifier.Notify(sessionID, EventQuestion, QuestionPayload{Question: s.CurrentQuestion})
		}
		return nil
	})
	if err != nil {
		o.notifier.Notify(sessionID, EventSessionMissing, struct{}{})
	}
}

// AudioChunk buffers one audio fragment for the session's current turn.
// The first chunk after a question moves the session into answer capture.
// Chunks arriving in any other state are dropped, counted, and logged.
func (o *Orchestrator) AudioChunk(sessionID string, data []byte) {
	err := o.store.Do(sessionID, func(s *interview.Session) error {
		switch s.State {
		case interview.StateQuestionIssued:
			s.State = interview.StateCapturingAnswer
			s.Chunks = s.Chunks[:0]
		case interview.StateCapturingAnswer:
		default:
			o.metrics.ChunksRejected.Add(context.Background(), 1)
			o.log.Debug("audio chunk rejected", "session", sessionID, "state", s.State)
			return nil
		}
		buf := make([]byte, len(data))
		copy(buf, data)
		s.Chunks = append(s.Chunks, buf)
		return nil
	})
	if err != nil {
		o.notifier.Notify(sessionID, EventSessionMissing, struct{}{})
	}
}

// EndAnswer runs the full end-of-turn sequence for the session. It waits the
// grace period for straggling chunks first, then transcribes, extracts
// facts, advances the turn, grades, and either issues the next question or
// completes the interview. All outcomes are pushed through the notifier.
func (o *Orchestrator) EndAnswer(ctx context.Context, sessionID string) {
	// Admit in-flight chunks before sealing the recording.
	select {
	case <-time.After(o.grace):
	case <-ctx.Done():
		return
	}

	err := o.store.Do(sessionID, func(s *interview.Session) error {
		if s.State != interview.StateCapturingAnswer && s.State != interview.StateQuestionIssued {
			o.log.Debug("end-answer ignored", "session", sessionID, "state", s.State)
			return nil
		}
		o.runTurn(ctx, s)
		return nil
	})
	if err != nil {
		o.notifier.Notify(sessionID, EventSessionMissing, struct{}{})
	}
}

// runTurn executes one answered turn. Called under the session's lock, so
// the whole sequence is serialised per session.
func (o *Orchestrator) runTurn(ctx context.Context, s *interview.Session) {
	recording := concat(s.Chunks)
	s.Chunks = nil
	s.State = interview.StateTranscribing

	askedQuestion := s.CurrentQuestion

	transcript := o.transcribeRecording(ctx, s.ID, recording)
	s.PushTranscript(transcript)

	if facts := interview.ExtractFacts(transcript); facts != "" {
		s.SummarySoFar = interview.AppendCapped(s.SummarySoFar, facts, o.summaryCap)
	}

	finished := s.AdvanceTurn()
	s.State = interview.StateEvaluating

	start := time.Now()
	ev, mocked := o.evaluator.Evaluate(ctx, askedQuestion, transcript)
	observe.RecordStageDuration(ctx, o.metrics.LLMDuration, time.Since(start).Seconds(), evalStatus(mocked))
	if mocked {
		o.metrics.RecordFallback(ctx, observe.FallbackMockEvaluation)
	}
	s.Scores = append(s.Scores, ev.Score)
	o.metrics.TurnsCompleted.Add(ctx, 1)

	if finished {
		s.State = interview.StateCompleted
		o.metrics.InterviewsCompleted.Add(ctx, 1)
		o.metrics.ActiveSessions.Add(ctx, -1)
		o.notifier.Notify(s.ID, EventEvaluation, EvaluationPayload{
			Evaluation: ev,
			Transcript: transcript,
		})
		o.notifier.Notify(s.ID, EventInterviewEnded, EndedPayload{
			Summary:      s.SummarySoFar,
			AverageScore: s.AverageScore(),
		})
		o.log.Info("interview completed",
			"session", s.ID, "turns", s.TurnIndex, "average_score", s.AverageScore())
		return
	}

	next, canned := o.nextQuestion(ctx, s)
	if canned {
		o.metrics.RecordFallback(ctx, observe.FallbackCannedQuestion)
	}
	s.PushQuestion(next)
	s.State = interview.StateQuestionIssued

	o.notifier.Notify(s.ID, EventEvaluation, EvaluationPayload{
		Evaluation:   ev,
		NextQuestion: &next,
		Transcript:   transcript,
	})
}

// transcribeRecording persists the recording to a transient file, runs the
// pipeline, and substitutes the sentinel transcript on any failure.
func (o *Orchestrator) transcribeRecording(ctx context.Context, sessionID string, recording []byte) string {
	if path, err := spoolRecording(sessionID, recording); err != nil {
		o.log.Warn("could not spool recording", "session", sessionID, "error", err)
	} else {
		defer os.Remove(path)
	}

	start := time.Now()
	text, err := o.pipeline.Transcribe(ctx, transcribe.Recording{
		Data:       recording,
		Container:  o.container,
		SampleRate: o.sampleRate,
		Channels:   o.channels,
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	observe.RecordStageDuration(ctx, o.metrics.STTDuration, time.Since(start).Seconds(), status)

	if err != nil {
		o.log.Warn("transcription failed, using sentinel",
			"session", sessionID, "bytes", len(recording), "error", err)
		o.metrics.RecordFallback(ctx, observe.FallbackSentinelTranscript)
		return SentinelTranscript
	}
	return text
}

// nextQuestion asks the generator for the session's next question.
func (o *Orchestrator) nextQuestion(ctx context.Context, s *interview.Session) (string, bool) {
	return o.generator.Next(ctx, question.Context{
		Company:         s.Company,
		Role:            s.Role,
		RoleDescription: s.RoleDescription,
		Competencies:    s.Competencies,
		Level:           s.Level,
		Phase:           s.Phase,
		TurnIndex:       s.TurnIndex,
		MaxTurns:        s.MaxTurns,
		Summary:         s.SummarySoFar,
		Recent:          s.RecentTranscripts,
		Asked:           s.AskedQuestions,
	})
}

// spoolRecording writes the recording to a transient file and returns its
// path. The caller removes it after transcription.
func spoolRecording(sessionID string, data []byte) (string, error) {
	f, err := os.CreateTemp("", fmt.Sprintf("intervox-%s-*.rec", sessionID))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func concat(chunks [][]byte) []byte {
	var n int
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func evalStatus(mocked bool) string {
	if mocked {
		return "mock"
	}
	return "ok"
}
