package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/intervox/internal/evaluate"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/question"
	"github.com/MrWong99/intervox/internal/transcribe"
	sttmock "github.com/MrWong99/intervox/pkg/provider/stt/mock"
)

// recordingNotifier captures every pushed event for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []pushedEvent
}

type pushedEvent struct {
	sessionID string
	event     string
	payload   any
}

func (n *recordingNotifier) Notify(sessionID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, pushedEvent{sessionID, event, payload})
}

func (n *recordingNotifier) byEvent(event string) []pushedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []pushedEvent
	for _, e := range n.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T, stt *sttmock.Provider, opts ...Option) (*Orchestrator, *recordingNotifier) {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	notifier := &recordingNotifier{}
	base := []Option{
		WithNotifier(notifier),
		WithMetrics(metrics),
		WithGrace(300 * time.Millisecond),
		WithRecordingFormat(transcribe.ContainerPCM16, 16000, 1),
	}
	o := New(
		interview.NewStore(),
		transcribe.NewRemote(stt),
		question.NewGenerator(nil), // canned bank only
		evaluate.New(nil),          // mock grades only
		append(base, opts...)...,
	)
	return o, notifier
}

func TestCreate_IssuesFirstQuestion(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, &sttmock.Provider{Text: "x"})
	created, err := o.Create(context.Background(), Params{Role: "Senior Engineer"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("session id missing")
	}
	if created.Question == "" {
		t.Error("first question missing")
	}
	if created.Phase != interview.PhaseIntro {
		t.Errorf("first phase: want intro, got %s", created.Phase)
	}
}

func TestJoin_KnownAndUnknown(t *testing.T) {
	t.Parallel()

	o, notifier := newTestOrchestrator(t, &sttmock.Provider{Text: "x"})
	created, _ := o.Create(context.Background(), Params{})

	o.Join(created.ID)
	qs := notifier.byEvent(EventQuestion)
	if len(qs) != 1 {
		t.Fatalf("question events: want 1, got %d", len(qs))
	}
	if qs[0].payload.(QuestionPayload).Question != created.Question {
		t.Error("join must re-see the current question")
	}

	o.Join("no-such-session")
	if len(notifier.byEvent(EventSessionMissing)) != 1 {
		t.Error("unknown id must produce session-missing")
	}
}

func TestEndAnswer_FullTurn(t *testing.T) {
	t.Parallel()

	stt := &sttmock.Provider{Text: "My name is Ada Lovelace and I built a compiler project using go and postgres."}
	o, notifier := newTestOrchestrator(t, stt)
	created, _ := o.Create(context.Background(), Params{MaxTurns: 3})

	o.AudioChunk(created.ID, []byte{1, 2})
	o.AudioChunk(created.ID, []byte{3, 4})
	o.EndAnswer(context.Background(), created.ID)

	evs := notifier.byEvent(EventEvaluation)
	if len(evs) != 1 {
		t.Fatalf("evaluation events: want 1, got %d", len(evs))
	}
	payload := evs[0].payload.(EvaluationPayload)
	if payload.Transcript != stt.Text {
		t.Errorf("transcript: got %q", payload.Transcript)
	}
	if payload.NextQuestion == nil || *payload.NextQuestion == "" {
		t.Error("non-terminal turn must carry the next question")
	}
	if *payload.NextQuestion == created.Question {
		t.Error("next question repeats the first")
	}
	if payload.Evaluation.Score < 1 || payload.Evaluation.Score > 5 {
		t.Errorf("score out of range: %+v", payload.Evaluation)
	}

	// Recording delivered as one concatenated buffer.
	if stt.CallCount() != 1 {
		t.Fatalf("transcriptions: want 1, got %d", stt.CallCount())
	}
	if got := stt.Calls[0].Audio; string(got) != "\x01\x02\x03\x04" {
		t.Errorf("concatenated recording: got % x", got)
	}

	// Session state advanced.
	var s interview.Session
	if err := o.store.Do(created.ID, func(in *interview.Session) error {
		s = *in
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if s.TurnIndex != 1 {
		t.Errorf("turn index: want 1, got %d", s.TurnIndex)
	}
	if len(s.Chunks) != 0 {
		t.Error("chunks must be cleared after the turn")
	}
	if len(s.AskedQuestions) != 2 {
		t.Errorf("asked questions: want 2, got %d", len(s.AskedQuestions))
	}
	if s.SummarySoFar == "" {
		t.Error("fact summary should have grown from the transcript")
	}
	if s.State != interview.StateQuestionIssued {
		t.Errorf("state: want question-issued, got %s", s.State)
	}
}

func TestEndAnswer_CompletesSingleTurnInterview(t *testing.T) {
	t.Parallel()

	o, notifier := newTestOrchestrator(t, &sttmock.Provider{Text: "short answer"})
	created, _ := o.Create(context.Background(), Params{MaxTurns: 1})

	o.AudioChunk(created.ID, []byte{1, 2})
	o.EndAnswer(context.Background(), created.ID)

	evs := notifier.byEvent(EventEvaluation)
	if len(evs) != 1 {
		t.Fatalf("evaluation events: want 1, got %d", len(evs))
	}
	if evs[0].payload.(EvaluationPayload).NextQuestion != nil {
		t.Error("terminal evaluation must carry a null next question")
	}

	ended := notifier.byEvent(EventInterviewEnded)
	if len(ended) != 1 {
		t.Fatalf("interview-ended events: want 1, got %d", len(ended))
	}
	final := ended[0].payload.(EndedPayload)
	if final.AverageScore < 1 || final.AverageScore > 5 {
		t.Errorf("average score out of range: %v", final.AverageScore)
	}

	// Terminal state is absorbing.
	o.EndAnswer(context.Background(), created.ID)
	if len(notifier.byEvent(EventEvaluation)) != 1 {
		t.Error("completed session must not grade again")
	}

	// A late join still re-sees the last question.
	o.Join(created.ID)
	if len(notifier.byEvent(EventQuestion)) != 1 {
		t.Error("late join to a completed session should still see the question")
	}
}

func TestEndAnswer_SentinelOnEmptyRecording(t *testing.T) {
	t.Parallel()

	o, notifier := newTestOrchestrator(t, &sttmock.Provider{Text: "never"})
	created, _ := o.Create(context.Background(), Params{MaxTurns: 2})

	// End the answer without ever sending audio.
	o.EndAnswer(context.Background(), created.ID)

	evs := notifier.byEvent(EventEvaluation)
	if len(evs) != 1 {
		t.Fatalf("evaluation events: want 1, got %d", len(evs))
	}
	if got := evs[0].payload.(EvaluationPayload).Transcript; got != SentinelTranscript {
		t.Errorf("transcript: want sentinel, got %q", got)
	}
}

func TestAudioChunk_RejectedOutsideCapture(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, &sttmock.Provider{Text: "x"})
	created, _ := o.Create(context.Background(), Params{MaxTurns: 1})

	o.AudioChunk(created.ID, []byte{1})
	o.EndAnswer(context.Background(), created.ID) // completes the interview

	// Session is completed; chunks must be dropped, not buffered.
	o.AudioChunk(created.ID, []byte{9})
	if err := o.store.Do(created.ID, func(s *interview.Session) error {
		if len(s.Chunks) != 0 {
			t.Errorf("chunk buffered in state %s", s.State)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}

// TestSweep_SettlesActiveSessionsGauge covers the abandoned-interview case:
// a session evicted before completion must still decrement the gauge, and a
// completed one must not be decremented twice.
func TestSweep_SettlesActiveSessionsGauge(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	store := interview.NewStore(interview.WithTTL(time.Minute))
	o := New(
		store,
		transcribe.NewRemote(&sttmock.Provider{Text: "an answer"}),
		question.NewGenerator(nil),
		evaluate.New(nil),
		WithNotifier(&recordingNotifier{}),
		WithMetrics(metrics),
		WithGrace(300*time.Millisecond),
		WithRecordingFormat(transcribe.ContainerPCM16, 16000, 1),
	)

	// One interview runs to completion, one is abandoned mid-capture.
	finished, _ := o.Create(context.Background(), Params{MaxTurns: 1})
	o.AudioChunk(finished.ID, []byte{1, 2})
	o.EndAnswer(context.Background(), finished.ID)
	_, _ = o.Create(context.Background(), Params{MaxTurns: 3})

	if got := activeSessions(t, reader); got != 1 {
		t.Fatalf("gauge before sweep: want 1, got %d", got)
	}

	if removed := store.Sweep(time.Now().Add(2 * time.Minute)); removed != 2 {
		t.Fatalf("sweep: want 2 removed, got %d", removed)
	}
	if got := activeSessions(t, reader); got != 0 {
		t.Errorf("gauge after sweep: want 0, got %d", got)
	}
}

// activeSessions reads the current value of the active-sessions gauge.
func activeSessions(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "intervox.active_sessions" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("active_sessions: unexpected data type %T", met.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestAudioChunk_UnknownSession(t *testing.T) {
	t.Parallel()

	o, notifier := newTestOrchestrator(t, &sttmock.Provider{Text: "x"})
	o.AudioChunk("ghost", []byte{1})
	if len(notifier.byEvent(EventSessionMissing)) != 1 {
		t.Error("unknown session must produce session-missing")
	}
}
