package interview

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestSession(id string) *Session {
	return &Session{
		ID:       id,
		MaxTurns: 8,
		Phase:    PhaseOf(0, 8),
		State:    StateAwaitingJoin,
		Level:    LevelMid,
	}
}

func TestStore_DoMissing(t *testing.T) {
	t.Parallel()

	st := NewStore()
	err := st.Do("nope", func(*Session) error { return nil })
	if !errors.Is(err, ErrSessionMissing) {
		t.Errorf("Do on unknown id: want ErrSessionMissing, got %v", err)
	}
}

func TestStore_CreateDoRemove(t *testing.T) {
	t.Parallel()

	st := NewStore()
	st.Create(newTestSession("a"))

	err := st.Do("a", func(s *Session) error {
		s.PushQuestion("Tell me about yourself.")
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	var got string
	_ = st.Do("a", func(s *Session) error {
		got = s.CurrentQuestion
		return nil
	})
	if got != "Tell me about yourself." {
		t.Errorf("mutation not visible: got %q", got)
	}

	st.Remove("a")
	if st.Len() != 0 {
		t.Errorf("Len after Remove: want 0, got %d", st.Len())
	}
}

// TestStore_PerIDSerialization hammers one session from many goroutines;
// the per-entry lock must serialise the increments.
func TestStore_PerIDSerialization(t *testing.T) {
	t.Parallel()

	st := NewStore()
	st.Create(newTestSession("a"))

	const workers = 32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Do("a", func(s *Session) error {
				s.Scores = append(s.Scores, 3)
				return nil
			})
		}()
	}
	wg.Wait()

	var n int
	_ = st.Do("a", func(s *Session) error {
		n = len(s.Scores)
		return nil
	})
	if n != workers {
		t.Errorf("scores recorded: want %d, got %d", workers, n)
	}
}

func TestStore_Sweep(t *testing.T) {
	t.Parallel()

	st := NewStore(WithTTL(time.Minute))
	for i := range 3 {
		st.Create(newTestSession(fmt.Sprintf("s%d", i)))
	}
	_ = st.Do("s0", func(*Session) error { return nil }) // refresh s0

	if removed := st.Sweep(time.Now()); removed != 0 {
		t.Errorf("fresh sessions swept: %d", removed)
	}
	if removed := st.Sweep(time.Now().Add(2 * time.Minute)); removed != 3 {
		t.Errorf("stale sweep: want 3 removed, got %d", removed)
	}
	if st.Len() != 0 {
		t.Errorf("Len after sweep: want 0, got %d", st.Len())
	}
}

func TestStore_SweepInvokesOnEvict(t *testing.T) {
	t.Parallel()

	st := NewStore(WithTTL(time.Minute))
	st.Create(newTestSession("kept"))
	st.Create(newTestSession("dropped-1"))
	st.Create(newTestSession("dropped-2"))

	var evicted []string
	st.SetOnEvict(func(s *Session) {
		evicted = append(evicted, s.ID)
		// Calling back into the store must not deadlock.
		_ = st.Len()
	})

	// Push "kept" well past the sweep horizon.
	_ = st.Do("kept", func(s *Session) error {
		s.Touched = time.Now().Add(5 * time.Minute)
		return nil
	})
	st.Sweep(time.Now().Add(90 * time.Second))

	if len(evicted) != 2 {
		t.Fatalf("evicted callbacks: want 2, got %d (%v)", len(evicted), evicted)
	}
	for _, id := range evicted {
		if id == "kept" {
			t.Error("refreshed session must not be evicted")
		}
	}
	if st.Len() != 1 {
		t.Errorf("Len after sweep: want 1, got %d", st.Len())
	}
}

func TestSession_PushTranscript_Cap(t *testing.T) {
	t.Parallel()

	s := newTestSession("a")
	for i := 1; i <= 5; i++ {
		s.PushTranscript(fmt.Sprintf("answer %d", i))
	}
	if len(s.Transcripts) != 5 {
		t.Errorf("full history: want 5, got %d", len(s.Transcripts))
	}
	if len(s.RecentTranscripts) != RecentTranscriptCap {
		t.Fatalf("recent window: want %d, got %d", RecentTranscriptCap, len(s.RecentTranscripts))
	}
	for i, want := range []string{"answer 3", "answer 4", "answer 5"} {
		if s.RecentTranscripts[i] != want {
			t.Errorf("recent[%d]: want %q, got %q", i, want, s.RecentTranscripts[i])
		}
	}
}

func TestSession_AdvanceTurn(t *testing.T) {
	t.Parallel()

	s := newTestSession("a")
	s.MaxTurns = 2
	s.Phase = PhaseOf(0, 2)

	if done := s.AdvanceTurn(); done {
		t.Error("turn 1 of 2 should not finish the interview")
	}
	if s.Phase != PhaseWrapup {
		t.Errorf("phase after turn 1 of 2: want wrapup, got %s", s.Phase)
	}
	if done := s.AdvanceTurn(); !done {
		t.Error("turn 2 of 2 should finish the interview")
	}
	// Clamped to MaxTurns even on further calls.
	s.AdvanceTurn()
	if s.TurnIndex != 2 {
		t.Errorf("turn index clamp: want 2, got %d", s.TurnIndex)
	}
}

func TestSession_AverageScore(t *testing.T) {
	t.Parallel()

	s := newTestSession("a")
	if got := s.AverageScore(); got != 0 {
		t.Errorf("no scores: want 0, got %v", got)
	}
	s.Scores = []int{2, 3, 4}
	if got := s.AverageScore(); got != 3 {
		t.Errorf("average: want 3, got %v", got)
	}
}
