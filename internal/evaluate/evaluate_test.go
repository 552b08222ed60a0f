package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/intervox/pkg/provider/llm"
	llmmock "github.com/MrWong99/intervox/pkg/provider/llm/mock"
)

func TestEvaluate_ParsesStrictJSON(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		Response: &llm.CompletionResponse{Content: `{"score": 4, "pass": true, "feedback": "Good depth."}`},
	}
	e := New(mock)

	ev, mocked := e.Evaluate(context.Background(), "Why Go?", "Because of its concurrency story.")
	if mocked {
		t.Error("valid verdict should not be flagged mock")
	}
	if ev.Score != 4 || !ev.Pass || ev.Feedback != "Good depth." {
		t.Errorf("verdict: %+v", ev)
	}
}

func TestEvaluate_ToleratesLeadingProse(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		Response: &llm.CompletionResponse{Content: "Here is my grade:\n{\"score\": 2, \"pass\": false, \"feedback\": \"Thin.\"}"},
	}
	e := New(mock)

	ev, mocked := e.Evaluate(context.Background(), "q", "a")
	if mocked {
		t.Error("prose-prefixed verdict should still parse")
	}
	if ev.Score != 2 || ev.Pass {
		t.Errorf("verdict: %+v", ev)
	}
}

func TestEvaluate_PassFollowsScore(t *testing.T) {
	t.Parallel()

	// Model claims pass=true with a failing score. The score wins.
	mock := &llmmock.Provider{
		Response: &llm.CompletionResponse{Content: `{"score": 2, "pass": true, "feedback": "x"}`},
	}
	e := New(mock)

	ev, _ := e.Evaluate(context.Background(), "q", "a")
	if ev.Pass {
		t.Errorf("pass must be score >= 3, got %+v", ev)
	}
}

func TestEvaluate_MockOnCallFailure(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{Err: errors.New("upstream down")}
	e := New(mock, WithJitter(func() float64 { return 0 }))

	ev, mocked := e.Evaluate(context.Background(), "q", strings.Repeat("a", 800))
	if !mocked {
		t.Error("call failure should take the mock path")
	}
	// 2 + 3*1 + 0 = 5
	if ev.Score != 5 || !ev.Pass {
		t.Errorf("mock grade for long answer: %+v", ev)
	}
}

func TestEvaluate_MockOnGarbageReply(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "no json here", `{"score": 9, "pass": true}`, "{broken"} {
		mock := &llmmock.Provider{
			Response: &llm.CompletionResponse{Content: raw},
		}
		e := New(mock)
		if _, mocked := e.Evaluate(context.Background(), "q", "a"); !mocked {
			t.Errorf("reply %q should take the mock path", raw)
		}
	}
}

func TestMockGrade_Bounds(t *testing.T) {
	t.Parallel()

	e := New(nil)
	transcripts := []string{"", "short", strings.Repeat("x", 400), strings.Repeat("x", 2000)}
	for _, tr := range transcripts {
		for range 50 {
			ev, mocked := e.Evaluate(context.Background(), "q", tr)
			if !mocked {
				t.Fatal("nil provider must always take the mock path")
			}
			if ev.Score < 1 || ev.Score > 5 {
				t.Fatalf("score %d out of range for len %d", ev.Score, len(tr))
			}
			if ev.Pass != (ev.Score >= 3) {
				t.Fatalf("pass/score mismatch: %+v", ev)
			}
			if ev.Feedback != passFeedback && ev.Feedback != failFeedback {
				t.Fatalf("unexpected feedback %q", ev.Feedback)
			}
		}
	}
}

func TestMockGrade_LengthDeterminesScore(t *testing.T) {
	t.Parallel()

	e := New(nil, WithJitter(func() float64 { return 0.5 }))
	short, _ := e.Evaluate(context.Background(), "q", "hi")
	long, _ := e.Evaluate(context.Background(), "q", strings.Repeat("detail ", 200))
	if short.Score >= long.Score {
		t.Errorf("longer answers should not score lower: short %d, long %d", short.Score, long.Score)
	}
}
