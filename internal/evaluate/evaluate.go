// Package evaluate grades candidate answers. The configured language model
// returns a strict JSON verdict; any failure along that path falls back to a
// deterministic length-based mock score so an interview never stalls waiting
// for a grade.
package evaluate

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/MrWong99/intervox/pkg/provider/llm"
)

// Evaluation is the grade for one answered question.
type Evaluation struct {
	// Score is the 1-5 quality rating (model replies of 0 are clamped up).
	Score int `json:"score"`

	// Pass reports whether the answer meets the bar, always Score >= 3.
	Pass bool `json:"pass"`

	// Feedback is a short human-readable justification.
	Feedback string `json:"feedback"`
}

const (
	passFeedback = "Solid answer with relevant detail. Keep building on concrete examples."
	failFeedback = "The answer lacked depth. Try to give specific examples and explain your reasoning."
)

const gradingSystemPrompt = `You are grading one answer from a spoken job interview.
Reply with ONLY a JSON object: {"score": <integer 0-5>, "pass": <boolean>, "feedback": "<one short sentence>"}.
No prose before or after the JSON.`

// Evaluator grades transcripts against the question that prompted them.
type Evaluator struct {
	provider llm.Provider
	timeout  time.Duration
	log      *slog.Logger

	// jitter overrides the mock path's random component in tests. Must
	// return a value in [0, 1).
	jitter func() float64
}

// Option customises an [Evaluator].
type Option func(*Evaluator)

// WithTimeout bounds each model call. Default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) { e.timeout = d }
}

// WithLogger sets the logger. Default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.log = l }
}

// WithJitter fixes the mock path's random component. Test use only.
func WithJitter(fn func() float64) Option {
	return func(e *Evaluator) { e.jitter = fn }
}

// New creates an evaluator on top of p. A nil provider is allowed: every
// call then grades via the deterministic mock path.
func New(p llm.Provider, opts ...Option) *Evaluator {
	e := &Evaluator{
		provider: p,
		timeout:  30 * time.Second,
		log:      slog.Default(),
		jitter:   rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate grades transcript as the answer to question. The second return
// reports whether the mock path produced the grade. Evaluate never fails;
// every error is absorbed into the mock grade.
func (e *Evaluator) Evaluate(ctx context.Context, question, transcript string) (Evaluation, bool) {
	if e.provider == nil {
		return e.mockGrade(transcript), true
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.provider.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: gradingSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildGradingPrompt(question, transcript)},
		},
		MaxTokens: 150,
	})
	if err != nil || resp == nil {
		e.log.Warn("evaluation call failed, using mock grade", "error", err)
		return e.mockGrade(transcript), true
	}

	ev, err := parseVerdict(resp.Content)
	if err != nil {
		e.log.Warn("evaluation reply unparseable, using mock grade", "error", err)
		return e.mockGrade(transcript), true
	}
	return ev, false
}

func buildGradingPrompt(question, transcript string) string {
	var b strings.Builder
	b.WriteString("Question asked:\n")
	b.WriteString(question)
	b.WriteString("\n\nCandidate's answer (transcribed speech):\n")
	b.WriteString(transcript)
	return b.String()
}

// parseVerdict extracts the JSON verdict from raw, tolerating leading prose
// by parsing from the first brace. Anything else fails closed.
func parseVerdict(raw string) (Evaluation, error) {
	idx := strings.IndexByte(raw, '{')
	if idx < 0 {
		return Evaluation{}, errNoJSON
	}
	var ev Evaluation
	dec := json.NewDecoder(strings.NewReader(raw[idx:]))
	if err := dec.Decode(&ev); err != nil {
		return Evaluation{}, err
	}
	if ev.Score < 0 || ev.Score > 5 {
		return Evaluation{}, errScoreRange
	}
	if ev.Score == 0 {
		ev.Score = 1
	}
	ev.Pass = ev.Score >= 3
	if ev.Feedback == "" {
		ev.Feedback = feedbackFor(ev.Pass)
	}
	return ev, nil
}

var (
	errNoJSON     = jsonError("no JSON object in reply")
	errScoreRange = jsonError("score outside 0-5")
)

type jsonError string

func (e jsonError) Error() string { return string(e) }

// mockGrade is the deterministic fallback: longer answers score better, with
// a jitter so consecutive grades are not identical.
func (e *Evaluator) mockGrade(transcript string) Evaluation {
	length := float64(len(transcript))
	raw := 2 + 3*math.Min(1, length/800) + e.jitter()
	score := int(math.Round(raw))
	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	pass := score >= 3
	return Evaluation{
		Score:    score,
		Pass:     pass,
		Feedback: feedbackFor(pass),
	}
}

func feedbackFor(pass bool) string {
	if pass {
		return passFeedback
	}
	return failFeedback
}
