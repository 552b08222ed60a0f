package question

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/pkoukk/tiktoken-go"

	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/pkg/provider/llm"
)

// repeatThreshold is the JaroWinkler similarity above which a generated
// question counts as a near-verbatim repeat of an earlier one.
const repeatThreshold = 0.93

// promptTokenBudget bounds the context block sent to the model. Transcript
// context is trimmed oldest-first until the prompt fits.
const promptTokenBudget = 2000

const systemPrompt = `You are a professional interviewer conducting a spoken job interview.
Rules:
- Ask exactly ONE question per reply, nothing else.
- The question must fit the current interview phase and build on the candidate's prior answers.
- Keep it under 25 words unless the phase demands depth.
- Never add meta-commentary, labels, or role-play prefixes.
- Never repeat or closely rephrase a question that was already asked.`

// Context carries everything the generator needs to produce the next
// question for one session. Callers append the returned question to the
// session's asked list themselves.
type Context struct {
	Company         string
	Role            string
	RoleDescription string
	Competencies    string
	Level           interview.Level
	Phase           interview.Phase
	TurnIndex       int
	MaxTurns        int
	Summary         string
	Recent          []string
	Asked           []string
}

// Generator produces interview questions from the configured language model,
// falling back to the canned bank whenever the model is unavailable, returns
// garbage, or repeats itself.
type Generator struct {
	provider llm.Provider
	timeout  time.Duration
	enc      *tiktoken.Tiktoken
	log      *slog.Logger
}

// GeneratorOption customises a [Generator].
type GeneratorOption func(*Generator)

// WithTimeout bounds each model call. Default is 30 seconds.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// WithLogger sets the logger. Default is slog.Default.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.log = l }
}

// NewGenerator creates a question generator on top of p. A nil provider is
// allowed: every call then serves from the canned bank.
func NewGenerator(p llm.Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider: p,
		timeout:  30 * time.Second,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	// cl100k_base ships with the library, so this only fails on a broken
	// build; token trimming is then skipped.
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		g.enc = enc
	}
	return g
}

// Next returns the next question for the session described by ic. The second
// return reports whether the canned bank served it.
func (g *Generator) Next(ctx context.Context, ic Context) (string, bool) {
	if g.provider == nil {
		return Canned(ic.Phase, ic.Level, ic.Asked), true
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: g.buildPrompt(ic)},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil || resp == nil {
		g.log.Warn("question generation failed, using canned bank", "phase", ic.Phase, "error", err)
		return Canned(ic.Phase, ic.Level, ic.Asked), true
	}

	q := Sanitize(resp.Content)
	if NeedsFallback(q) {
		g.log.Warn("model reply unusable after sanitising, using canned bank", "phase", ic.Phase)
		return Canned(ic.Phase, ic.Level, ic.Asked), true
	}
	if isRepeat(q, ic.Asked) {
		g.log.Warn("model repeated an earlier question, using canned bank", "phase", ic.Phase)
		return Canned(ic.Phase, ic.Level, ic.Asked), true
	}
	return q, false
}

// buildPrompt assembles the structured context block. Recent transcripts are
// trimmed oldest-first when the block would exceed the token budget.
func (g *Generator) buildPrompt(ic Context) string {
	recent := ic.Recent
	for {
		prompt := renderPrompt(ic, recent)
		if g.enc == nil || len(recent) == 0 {
			return prompt
		}
		if len(g.enc.Encode(prompt, nil, nil)) <= promptTokenBudget {
			return prompt
		}
		recent = recent[1:]
	}
}

func renderPrompt(ic Context, recent []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", orUnspecified(ic.Company))
	fmt.Fprintf(&b, "Role: %s\n", orUnspecified(ic.Role))
	fmt.Fprintf(&b, "Level: %s\n", ic.Level)
	if ic.RoleDescription != "" {
		fmt.Fprintf(&b, "Role description: %s\n", ic.RoleDescription)
	}
	if ic.Competencies != "" {
		fmt.Fprintf(&b, "Competencies to probe: %s\n", ic.Competencies)
	}
	fmt.Fprintf(&b, "Interview phase: %s (turn %d of %d)\n", ic.Phase, ic.TurnIndex+1, ic.MaxTurns)
	if ic.Summary != "" {
		fmt.Fprintf(&b, "\nFacts gathered so far:\n%s\n", ic.Summary)
	}
	if len(recent) > 0 {
		b.WriteString("\nMost recent answers (oldest first):\n")
		for i, t := range recent {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t)
		}
	}
	if len(ic.Asked) > 0 {
		b.WriteString("\nAlready asked (never repeat any of these):\n")
		for _, q := range ic.Asked {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	b.WriteString("\nAsk the next interview question.")
	return b.String()
}

func orUnspecified(s string) string {
	if s == "" {
		return "(unspecified)"
	}
	return s
}

// isRepeat reports whether q is a verbatim or near-verbatim repeat of any
// previously asked question.
func isRepeat(q string, asked []string) bool {
	qNorm := strings.ToLower(strings.TrimSpace(q))
	for _, prev := range asked {
		pNorm := strings.ToLower(strings.TrimSpace(prev))
		if qNorm == pNorm {
			return true
		}
		if matchr.JaroWinkler(qNorm, pNorm, false) >= repeatThreshold {
			return true
		}
	}
	return false
}
