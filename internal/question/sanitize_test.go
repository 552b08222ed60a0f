package question

import "testing"

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain question untouched",
			raw:  "What is your greatest strength?",
			want: "What is your greatest strength?",
		},
		{
			name: "code fence stripped",
			raw:  "```\nWhat does HTTP stand for?\n```",
			want: "What does HTTP stand for?",
		},
		{
			name: "role-play prefix stripped",
			raw:  "Interviewer: Why do you want this job?",
			want: "Why do you want this job?",
		},
		{
			name: "q prefix stripped",
			raw:  "Q: Tell me, what motivates you?",
			want: "Tell me, what motivates you?",
		},
		{
			name: "leaked label lines removed",
			raw:  "Company: Acme\nPhase: technical\nHow would you scale a cache?",
			want: "How would you scale a cache?",
		},
		{
			name: "commentary after question dropped",
			raw:  "What trade-offs did you weigh? That should probe their depth nicely.",
			want: "What trade-offs did you weigh?",
		},
		{
			name: "preamble sentence before question dropped",
			raw:  "Good answer. Now, what would you change in hindsight?",
			want: "Now, what would you change in hindsight?",
		},
		{
			name: "version number dot is not a sentence break",
			raw:  "Tell me about v2.0 of your project, what changed?",
			want: "Tell me about v2.0 of your project, what changed?",
		},
		{
			name: "lowercase after dot is not a sentence break",
			raw:  "Pick one service, e.g. billing, and walk me through its failure modes?",
			want: "Pick one service, e.g. billing, and walk me through its failure modes?",
		},
		{
			name: "whitespace collapsed",
			raw:  "What   is\n\nyour   approach?",
			want: "What is your approach?",
		},
		{
			name: "empty input",
			raw:  "   \n ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Sanitize(tt.raw); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"What is your greatest strength?",
		"```\nQ: Why engineering?\n```",
		"Good answer. Now, what would you change?",
		"Role: Engineer\nWhat do you build?",
		"How would you design a rate limiter for a public API, assuming you must support burst traffic and keep tail latency low across many regions and tenant tiers without sacrificing operability, and also explain which trade-offs drive the eviction and refill parameters for the role of",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestSanitize_CapsLength(t *testing.T) {
	t.Parallel()

	long := "How would you"
	for range 60 {
		long += " balance competing priorities"
	}
	long += "?"
	got := Sanitize(long)
	if n := len([]rune(got)); n > maxQuestionRunes {
		t.Errorf("length %d exceeds cap %d", n, maxQuestionRunes)
	}
	if got == "" {
		t.Error("truncation should not empty the question")
	}
}

func TestNeedsFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"ok?", true},
		{`{"question": "leaked"}`, true},
		{"Why us?", false},
		{"Tell me about a hard bug you fixed recently.", false},
	}
	for _, tt := range tests {
		if got := NeedsFallback(tt.in); got != tt.want {
			t.Errorf("NeedsFallback(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
