package question

import (
	"regexp"
	"strings"
	"unicode"
)

// maxQuestionRunes caps how long a sanitised question may grow. Anything
// longer is truncated at a word boundary.
const maxQuestionRunes = 240

var (
	codeFenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\n?|```")

	// labelLineRe matches lines where the model leaked one of the context
	// block's field names back at us.
	labelLineRe = regexp.MustCompile(`(?im)^\s*(company|role|level|phase|turn|competencies|summary|transcripts?|asked questions?|question \d+|context)\s*:.*$`)

	rolePlayPrefixRe = regexp.MustCompile(`(?i)^\s*(q\s*[:.)]|question\s*[:.)]|interviewer\s*[:.)])\s*`)

	// danglingFragmentRe strips trailing half-sentences the model sometimes
	// appends after the question, e.g. "for the role of" or "at the company".
	danglingFragmentRe = regexp.MustCompile(`(?i)\s+(for the role of|at the company|as a candidate for)\s*$`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Sanitize normalises a raw model reply into a single displayable question.
// It is pure and idempotent: Sanitize(Sanitize(s)) == Sanitize(s). The result
// may still be unusable; callers decide the canned fallback via [NeedsFallback].
func Sanitize(raw string) string {
	s := codeFenceRe.ReplaceAllString(raw, "")
	s = labelLineRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = rolePlayPrefixRe.ReplaceAllString(s, "")

	// Keep only the first sentence that ends in a question mark, when one
	// exists. Models occasionally return the question plus commentary.
	if idx := strings.IndexRune(s, '?'); idx >= 0 {
		s = s[:idx+1]
		// Drop any leading complete sentences before the question itself.
		if cut := lastSentenceStart(s); cut > 0 {
			s = s[cut:]
		}
	}

	s = danglingFragmentRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if runes := []rune(s); len(runes) > maxQuestionRunes {
		s = truncateAtWord(runes, maxQuestionRunes)
		// Truncation can expose a fragment the earlier strip would catch;
		// repeating it keeps Sanitize idempotent.
		s = strings.TrimSpace(danglingFragmentRe.ReplaceAllString(s, ""))
	}
	return s
}

// NeedsFallback reports whether a sanitised question is unusable and the
// caller should take a canned bank entry instead.
func NeedsFallback(sanitized string) bool {
	if len([]rune(sanitized)) < 4 {
		return true
	}
	return strings.HasPrefix(sanitized, "{")
}

// lastSentenceStart returns the byte index of the last sentence opener in s,
// so that preamble sentences can be dropped from a reply like
// "Good answer. Now, what would you change?". A '.' or '!' terminates a
// sentence only when whitespace and an uppercase letter follow, which keeps
// version numbers ("v2.0") and similar mid-sentence dots intact.
func lastSentenceStart(s string) int {
	runes := []rune(s)
	cut := 0
	for i := 0; i < len(runes)-1; i++ {
		if runes[i] != '.' && runes[i] != '!' {
			continue
		}
		j := i + 1
		if !unicode.IsSpace(runes[j]) {
			continue
		}
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j < len(runes) && unicode.IsUpper(runes[j]) {
			cut = j
		}
	}
	return len(string(runes[:cut]))
}

// truncateAtWord cuts runes to at most limit, preferring the last space so a
// word is never split mid-way.
func truncateAtWord(runes []rune, limit int) string {
	cut := limit
	for i := limit - 1; i > limit/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut]))
}
