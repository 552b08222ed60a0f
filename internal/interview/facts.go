package interview

import (
	"regexp"
	"strings"
)

// Fact extraction is deliberately regex/keyword based: it runs on every
// answer and must stay deterministic and free, so no model call.

const (
	maxProjectClauses = 2
	maxSkills         = 8
	maxClauseLen      = 120
)

var (
	nameRe = regexp.MustCompile(`(?i)\bmy name is ([A-Z][a-zA-Z'\-]+(?: [A-Z][a-zA-Z'\-]+)?)`)
	altNameRe = regexp.MustCompile(`(?i)\bI(?:'m| am) ([A-Z][a-zA-Z'\-]+(?: [A-Z][a-zA-Z'\-]+)?)\b(?:,| and| from| at|\.|$)`)

	// Case-sensitive on purpose: the proper-noun chain anchors the match,
	// otherwise any capitalised sentence prefix would be swallowed.
	institutionRe = regexp.MustCompile(`\b((?:[A-Z][a-zA-Z'\-]+ ){0,3}(?:University|College|Institute|Polytechnic|School)(?: of [A-Z][a-zA-Z'\-]+)?)`)

	degreeRe = regexp.MustCompile(`(?i)\b(bachelor(?:'s)?(?: of [a-z ]+)?|master(?:'s)?(?: of [a-z ]+)?|ph\.?d\.?|doctorate|b\.?sc\.?|m\.?sc\.?|b\.?a\.?|m\.?b\.?a\.?|b\.?eng\.?|m\.?eng\.?)`)

	projectWordRe = regexp.MustCompile(`(?i)\b(project|built|developed|implemented|created|designed|shipped)\b`)

	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
)

// skillVocabulary is the fixed set of recognised skill keywords, matched
// case-insensitively on word boundaries.
var skillVocabulary = []string{
	"go", "golang", "python", "java", "javascript", "typescript", "c++", "c#",
	"rust", "kotlin", "swift", "ruby", "php", "scala",
	"react", "angular", "vue", "node", "django", "spring",
	"docker", "kubernetes", "terraform", "aws", "gcp", "azure",
	"sql", "postgres", "postgresql", "mysql", "mongodb", "redis",
	"kafka", "rabbitmq", "grpc", "graphql", "rest",
	"linux", "git", "jenkins", "ci/cd",
	"tensorflow", "pytorch", "machine learning", "microservices",
}

// ExtractFacts derives a compact one-line summary from a single transcript:
// at most one name, one institution, one degree, two project clauses, and
// up to eight recognised skills, semicolon-joined. Returns "" when nothing
// matched.
func ExtractFacts(transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		return ""
	}

	var parts []string

	if m := nameRe.FindStringSubmatch(transcript); m != nil {
		parts = append(parts, "Name: "+m[1])
	} else if m := altNameRe.FindStringSubmatch(transcript); m != nil {
		parts = append(parts, "Name: "+m[1])
	}

	if m := institutionRe.FindStringSubmatch(transcript); m != nil {
		inst := strings.TrimSpace(m[1])
		// A bare keyword without a proper-noun qualifier is noise.
		if len(strings.Fields(inst)) > 1 {
			parts = append(parts, "Studied at: "+inst)
		}
	}

	if m := degreeRe.FindStringSubmatch(transcript); m != nil {
		parts = append(parts, "Degree: "+strings.TrimSpace(m[1]))
	}

	for _, clause := range projectClauses(transcript) {
		parts = append(parts, "Project: "+clause)
	}

	if skills := matchSkills(transcript); len(skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(skills, ", "))
	}

	return strings.Join(parts, "; ")
}

// projectClauses returns up to maxProjectClauses sentences that mention
// project work, each trimmed to maxClauseLen runes.
func projectClauses(transcript string) []string {
	var clauses []string
	for _, sentence := range sentenceSplitRe.Split(transcript, -1) {
		s := strings.TrimSpace(sentence)
		if s == "" || !projectWordRe.MatchString(s) {
			continue
		}
		if r := []rune(s); len(r) > maxClauseLen {
			s = string(r[:maxClauseLen])
		}
		clauses = append(clauses, s)
		if len(clauses) == maxProjectClauses {
			break
		}
	}
	return clauses
}

// matchSkills returns the deduplicated vocabulary skills present in the
// transcript, in vocabulary order, capped at maxSkills.
func matchSkills(transcript string) []string {
	lower := strings.ToLower(transcript)
	seen := make(map[string]bool)
	var skills []string
	for _, skill := range skillVocabulary {
		if len(skills) == maxSkills {
			break
		}
		if seen[canonicalSkill(skill)] {
			continue
		}
		if containsWord(lower, skill) {
			seen[canonicalSkill(skill)] = true
			skills = append(skills, skill)
		}
	}
	return skills
}

// canonicalSkill folds aliases ("golang"→"go", "postgresql"→"postgres") so
// a transcript mentioning both forms yields one entry.
func canonicalSkill(skill string) string {
	switch skill {
	case "golang":
		return "go"
	case "postgresql":
		return "postgres"
	}
	return skill
}

// containsWord reports whether lower contains skill bounded by non-word
// characters. Skills with punctuation ("c++", "ci/cd") match on substring
// boundaries that regexp word classes would mangle.
func containsWord(lower, skill string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], skill)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(skill)
		beforeOK := start == 0 || !isWordChar(lower[start-1])
		afterOK := end == len(lower) || !isWordChar(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// AppendCapped appends line to summary and right-truncates the result to at
// most cap runes, keeping the most recent content. An empty line leaves
// summary unchanged.
func AppendCapped(summary, line string, capRunes int) string {
	if line == "" {
		return summary
	}
	combined := line
	if summary != "" {
		combined = summary + "\n" + line
	}
	r := []rune(combined)
	if capRunes > 0 && len(r) > capRunes {
		combined = string(r[len(r)-capRunes:])
	}
	return combined
}
