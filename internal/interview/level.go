package interview

import "strings"

// Level is the candidate seniority band used to pick question difficulty.
type Level string

const (
	LevelIntern Level = "intern"
	LevelJunior Level = "junior"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
	LevelLead   Level = "lead"
)

// IsValid reports whether l is a recognised level.
func (l Level) IsValid() bool {
	switch l {
	case LevelIntern, LevelJunior, LevelMid, LevelSenior, LevelLead:
		return true
	}
	return false
}

// levelRank orders levels from intern to lead for comparisons.
var levelRank = map[Level]int{
	LevelIntern: 0,
	LevelJunior: 1,
	LevelMid:    2,
	LevelSenior: 3,
	LevelLead:   4,
}

// AtLeast reports whether l is at or above the given level. Unknown levels
// rank as mid.
func (l Level) AtLeast(min Level) bool {
	rank := func(x Level) int {
		if r, ok := levelRank[x]; ok {
			return r
		}
		return levelRank[LevelMid]
	}
	return rank(l) >= rank(min)
}

// levelKeywords maps role-title fragments to levels, checked in order so
// that "senior" wins over an incidental "engineer ii" style fallback.
var levelKeywords = []struct {
	keyword string
	level   Level
}{
	{"intern", LevelIntern},
	{"trainee", LevelIntern},
	{"lead", LevelLead},
	{"principal", LevelLead},
	{"head of", LevelLead},
	{"architect", LevelLead},
	{"senior", LevelSenior},
	{"staff", LevelSenior},
	{"sr.", LevelSenior},
	{"junior", LevelJunior},
	{"jr.", LevelJunior},
	{"entry", LevelJunior},
	{"graduate", LevelJunior},
}

// InferLevel derives a seniority level from free-text role wording.
// Unknown or empty roles default to mid.
func InferLevel(role string) Level {
	r := strings.ToLower(role)
	for _, kw := range levelKeywords {
		if strings.Contains(r, kw.keyword) {
			return kw.level
		}
	}
	return LevelMid
}
