// Package topic classifies free-text course questions into a fixed set of
// intents and gates opinion questions away from factual/catalogue ones.
package topic

import "regexp"

// Category is one of the question intents the community pipeline understands.
type Category string

const (
	Difficulty Category = "difficulty"
	Instructor Category = "instructor"
	Exam       Category = "exam"
	Tips       Category = "tips"
)

// Parse maps a raw topic string to a Category. Unknown strings report ok=false
// so callers can fall back to Difficulty or degrade the search.
func Parse(s string) (Category, bool) {
	switch Category(s) {
	case Difficulty, Instructor, Exam, Tips:
		return Category(s), true
	}
	return Difficulty, false
}

// rule pairs a category with the patterns that select it. Rules are evaluated
// in order, first match wins; anything within a rule is OR-ed.
type rule struct {
	category Category
	patterns []*regexp.Regexp
}

// Instructor and exam phrasing is more specific than generic difficulty
// language, so those rules run first. The bare prof/teacher/instructor
// mention is intentionally broad.
var rules = []rule{
	{
		category: Instructor,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(best|good|great|avoid)\b.*\b(prof\w*|teacher|instructor)\b`),
			regexp.MustCompile(`(?i)\b(prof\w*|teacher|instructor)\b.*\b(best|good|great|avoid)\b`),
			regexp.MustCompile(`(?i)\bwho\s*(to|should)\s*take\b`),
			regexp.MustCompile(`(?i)\b(prof\w*|teacher|instructor)s?\b`),
		},
	},
	{
		category: Exam,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(final|midterm|exam|test|quiz|format|curve|grading)\b`),
		},
	},
	{
		category: Tips,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(tips?|advice|study|assignments?|labs?|resources?|textbook|notes)\b`),
		},
	},
}

// Classify infers the intent of a question. It is total: every input maps to
// exactly one category, defaulting to Difficulty when nothing matches.
func Classify(question string) Category {
	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(question) {
				return r.category
			}
		}
	}
	return Difficulty
}

// factualPattern lists catalogue-lookup terms. A question containing any of
// them is answerable from the course index, not from community opinion, so it
// must never reach the community pipeline. Factual terms win over opinion
// terms when both are present.
var factualPattern = regexp.MustCompile(
	`(?i)\b(credits?|cr|pre[-\s]?reqs?|prerequisites?|requirements?|equiv(alent)?s?|terms?|semesters?|offered|sessions?|location|campus|title)\b`,
)

// IsFactual reports whether the question asks for catalogue facts.
func IsFactual(question string) bool {
	return factualPattern.MatchString(question)
}
