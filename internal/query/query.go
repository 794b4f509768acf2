// Package query turns a course code and topic into an upstream search
// expression plus a recency cutoff.
package query

import (
	"fmt"
	"regexp"
	"time"

	"conu-community/internal/topic"
)

// DefaultWindowDays is the trailing range within which posts are considered
// fresh enough to surface.
const DefaultWindowDays = 540

// Query is a ready-to-issue search: the boolean expression and the epoch
// second cutoff below which results are discarded.
type Query struct {
	Expression string
	Since      int64
}

// topicClauses maps each category to its OR-list of search terms.
var topicClauses = map[topic.Category]string{
	topic.Difficulty: `(hard OR difficulty OR workload OR easy OR tough OR "drop rate" OR curve)`,
	topic.Instructor: `(prof OR professor OR teacher OR instructor OR "who to take" OR "best prof" OR avoid)`,
	topic.Exam:       `(final OR midterm OR exam OR test OR quiz OR format OR grading OR proctor)`,
	topic.Tips:       `(tips OR advice OR study OR assignment OR lab OR labs OR resource OR textbook OR notes)`,
}

var whitespace = regexp.MustCompile(`\s+`)

// Build constructs the query for a course and topic with a trailing window of
// windowDays days (DefaultWindowDays when non-positive).
func Build(course string, cat topic.Category, windowDays int) Query {
	return buildAt(course, cat, windowDays, time.Now())
}

func buildAt(course string, cat topic.Category, windowDays int, now time.Time) Query {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	expr := courseVariants(course)
	if clause, ok := topicClauses[cat]; ok {
		expr = expr + " AND " + clause
	}
	// An unknown topic degrades to course-variants only: a broadened search,
	// not a narrowed one.

	since := now.Add(-time.Duration(windowDays) * 24 * time.Hour).Unix()
	return Query{Expression: expr, Since: since}
}

// courseVariants exact-matches the literal code, the code with whitespace
// removed, and the code with the first space replaced by a hyphen, so that
// "COMP 248", "COMP248" and "COMP-248" posts all match.
func courseVariants(course string) string {
	compact := whitespace.ReplaceAllString(course, "")
	dashed := replaceFirstWhitespace(course, "-")
	return fmt.Sprintf(`("%s" OR %s OR "%s")`, course, compact, dashed)
}

func replaceFirstWhitespace(s, repl string) string {
	loc := whitespace.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
