package answer

import (
	"fmt"
	"strings"
	"time"

	"conu-community/internal/community"
	"conu-community/internal/topic"
)

// maxSources caps how many posts are cited in the rendered answer.
const maxSources = 5

// disclaimer closes every rendered answer. Community content is opinion,
// not official guidance.
const disclaimer = "Note: Community feedback from Reddit (opinions/experiences, not official)."

// Source is one cited post, mirrored as structured data alongside the
// rendered bullet line.
type Source struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	When      string `json:"when"`
	Community string `json:"subreddit"`
	Score     int    `json:"score"`
}

// Result is the synthesized answer for one question.
type Result struct {
	Answer  string         `json:"answer"`
	Sources []Source       `json:"sources"`
	Topic   topic.Category `json:"topic"`
	Count   int            `json:"count"`
}

var headers = map[topic.Category]string{
	topic.Difficulty: "Here’s what students recently said about **%s** (difficulty/workload):",
	topic.Instructor: "Instructor chatter for **%s** (who to take/avoid):",
	topic.Exam:       "Exam-related posts for **%s**:",
	topic.Tips:       "Tips & resources mentioned for **%s**:",
}

// Summarize renders posts into a topic-keyed header, up to five bullet
// lines and the disclaimer. Sources mirror the same top slice.
func Summarize(posts []community.Post, course string, cat topic.Category, now time.Time) Result {
	header, ok := headers[cat]
	if !ok {
		header = "Community posts for **%s**:"
	}

	top := posts
	if len(top) > maxSources {
		top = top[:maxSources]
	}

	lines := []string{fmt.Sprintf(header, course)}
	sources := make([]Source, 0, len(top))
	for _, p := range top {
		when := RelativeAge(p.CreatedUTC, now)
		lines = append(lines, fmt.Sprintf("• %s — %s (%s) — %s", p.Title, when, p.Community, p.URL))
		sources = append(sources, Source{
			Title:     p.Title,
			URL:       p.URL,
			When:      when,
			Community: p.Community,
			Score:     p.Score,
		})
	}
	lines = append(lines, "", disclaimer)

	return Result{
		Answer:  strings.Join(lines, "\n"),
		Sources: sources,
		Topic:   cat,
		Count:   len(posts),
	}
}
