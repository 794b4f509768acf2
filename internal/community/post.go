// Package community holds the domain model for posts fetched from the
// discussion platform and the aggregator that fans a search out across
// configured communities.
package community

import "time"

// Post is a single community post. Immutable once fetched; identity is
// (Community, ID). JSON field names mirror the public API payload.
type Post struct {
	ID           string `json:"id"`
	Community    string `json:"subreddit"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Score        int    `json:"score"`
	CommentCount int    `json:"num_comments"`
	CreatedUTC   int64  `json:"created_utc"`
	CreatedISO   string `json:"created_iso"`
}

// CreatedAt returns the post creation time.
func (p Post) CreatedAt() time.Time {
	return time.Unix(p.CreatedUTC, 0).UTC()
}

// Request describes one bounded aggregation across a set of communities.
// Constructed fresh per question; never persisted.
type Request struct {
	Communities []string
	Expression  string
	Since       int64 // epoch seconds; posts older than this are dropped
	Limit       int
}
