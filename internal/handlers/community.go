// Package handlers exposes the community pipeline over the service's small
// HTTP contract.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"conu-community/internal/answer"
	"conu-community/internal/community"
	"conu-community/internal/topic"
	"conu-community/pkg/logging/logging"
)

// Note accompanies every community payload: these are opinions, not
// official guidance.
const Note = "Community results from Reddit. These reflect opinions/experiences, not official university guidance."

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
	defaultAnswerLimit = 8
	maxAnswerLimit     = 20
)

// CommunityHandler serves /api/reddit/search and /api/reddit/answer.
type CommunityHandler struct {
	Service *answer.Service
}

func NewCommunityHandler(svc *answer.Service) *CommunityHandler {
	return &CommunityHandler{Service: svc}
}

// courseRE matches course codes like "COMP 248", "comp248" or "SOEN-287"
// inside free text.
var courseRE = regexp.MustCompile(`\b([A-Za-z]{3,4})\s*-?\s*(\d{3})\b`)

// extractCourse pulls a normalized course code out of free text, or "".
func extractCourse(text string) string {
	m := courseRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1]) + " " + m[2]
}

type searchQueryEcho struct {
	Course     string         `json:"course"`
	Topic      topic.Category `json:"topic"`
	WindowDays int            `json:"windowDays"`
	Limit      int            `json:"limit"`
	Subreddits []string       `json:"subreddits"`
}

type searchResponse struct {
	Query searchQueryEcho  `json:"query"`
	Count int              `json:"count"`
	Posts []community.Post `json:"posts"`
	Note  string           `json:"note"`
}

// Search handles GET /api/reddit/search.
func (h *CommunityHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	course := strings.TrimSpace(r.URL.Query().Get("course"))
	if course == "" {
		writeError(w, http.StatusBadRequest, "Missing course", "")
		return
	}

	cat, known := topic.Parse(strings.TrimSpace(r.URL.Query().Get("topic")))
	if !known {
		cat = topic.Difficulty
	}
	windowDays := queryInt(r, "windowDays", 540, 0)
	limit := queryInt(r, "limit", defaultSearchLimit, maxSearchLimit)

	posts, err := h.Service.Search(ctx, course, cat, windowDays, limit)
	if err != nil {
		writeUpstreamError(w, logger, err)
		return
	}
	if posts == nil {
		posts = []community.Post{}
	}

	subreddits := make([]string, 0, len(h.Service.Communities()))
	for _, s := range h.Service.Communities() {
		subreddits = append(subreddits, "r/"+s)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query: searchQueryEcho{
			Course:     course,
			Topic:      cat,
			WindowDays: windowDays,
			Limit:      limit,
			Subreddits: subreddits,
		},
		Count: len(posts),
		Posts: posts,
		Note:  Note,
	})
}

type answerResponse struct {
	Course   string          `json:"course"`
	Topic    topic.Category  `json:"topic,omitempty"`
	Question string          `json:"question"`
	Count    int             `json:"count"`
	Answer   string          `json:"answer"`
	Sources  []answer.Source `json:"sources"`
	Note     string          `json:"note"`
	Outcome  answer.Outcome  `json:"outcome"`
}

// Answer handles GET /api/reddit/answer.
func (h *CommunityHandler) Answer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	question := strings.TrimSpace(r.URL.Query().Get("question"))
	course := strings.TrimSpace(r.URL.Query().Get("course"))
	if course == "" {
		// A code embedded in the question is good enough.
		course = extractCourse(question)
	}
	if course == "" {
		writeError(w, http.StatusBadRequest, "Missing course", "")
		return
	}

	windowDays := queryInt(r, "windowDays", 540, 0)
	limit := queryInt(r, "limit", defaultAnswerLimit, maxAnswerLimit)

	resp, err := h.Service.Answer(ctx, question, course, windowDays, limit)
	if err != nil {
		writeUpstreamError(w, logger, err)
		return
	}

	out := answerResponse{
		Course:   course,
		Question: question,
		Sources:  []answer.Source{},
		Note:     Note,
		Outcome:  resp.Outcome,
	}
	if resp.Result != nil {
		out.Topic = resp.Result.Topic
		out.Count = resp.Result.Count
		out.Answer = resp.Result.Answer
		if resp.Result.Sources != nil {
			out.Sources = resp.Result.Sources
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// queryInt parses an integer query parameter with a default, clamped to max
// when max is positive.
func queryInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func writeUpstreamError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if errors.Is(err, community.ErrUpstreamTimeout) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("upstream timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "Timeout talking to Reddit", err.Error())
		return
	}
	logger.Error("upstream error", zap.Error(err))
	writeError(w, http.StatusBadGateway, "Upstream error", err.Error())
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, errorBody{Error: msg, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
