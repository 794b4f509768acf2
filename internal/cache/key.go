package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BuildKey derives the cache key for a (course, question) pair. The question
// is lowercased and trimmed before hashing so trivially re-phrased identical
// questions share an entry; the course code is normalized to stay a single
// colon-free key segment.
func BuildKey(course, question string) Key {
	normalizedCourse := strings.ToUpper(strings.TrimSpace(course))
	normalizedCourse = strings.ReplaceAll(normalizedCourse, " ", "-")
	normalizedCourse = strings.ReplaceAll(normalizedCourse, ":", "-")

	normalizedQuestion := strings.ToLower(strings.TrimSpace(question))

	sum := sha256.Sum256([]byte(normalizedCourse + "|" + normalizedQuestion))
	return Key{
		Course: normalizedCourse,
		Hash:   hex.EncodeToString(sum[:]),
	}
}
