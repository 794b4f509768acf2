// Package answer renders ranked community posts into a short cited answer
// and owns the question router that drives the whole pipeline.
package answer

import (
	"fmt"
	"math"
	"time"
)

// RelativeAge formats how long ago a post was created, for humans.
// The minimum reported age is one day; beyond that it climbs through
// days, rounded weeks, rounded months and rounded years.
func RelativeAge(createdUTC int64, now time.Time) string {
	created := time.Unix(createdUTC, 0)
	days := int(math.Round(now.Sub(created).Hours() / 24))
	if days < 1 {
		days = 1
	}
	if days < 7 {
		return fmt.Sprintf("%dd ago", days)
	}
	if w := int(math.Round(float64(days) / 7)); w < 8 {
		return fmt.Sprintf("%dw ago", w)
	}
	if m := int(math.Round(float64(days) / 30)); m < 18 {
		return fmt.Sprintf("%dmo ago", m)
	}
	return fmt.Sprintf("%dy ago", int(math.Round(float64(days)/365)))
}
