// README: Candidate ranking by photo, rating and proximity.
package matching

import (
	"math"
	"sort"
	"strings"
)

// unratedSentinel places unrated drivers after any rated driver.
const unratedSentinel = -1.0

func ratingKey(c Candidate) float64 {
	if c.AverageRating == nil {
		return unratedSentinel
	}
	return *c.AverageRating
}

func distanceKey(c Candidate) float64 {
	if c.DistanceFromPickupKm == nil {
		return math.Inf(1)
	}
	return *c.DistanceFromPickupKm
}

// Rank sorts candidates in place, stably: photo first, then higher rating,
// then nearer to pickup (unresolved last). Without a pickup the last key is
// the full name, alphabetically.
func Rank(cs []Candidate, pickupKnown bool) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.HasPhoto != b.HasPhoto {
			return a.HasPhoto
		}
		if ra, rb := ratingKey(a), ratingKey(b); ra != rb {
			return ra > rb
		}
		if pickupKnown {
			return distanceKey(a) < distanceKey(b)
		}
		return strings.ToLower(a.FullName) < strings.ToLower(b.FullName)
	})
}
