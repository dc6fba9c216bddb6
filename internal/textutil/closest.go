package textutil

import "github.com/texttheater/golang-levenshtein/levenshtein"

// Closest returns the candidate with the smallest edit distance to target,
// provided that distance is at most maxDistance.
func Closest(target string, candidates []string, maxDistance int) (string, bool) {
	source := []rune(target)
	best, bestDistance := "", maxDistance+1
	for _, candidate := range candidates {
		d := levenshtein.DistanceForStrings(source, []rune(candidate), levenshtein.DefaultOptionsWithSub)
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best, bestDistance <= maxDistance
}
