package ui

import (
	"sort"
	"strings"
)

// DefaultMaxDistance is the largest edit distance still offered as a suggestion
const DefaultMaxDistance = 3

// DefaultMaxSuggestions caps the number of suggestions
const DefaultMaxSuggestions = 3

// SimilarIDs returns the candidates closest to target by edit distance,
// ignoring case. Ties keep candidate order.
//
//	SimilarIDs("TYPE_REQQ", []string{"TYPE_REQ", "TYPE_SPEC"}) // ["TYPE_REQ"]
func SimilarIDs(target string, candidates []string) []string {
	type match struct {
		id       string
		distance int
	}

	lower := strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		if c == target {
			continue
		}
		if d := LevenshteinDistance(lower, strings.ToLower(c)); d <= DefaultMaxDistance {
			matches = append(matches, match{id: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, DefaultMaxSuggestions)
	for i := 0; i < len(matches) && i < DefaultMaxSuggestions; i++ {
		out = append(out, matches[i].id)
	}
	return out
}

// LevenshteinDistance is the minimum number of single-byte insertions,
// deletions or substitutions turning s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
