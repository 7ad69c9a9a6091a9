// Package similarity scores how alike two skill names are and suggests the
// closest known names for a mistyped one.
package similarity

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
)

// SuggestThreshold is the minimum Score for a name to be suggested.
const SuggestThreshold = 0.75

// Score returns the similarity of two names in [0, 1]: the higher of the
// Levenshtein and Jaro-Winkler scores after normalization.
func Score(a, b string) float64 {
	a, b = normalizeName(a), normalizeName(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return max(LevenshteinSimilarity(a, b), JaroWinkler(a, b))
}

// Suggest returns up to limit candidates scoring at least SuggestThreshold
// against input, best first. Ties keep candidate order. Exact matches are
// left out since they need no suggestion.
func Suggest(input string, candidates []string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c)
		if seen[key] || strings.EqualFold(c, input) {
			continue
		}
		seen[key] = true
		if s := Score(input, c); s >= SuggestThreshold {
			hits = append(hits, scored{c, s})
		}
	}
	slices.SortStableFunc(hits, func(x, y scored) int {
		return cmp.Compare(y.score, x.score)
	})

	out := make([]string, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.name)
	}
	return out
}

// Hint formats suggestions for an error message, or "" when there are none.
func Hint(input string, candidates []string) string {
	s := Suggest(input, candidates, 3)
	if len(s) == 0 {
		return ""
	}
	return " (did you mean " + strings.Join(s, ", ") + "?)"
}

// normalizeName lowercases s and collapses runs of separators to one space.
func normalizeName(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		case r == '-' || r == '_' || r == ' ' || r == '.' || r == '/' || r == '@':
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// LevenshteinDistance is the number of single-rune insertions, deletions and
// substitutions that turn s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}
	if len(r1) < len(r2) {
		r1, r2 = r2, r1
	}

	// Two rows: O(min(m,n)) space.
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// LevenshteinSimilarity scales LevenshteinDistance to [0, 1].
func LevenshteinSimilarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(LevenshteinDistance(s1, s2))/float64(maxLen)
}

// JaroSimilarity returns the Jaro similarity of two strings in [0, 1].
func JaroSimilarity(s1, s2 string) float64 {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 && len(r2) == 0 {
		return 1.0
	}
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	window := max(0, max(len(r1), len(r2))/2-1)
	m1 := make([]bool, len(r1))
	m2 := make([]bool, len(r2))

	matches := 0
	for i := range r1 {
		for j := max(0, i-window); j < min(len(r2), i+window+1); j++ {
			if m2[j] || r1[i] != r2[j] {
				continue
			}
			m1[i], m2[j] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions, k := 0, 0
	for i := range r1 {
		if !m1[i] {
			continue
		}
		for !m2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len(r1)) + m/float64(len(r2)) + (m-float64(transpositions/2))/m) / 3.0
}

// JaroWinkler boosts JaroSimilarity by up to four runes of common prefix.
func JaroWinkler(s1, s2 string) float64 {
	jaro := JaroSimilarity(s1, s2)
	r1, r2 := []rune(s1), []rune(s2)

	prefix := 0
	for i := range min(4, len(r1), len(r2)) {
		if r1[i] != r2[i] {
			break
		}
		prefix++
	}
	return jaro + float64(prefix)*0.1*(1.0-jaro)
}
