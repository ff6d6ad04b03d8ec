package apps

import (
	"strings"
	"unicode"
)

// normalize lowercases a name and collapses punctuation so that
// "iTerm2", "iterm 2" and "i-term 2" compare equal.
func normalize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// similarity scores how closely a spoken name matches a candidate name,
// in [0, 1]. Exact normalized matches score 1. Token containment (every
// spoken token appears in the candidate) scores proportionally to how
// much of the candidate it covers, so "activity" prefers
// "Activity Monitor" over "Activity Monitor Helper". Otherwise an
// edit-distance ratio over the normalized strings decides.
func similarity(spoken, candidate string) float64 {
	s := normalize(spoken)
	c := normalize(candidate)
	if s == "" || c == "" {
		return 0
	}
	if s == c {
		return 1
	}

	if score := tokenScore(s, c); score > 0 {
		return score
	}

	return editRatio(s, c)
}

// tokenScore returns a containment score when every spoken token occurs
// as a candidate token, 0 otherwise.
func tokenScore(s, c string) float64 {
	spokenTokens := strings.Fields(s)
	candTokens := strings.Fields(c)

	candSet := make(map[string]bool, len(candTokens))
	for _, t := range candTokens {
		candSet[t] = true
	}

	for _, t := range spokenTokens {
		if !candSet[t] {
			return 0
		}
	}

	// All spoken tokens found. Weight by candidate coverage but keep a
	// floor above typical thresholds so partial names still resolve.
	coverage := float64(len(spokenTokens)) / float64(len(candTokens))
	return 0.75 + 0.25*coverage
}

// editRatio is 1 - levenshtein(s, c) / max(len(s), len(c)).
func editRatio(s, c string) float64 {
	sr := []rune(s)
	cr := []rune(c)
	dist := levenshtein(sr, cr)
	longest := len(sr)
	if len(cr) > longest {
		longest = len(cr)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
