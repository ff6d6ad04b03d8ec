package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Safari", "safari"},
		{"punctuation collapses", "i-Term 2", "i term 2"},
		{"mixed case and digits", "iTerm2", "iterm2"},
		{"extra whitespace", "  Activity   Monitor ", "activity monitor"},
		{"only punctuation", "!!!", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalize(tt.input))
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("exact match scores 1", func(t *testing.T) {
		assert.Equal(t, 1.0, similarity("Safari", "Safari"))
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, similarity("safari", "Safari"))
		assert.Equal(t, 1.0, similarity("i-term 2", "I Term 2"))
	})

	t.Run("token containment scores above threshold", func(t *testing.T) {
		score := similarity("activity", "Activity Monitor")
		assert.GreaterOrEqual(t, score, 0.75)
		assert.Less(t, score, 1.0)
	})

	t.Run("fuller coverage scores higher", func(t *testing.T) {
		partial := similarity("activity", "Activity Monitor Helper")
		fuller := similarity("activity", "Activity Monitor")
		assert.Greater(t, fuller, partial)
	})

	t.Run("typos score by edit distance", func(t *testing.T) {
		score := similarity("safary", "Safari")
		assert.Greater(t, score, 0.7)
		assert.Less(t, score, 1.0)
	})

	t.Run("unrelated names score low", func(t *testing.T) {
		assert.Less(t, similarity("calculator", "Safari"), 0.5)
	})

	t.Run("empty input scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, similarity("", "Safari"))
		assert.Equal(t, 0.0, similarity("safari", ""))
	})
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"safari", "safary", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, levenshtein([]rune(tt.a), []rune(tt.b)), "%s vs %s", tt.a, tt.b)
	}
}
