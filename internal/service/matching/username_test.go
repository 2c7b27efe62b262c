package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsernameSimilarity_ExactMatch(t *testing.T) {
	assert.Equal(t, 100.0, UsernameSimilarity("crypto_king", "crypto_king"))
}

func TestUsernameSimilarity_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 100.0, UsernameSimilarity("Crypto_King", "crypto_king"))
	assert.Equal(t, 100.0, UsernameSimilarity("  CRYPTO_KING  ", "crypto_king"))
}

func TestUsernameSimilarity_Containment(t *testing.T) {
	assert.Equal(t, 85.0, UsernameSimilarity("cryptoking", "cryptoking99"))
	assert.Equal(t, 85.0, UsernameSimilarity("the_cryptoking", "cryptoking"))
}

func TestUsernameSimilarity_Levenshtein(t *testing.T) {
	// crypto_king vs cryptoking: one deletion over 11 runes.
	score := UsernameSimilarity("crypto_king", "cryptoking")
	assert.InDelta(t, (1-1.0/11)*100, score, 0.01)
}

func TestUsernameSimilarity_Dissimilar(t *testing.T) {
	score := UsernameSimilarity("crypto_king", "quietreader")
	assert.Less(t, score, 40.0)
}

func TestUsernameSimilarity_EmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, UsernameSimilarity("", "someone"))
	assert.Equal(t, 0.0, UsernameSimilarity("someone", ""))
	assert.Equal(t, 0.0, UsernameSimilarity("", ""))
}

func TestUsernameSimilarity_Unicode(t *testing.T) {
	// Rune-wise distance: one substitution over 4 runes.
	score := UsernameSimilarity("höla", "hola")
	assert.InDelta(t, 75.0, score, 0.01)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
	assert.Equal(t, 1, levenshtein("kitten", "mitten"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
