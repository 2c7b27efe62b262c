package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSocialOverlapScore(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.0, SocialOverlapScore(0, cfg))
	assert.Equal(t, 0.0, SocialOverlapScore(2, cfg), "below minimum shared communities")
	assert.Equal(t, 30.0, SocialOverlapScore(3, cfg))
	assert.Equal(t, 50.0, SocialOverlapScore(5, cfg))
	assert.Equal(t, 80.0, SocialOverlapScore(8, cfg))
	assert.Equal(t, 80.0, SocialOverlapScore(20, cfg), "capped")
}
