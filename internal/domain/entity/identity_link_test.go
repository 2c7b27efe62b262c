package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	low, high := NormalizePair(9, 3)
	assert.Equal(t, uint(3), low)
	assert.Equal(t, uint(9), high)

	low, high = NormalizePair(3, 9)
	assert.Equal(t, uint(3), low)
	assert.Equal(t, uint(9), high)
}

func TestSetPair_KeepsDirection(t *testing.T) {
	link := &IdentityLink{}
	link.SetPair(9, 3)

	assert.Equal(t, uint(9), link.SourceProfileID)
	assert.Equal(t, uint(3), link.TargetProfileID)
	assert.Equal(t, uint(3), link.ProfileLowID)
	assert.Equal(t, uint(9), link.ProfileHighID)
}

func TestSetPair_SameCanonicalKeyBothDirections(t *testing.T) {
	forward := &IdentityLink{}
	forward.SetPair(3, 9)
	reverse := &IdentityLink{}
	reverse.SetPair(9, 3)

	assert.Equal(t, forward.ProfileLowID, reverse.ProfileLowID)
	assert.Equal(t, forward.ProfileHighID, reverse.ProfileHighID)
}

func TestLinkTouches(t *testing.T) {
	link := &IdentityLink{}
	link.SetPair(3, 9)

	assert.True(t, link.Touches(3))
	assert.True(t, link.Touches(9))
	assert.False(t, link.Touches(4))
}
