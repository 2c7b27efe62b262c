package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

func profileFixture(id uint, platform string) *entity.PlatformProfile {
	return &entity.PlatformProfile{ID: id, Platform: platform, Username: "someone"}
}

func TestFuse_SingleSignal(t *testing.T) {
	cfg := DefaultConfig()
	profiles := map[uint]*entity.PlatformProfile{7: profileFixture(7, "discord")}
	signals := map[uint][]Signal{
		7: {{Name: SignalUsername, Score: 90}},
	}

	fused := Fuse(signals, profiles, cfg)
	require.Len(t, fused, 1)
	assert.Equal(t, 90.0, fused[0].Confidence)
	assert.Equal(t, entity.LinkTypeAutoUsername, fused[0].LinkType())
}

func TestFuse_CorroborationBonus(t *testing.T) {
	cfg := DefaultConfig()
	profiles := map[uint]*entity.PlatformProfile{7: profileFixture(7, "discord")}
	signals := map[uint][]Signal{
		7: {
			{Name: SignalUsername, Score: 72},
			{Name: SignalTemporal, Score: 48},
		},
	}

	fused := Fuse(signals, profiles, cfg)
	require.Len(t, fused, 1)
	// Strongest signal (username 72) plus the temporal bonus, not the sum.
	assert.Equal(t, 72.0+cfg.TemporalBonus, fused[0].Confidence)
	assert.Equal(t, entity.LinkTypeAutoUsername, fused[0].LinkType())
}

func TestFuse_PrimaryIsStrongestSignal(t *testing.T) {
	cfg := DefaultConfig()
	profiles := map[uint]*entity.PlatformProfile{7: profileFixture(7, "telegram")}
	signals := map[uint][]Signal{
		7: {
			{Name: SignalUsername, Score: 71},
			{Name: SignalSocial, Score: 80},
		},
	}

	fused := Fuse(signals, profiles, cfg)
	require.Len(t, fused, 1)
	assert.Equal(t, 80.0+cfg.UsernameBonus, fused[0].Confidence)
	assert.Equal(t, entity.LinkTypeAutoSocial, fused[0].LinkType())
}

func TestFuse_CappedAt100(t *testing.T) {
	cfg := DefaultConfig()
	profiles := map[uint]*entity.PlatformProfile{7: profileFixture(7, "discord")}
	signals := map[uint][]Signal{
		7: {
			{Name: SignalUsername, Score: 95},
			{Name: SignalTemporal, Score: 55},
			{Name: SignalSocial, Score: 60},
		},
	}

	fused := Fuse(signals, profiles, cfg)
	require.Len(t, fused, 1)
	assert.Equal(t, 100.0, fused[0].Confidence)
}

func TestFuse_RankedByConfidence(t *testing.T) {
	cfg := DefaultConfig()
	profiles := map[uint]*entity.PlatformProfile{
		1: profileFixture(1, "discord"),
		2: profileFixture(2, "telegram"),
		3: profileFixture(3, "slack"),
	}
	signals := map[uint][]Signal{
		1: {{Name: SignalUsername, Score: 75}},
		2: {{Name: SignalUsername, Score: 92}},
		3: {{Name: SignalSocial, Score: 80}},
	}

	fused := Fuse(signals, profiles, cfg)
	require.Len(t, fused, 3)
	assert.Equal(t, uint(2), fused[0].Profile.ID)
	assert.Equal(t, uint(3), fused[1].Profile.ID)
	assert.Equal(t, uint(1), fused[2].Profile.ID)
}

func TestFuse_SkipsUnknownProfiles(t *testing.T) {
	cfg := DefaultConfig()
	signals := map[uint][]Signal{
		9: {{Name: SignalUsername, Score: 90}},
	}

	fused := Fuse(signals, map[uint]*entity.PlatformProfile{}, cfg)
	assert.Empty(t, fused)
}

func TestCandidateEvidence(t *testing.T) {
	candidate := Candidate{
		Profile:    profileFixture(7, "discord"),
		Confidence: 87,
		Signals: []Signal{
			{Name: SignalUsername, Score: 72, Evidence: entity.JSONMap{"similarity": 72.0}},
			{Name: SignalTemporal, Score: 48, Evidence: entity.JSONMap{"correlation": 0.8}},
		},
	}

	evidence := candidate.Evidence()
	assert.Equal(t, 87.0, evidence["confidence"])
	signals, ok := evidence["signals"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, signals, SignalUsername)
	assert.Contains(t, signals, SignalTemporal)
}
