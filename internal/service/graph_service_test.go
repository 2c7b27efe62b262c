package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

func TestUpsertProfile_Validation(t *testing.T) {
	f := newGraphFixture(false)

	_, err := f.graph.UpsertProfile("", "123", ProfileAttrs{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.graph.UpsertProfile("discord", "  ", ProfileAttrs{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpsertProfile_NormalizesPlatform(t *testing.T) {
	f := newGraphFixture(false)

	f.profileRepo.On("Upsert", mock.MatchedBy(func(p *entity.PlatformProfile) bool {
		return p.Platform == "discord" && p.PlatformUserID == "123" && p.Username == "crypto_king"
	})).Return(nil)

	profile, err := f.graph.UpsertProfile("  Discord ", "123", ProfileAttrs{Username: " crypto_king "})
	require.NoError(t, err)
	assert.Equal(t, "discord", profile.Platform)
	f.profileRepo.AssertExpectations(t)
}

func TestResolve_StandaloneProfile(t *testing.T) {
	f := newGraphFixture(false)

	profile := &entity.PlatformProfile{ID: 1, Platform: "discord", PlatformUserID: "123"}
	f.profileRepo.On("GetByPlatformUser", "discord", "123").Return(profile, nil)
	f.linkRepo.On("GetByProfile", uint(1)).Return([]entity.IdentityLink{}, nil)

	resolution, err := f.graph.Resolve("discord", "123")
	require.NoError(t, err)
	assert.Equal(t, profile, resolution.Profile)
	assert.Nil(t, resolution.Identity)
	assert.Empty(t, resolution.LinkedProfiles)
	assert.Zero(t, resolution.Confidence)
}

func TestResolve_LinkedProfile(t *testing.T) {
	f := newGraphFixture(false)

	profile := &entity.PlatformProfile{ID: 1, IdentityID: uintPtr(10), Platform: "discord", PlatformUserID: "123"}
	identity := &entity.Identity{ID: 10, MasterID: "m-10", ConfidenceScore: 87.5}
	siblings := []entity.PlatformProfile{
		{ID: 1, Platform: "discord"},
		{ID: 2, Platform: "telegram"},
	}
	links := []entity.IdentityLink{{ID: 5, Status: entity.LinkStatusConfirmed}}

	f.profileRepo.On("GetByPlatformUser", "discord", "123").Return(profile, nil)
	f.identityRepo.On("GetByID", uint(10)).Return(identity, nil)
	f.profileRepo.On("GetByIdentityID", uint(10)).Return(siblings, nil)
	f.linkRepo.On("GetByProfile", uint(1)).Return(links, nil)

	resolution, err := f.graph.Resolve("discord", "123")
	require.NoError(t, err)
	assert.Equal(t, identity, resolution.Identity)
	assert.Equal(t, 87.5, resolution.Confidence)
	assert.Len(t, resolution.LinkedProfiles, 2)
	assert.Len(t, resolution.Links, 1)
}

func TestResolve_CacheHit(t *testing.T) {
	f := newGraphFixture(true)

	f.cacheRepo.On("GetJSON", "resolve:discord:123", mock.Anything).Return(nil)

	_, err := f.graph.Resolve("discord", "123")
	require.NoError(t, err)
	f.profileRepo.AssertNotCalled(t, "GetByPlatformUser", mock.Anything, mock.Anything)
}

func TestEnsureIdentity_AlreadyOwned(t *testing.T) {
	f := newGraphFixture(false)

	identity := &entity.Identity{ID: 10}
	f.identityRepo.On("GetByID", uint(10)).Return(identity, nil)

	got, err := f.graph.EnsureIdentity(&entity.PlatformProfile{ID: 1, IdentityID: uintPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestEnsureIdentity_CreatesAndWinsAssignment(t *testing.T) {
	f := newGraphFixture(false)

	profile := &entity.PlatformProfile{ID: 1, Platform: "discord", PlatformUserID: "123", Username: "crypto_king"}

	f.identityRepo.On("Create", mock.MatchedBy(func(i *entity.Identity) bool {
		return i.MasterID != "" && i.PrimaryPlatform == "discord" && i.DisplayName == "crypto_king"
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Identity).ID = 42
	}).Return(nil)
	f.profileRepo.On("AssignIdentityIfUnowned", uint(1), uint(42)).Return(true, nil)

	identity, err := f.graph.EnsureIdentity(profile)
	require.NoError(t, err)
	assert.Equal(t, uint(42), identity.ID)
	assert.Equal(t, uint(42), *profile.IdentityID)
}

func TestEnsureIdentity_LosesAssignmentRace(t *testing.T) {
	f := newGraphFixture(false)

	profile := &entity.PlatformProfile{ID: 1, Platform: "discord", PlatformUserID: "123"}
	winner := &entity.Identity{ID: 7, MasterID: "m-7"}

	f.identityRepo.On("Create", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.Identity).ID = 42
	}).Return(nil)
	f.profileRepo.On("AssignIdentityIfUnowned", uint(1), uint(42)).Return(false, nil)
	f.identityRepo.On("Delete", uint(42)).Return(nil)
	f.profileRepo.On("GetByID", uint(1)).Return(&entity.PlatformProfile{ID: 1, IdentityID: uintPtr(7)}, nil)
	f.identityRepo.On("GetByID", uint(7)).Return(winner, nil)

	identity, err := f.graph.EnsureIdentity(profile)
	require.NoError(t, err)
	assert.Equal(t, winner, identity, "the concurrently assigned identity wins")
	f.identityRepo.AssertCalled(t, "Delete", uint(42))
}

func TestRecordLink_RejectsSelfLink(t *testing.T) {
	f := newGraphFixture(false)

	p := &entity.PlatformProfile{ID: 1}
	_, err := f.graph.RecordLink(p, p, entity.LinkTypeManual, 100, nil, entity.LinkStatusConfirmed)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordLink_CreatesNewLink(t *testing.T) {
	f := newGraphFixture(false)

	source := &entity.PlatformProfile{ID: 9}
	target := &entity.PlatformProfile{ID: 3}

	f.linkRepo.On("GetByPair", uint(9), uint(3)).Return(nil, apperrors.ErrNotFound)
	f.linkRepo.On("Create", mock.MatchedBy(func(l *entity.IdentityLink) bool {
		return l.ProfileLowID == 3 && l.ProfileHighID == 9 && l.Status == entity.LinkStatusPending
	})).Return(nil)

	link, err := f.graph.RecordLink(source, target, entity.LinkTypeAutoUsername, 86, entity.JSONMap{"similarity": 86.0}, entity.LinkStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 86.0, link.Confidence)
}

func TestRecordLink_StrengthensWithCorroborationBonus(t *testing.T) {
	f := newGraphFixture(false)

	source := &entity.PlatformProfile{ID: 9}
	target := &entity.PlatformProfile{ID: 3}
	existing := &entity.IdentityLink{
		ID: 5, LinkType: entity.LinkTypeAutoUsername, Confidence: 86,
		Status: entity.LinkStatusPending, Evidence: entity.JSONMap{"similarity": 86.0},
	}
	existing.SetPair(9, 3)

	f.linkRepo.On("GetByPair", uint(9), uint(3)).Return(existing, nil)
	// A different signal re-detected the pair: +15 temporal bonus, capped.
	f.linkRepo.On("StrengthenPending", uint(5), 100.0, entity.LinkTypeAutoUsername, mock.Anything).Return(int64(1), nil)

	link, err := f.graph.RecordLink(source, target, entity.LinkTypeAutoTemporal, 50, entity.JSONMap{"correlation": 0.8}, entity.LinkStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 100.0, link.Confidence)
	f.linkRepo.AssertExpectations(t)
}

func TestRecordLink_SameSignalKeepsHigherConfidence(t *testing.T) {
	f := newGraphFixture(false)

	source := &entity.PlatformProfile{ID: 9}
	target := &entity.PlatformProfile{ID: 3}
	existing := &entity.IdentityLink{
		ID: 5, LinkType: entity.LinkTypeAutoUsername, Confidence: 80,
		Status: entity.LinkStatusPending,
	}
	existing.SetPair(9, 3)

	f.linkRepo.On("GetByPair", uint(9), uint(3)).Return(existing, nil)
	f.linkRepo.On("StrengthenPending", uint(5), 91.0, entity.LinkTypeAutoUsername, mock.Anything).Return(int64(1), nil)

	link, err := f.graph.RecordLink(source, target, entity.LinkTypeAutoUsername, 91, nil, entity.LinkStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 91.0, link.Confidence)
}

func TestRecordLink_ConfirmedLinkUntouched(t *testing.T) {
	f := newGraphFixture(false)

	source := &entity.PlatformProfile{ID: 9}
	target := &entity.PlatformProfile{ID: 3}
	existing := &entity.IdentityLink{
		ID: 5, LinkType: entity.LinkTypeManual, Confidence: 100,
		Status: entity.LinkStatusConfirmed,
	}
	existing.SetPair(9, 3)

	f.linkRepo.On("GetByPair", uint(9), uint(3)).Return(existing, nil)

	link, err := f.graph.RecordLink(source, target, entity.LinkTypeAutoUsername, 86, nil, entity.LinkStatusPending)
	require.NoError(t, err)
	assert.Equal(t, existing, link)
	f.linkRepo.AssertNotCalled(t, "StrengthenPending", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordLink_CreateLosesRaceThenStrengthens(t *testing.T) {
	f := newGraphFixture(false)

	source := &entity.PlatformProfile{ID: 9}
	target := &entity.PlatformProfile{ID: 3}
	concurrent := &entity.IdentityLink{
		ID: 5, LinkType: entity.LinkTypeAutoTemporal, Confidence: 50,
		Status: entity.LinkStatusPending,
	}
	concurrent.SetPair(3, 9)

	f.linkRepo.On("GetByPair", uint(9), uint(3)).Return(nil, apperrors.ErrNotFound).Once()
	f.linkRepo.On("Create", mock.Anything).Return(repository.ErrLinkPairExists)
	f.linkRepo.On("GetByPair", uint(9), uint(3)).Return(concurrent, nil)
	f.linkRepo.On("StrengthenPending", uint(5), 50.0+15.0, entity.LinkTypeAutoUsername, mock.Anything).Return(int64(1), nil)

	link, err := f.graph.RecordLink(source, target, entity.LinkTypeAutoUsername, 86, nil, entity.LinkStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 65.0, link.Confidence)
	assert.Equal(t, entity.LinkTypeAutoUsername, link.LinkType)
}

func TestSearch_GroupsProfilesByIdentity(t *testing.T) {
	f := newGraphFixture(false)

	identity := entity.Identity{ID: 10, MasterID: "m-10", DisplayName: "Crypto King"}
	profiles := []entity.PlatformProfile{
		{ID: 1, IdentityID: uintPtr(10), Platform: "discord"},
		{ID: 2, IdentityID: uintPtr(10), Platform: "telegram"},
		{ID: 3, Platform: "slack"}, // standalone
	}

	f.profileRepo.On("Search", "crypto", 20).Return(profiles, nil)
	f.identityRepo.On("SearchByDisplayName", "crypto", 20).Return([]entity.Identity{identity}, nil)

	groups, err := f.graph.Search("crypto", 20)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, uint(10), groups[0].Identity.ID)
	assert.Len(t, groups[0].Profiles, 2)
	assert.Nil(t, groups[1].Identity)
	assert.Len(t, groups[1].Profiles, 1)
}

func TestSearch_EmptyTerm(t *testing.T) {
	f := newGraphFixture(false)

	_, err := f.graph.Search("   ", 20)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRecordRoomPresence_DefaultsCommunityKey(t *testing.T) {
	f := newGraphFixture(false)

	f.roomRepo.On("UpsertPresence", mock.MatchedBy(func(p *entity.RoomParticipant) bool {
		return p.CommunityKey == "general" && p.RoomKey == "general" && !p.LastActive.IsZero()
	})).Return(nil)

	err := f.graph.RecordRoomPresence("discord", "general", "", 1)
	require.NoError(t, err)
	f.roomRepo.AssertExpectations(t)
}

func TestRecordRoomPresence_Validation(t *testing.T) {
	f := newGraphFixture(false)

	assert.ErrorIs(t, f.graph.RecordRoomPresence("", "room", "c", 1), apperrors.ErrValidation)
	assert.ErrorIs(t, f.graph.RecordRoomPresence("discord", "", "c", 1), apperrors.ErrValidation)
	assert.ErrorIs(t, f.graph.RecordRoomPresence("discord", "room", "c", 0), apperrors.ErrValidation)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, clampConfidence(-3))
	assert.Equal(t, 55.5, clampConfidence(55.5))
	assert.Equal(t, 100.0, clampConfidence(140))
}

func TestNewGraphService_RequiresRepositories(t *testing.T) {
	_, err := NewGraphService(nil, nil, nil, nil, nil, nil, FusionBonuses{}, time.Second)
	assert.Error(t, err)
}
