package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

type mergeFixture struct {
	*graphFixture
	graphTx *MockGraphTxRepository
	svc     *MergeService
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()
	f := &mergeFixture{
		graphFixture: newGraphFixture(false),
		graphTx:      new(MockGraphTxRepository),
	}
	svc, err := NewMergeService(f.identityRepo, f.profileRepo, f.graphTx, f.graph)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestMergeIdentities_RejectsSelfMerge(t *testing.T) {
	f := newMergeFixture(t)

	_, err := f.svc.MergeIdentities(10, 10, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestMergeIdentities_Success(t *testing.T) {
	f := newMergeFixture(t)

	keep := &entity.Identity{ID: 10, MasterID: "m-10"}
	away := &entity.Identity{ID: 20, MasterID: "m-20"}

	f.identityRepo.On("GetByID", uint(10)).Return(keep, nil)
	f.identityRepo.On("GetByID", uint(20)).Return(away, nil)
	f.profileRepo.On("GetByIdentityID", uint(10)).Return([]entity.PlatformProfile{
		{ID: 1, Platform: "discord", PlatformUserID: "123"},
	}, nil)
	f.profileRepo.On("GetByIdentityID", uint(20)).Return([]entity.PlatformProfile{
		{ID: 2, Platform: "telegram", PlatformUserID: "456"},
	}, nil)

	f.graphTx.On("MergeIdentities", uint(10), uint(20), mock.MatchedBy(func(audit *entity.AuditLogEntry) bool {
		return audit.Action == entity.AuditActionMerge &&
			audit.Details["absorbed_master_id"] == "m-20" &&
			audit.Details["absorbed_identity_id"] == uint(20)
	})).Return(nil)

	keptID, err := f.svc.MergeIdentities(10, 20, uintPtr(1))
	require.NoError(t, err)
	assert.Equal(t, uint(10), keptID)
	f.graphTx.AssertExpectations(t)
}

func TestMergeIdentities_MissingIdentity(t *testing.T) {
	f := newMergeFixture(t)

	f.identityRepo.On("GetByID", uint(10)).Return(&entity.Identity{ID: 10}, nil)
	f.identityRepo.On("GetByID", uint(20)).Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.MergeIdentities(10, 20, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.graphTx.AssertNotCalled(t, "MergeIdentities", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnlink_ProfileWithoutIdentity(t *testing.T) {
	f := newMergeFixture(t)

	standalone := &entity.PlatformProfile{ID: 1, Platform: "discord", PlatformUserID: "123"}
	f.profileRepo.On("GetByPlatformUser", "discord", "123").Return(standalone, nil)

	_, err := f.svc.Unlink("discord", "123", "telegram")
	assert.ErrorIs(t, err, ErrProfileUnlinked)
}

func TestUnlink_NoProfileOnTargetPlatform(t *testing.T) {
	f := newMergeFixture(t)

	requester := &entity.PlatformProfile{ID: 1, IdentityID: uintPtr(10), Platform: "discord", PlatformUserID: "123"}
	f.profileRepo.On("GetByPlatformUser", "discord", "123").Return(requester, nil)
	f.profileRepo.On("GetByIdentityID", uint(10)).Return([]entity.PlatformProfile{*requester}, nil)

	_, err := f.svc.Unlink("discord", "123", "telegram")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUnlink_Success(t *testing.T) {
	f := newMergeFixture(t)

	requester := &entity.PlatformProfile{ID: 1, IdentityID: uintPtr(10), Platform: "discord", PlatformUserID: "123"}
	detached := entity.PlatformProfile{ID: 2, IdentityID: uintPtr(10), Platform: "telegram", PlatformUserID: "456"}

	f.profileRepo.On("GetByPlatformUser", "discord", "123").Return(requester, nil)
	f.profileRepo.On("GetByIdentityID", uint(10)).Return([]entity.PlatformProfile{*requester, detached}, nil)

	f.graphTx.On("UnlinkProfile", uint(2), mock.MatchedBy(func(identity *entity.Identity) bool {
		return identity.MasterID != "" && identity.PrimaryPlatform == "telegram"
	}), mock.MatchedBy(func(audit *entity.AuditLogEntry) bool {
		return audit.Action == entity.AuditActionSplit &&
			audit.Details["detached_profile_id"] == uint(2) &&
			audit.ActorProfileID != nil && *audit.ActorProfileID == uint(1)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*entity.Identity).ID = 30
	}).Return(int64(2), nil)

	result, err := f.svc.Unlink("discord", "123", "telegram")
	require.NoError(t, err)

	assert.Equal(t, uint(30), result.NewIdentityID)
	assert.NotEmpty(t, result.NewMasterID)
	assert.Equal(t, uint(2), result.DetachedProfileID)
	assert.Equal(t, int64(2), result.RemovedLinks)
	require.NotNil(t, result.OriginalIdentityID)
	assert.Equal(t, uint(10), *result.OriginalIdentityID)
}
