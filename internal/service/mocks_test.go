package service

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
)

// Shared testify mocks for the service tests in this package.

func uintPtr(v uint) *uint { return &v }

// MockIdentityRepository implements repository.IdentityRepository
type MockIdentityRepository struct {
	mock.Mock
}

func (m *MockIdentityRepository) Create(identity *entity.Identity) error {
	args := m.Called(identity)
	return args.Error(0)
}

func (m *MockIdentityRepository) GetByID(id uint) (*entity.Identity, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Identity), args.Error(1)
}

func (m *MockIdentityRepository) GetByMasterID(masterID string) (*entity.Identity, error) {
	args := m.Called(masterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Identity), args.Error(1)
}

func (m *MockIdentityRepository) Update(identity *entity.Identity) error {
	args := m.Called(identity)
	return args.Error(0)
}

func (m *MockIdentityRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockIdentityRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockIdentityRepository) SearchByDisplayName(term string, limit int) ([]entity.Identity, error) {
	args := m.Called(term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Identity), args.Error(1)
}

// MockProfileRepository implements repository.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Upsert(profile *entity.PlatformProfile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetByID(id uint) (*entity.PlatformProfile, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PlatformProfile), args.Error(1)
}

func (m *MockProfileRepository) GetByPlatformUser(platform, platformUserID string) (*entity.PlatformProfile, error) {
	args := m.Called(platform, platformUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PlatformProfile), args.Error(1)
}

func (m *MockProfileRepository) GetByIdentityID(identityID uint) ([]entity.PlatformProfile, error) {
	args := m.Called(identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PlatformProfile), args.Error(1)
}

func (m *MockProfileRepository) AssignIdentityIfUnowned(profileID, identityID uint) (bool, error) {
	args := m.Called(profileID, identityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepository) FindUsernameCandidates(platform, username string, limit int) ([]entity.PlatformProfile, error) {
	args := m.Called(platform, username, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PlatformProfile), args.Error(1)
}

func (m *MockProfileRepository) ListActiveOnOtherPlatforms(platform string, limit int) ([]entity.PlatformProfile, error) {
	args := m.Called(platform, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PlatformProfile), args.Error(1)
}

func (m *MockProfileRepository) Search(term string, limit int) ([]entity.PlatformProfile, error) {
	args := m.Called(term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PlatformProfile), args.Error(1)
}

// MockLinkRepository implements repository.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(link *entity.IdentityLink) error {
	args := m.Called(link)
	return args.Error(0)
}

func (m *MockLinkRepository) GetByID(id uint) (*entity.IdentityLink, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.IdentityLink), args.Error(1)
}

func (m *MockLinkRepository) GetByPair(profileA, profileB uint) (*entity.IdentityLink, error) {
	args := m.Called(profileA, profileB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.IdentityLink), args.Error(1)
}

func (m *MockLinkRepository) StrengthenPending(linkID uint, confidence float64, linkType string, evidence entity.JSONMap) (int64, error) {
	args := m.Called(linkID, confidence, linkType, evidence)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLinkRepository) GetByProfile(profileID uint) ([]entity.IdentityLink, error) {
	args := m.Called(profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.IdentityLink), args.Error(1)
}

// MockFactorRepository implements repository.FactorRepository
type MockFactorRepository struct {
	mock.Mock
}

func (m *MockFactorRepository) Upsert(factor *entity.ConfidenceFactor) error {
	args := m.Called(factor)
	return args.Error(0)
}

func (m *MockFactorRepository) GetByIdentity(identityID uint) ([]entity.ConfidenceFactor, error) {
	args := m.Called(identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ConfidenceFactor), args.Error(1)
}

func (m *MockFactorRepository) RecomputeAggregate(identityID uint) (float64, error) {
	args := m.Called(identityID)
	return args.Get(0).(float64), args.Error(1)
}

// MockLinkRequestRepository implements repository.LinkRequestRepository
type MockLinkRequestRepository struct {
	mock.Mock
}

func (m *MockLinkRequestRepository) Create(request *entity.LinkRequest) error {
	args := m.Called(request)
	return args.Error(0)
}

func (m *MockLinkRequestRepository) GetByID(id uint) (*entity.LinkRequest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LinkRequest), args.Error(1)
}

func (m *MockLinkRequestRepository) GetByPlatformCode(targetPlatform, codeHash string) (*entity.LinkRequest, error) {
	args := m.Called(targetPlatform, codeHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LinkRequest), args.Error(1)
}

func (m *MockLinkRequestRepository) MarkExpired(id uint) (int64, error) {
	args := m.Called(id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLinkRequestRepository) ExpireOverdue(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditRepository implements repository.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(entry *entity.AuditLogEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockAuditRepository) GetByIdentity(identityID uint, limit int) ([]entity.AuditLogEntry, error) {
	args := m.Called(identityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AuditLogEntry), args.Error(1)
}

func (m *MockAuditRepository) ListRange(from, to time.Time, limit int) ([]entity.AuditLogEntry, error) {
	args := m.Called(from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AuditLogEntry), args.Error(1)
}

// MockRoomRepository implements repository.RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) UpsertPresence(participant *entity.RoomParticipant) error {
	args := m.Called(participant)
	return args.Error(0)
}

func (m *MockRoomRepository) SharedCommunityCount(profileA, profileB uint) (int64, error) {
	args := m.Called(profileA, profileB)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoomRepository) CoParticipants(profileID uint, platform string, limit int) ([]entity.PlatformProfile, map[uint]int64, error) {
	args := m.Called(profileID, platform, limit)
	var profiles []entity.PlatformProfile
	if args.Get(0) != nil {
		profiles = args.Get(0).([]entity.PlatformProfile)
	}
	var shared map[uint]int64
	if args.Get(1) != nil {
		shared = args.Get(1).(map[uint]int64)
	}
	return profiles, shared, args.Error(2)
}

// MockCacheRepository implements repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepository) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockGraphTxRepository implements repository.GraphTxRepository
type MockGraphTxRepository struct {
	mock.Mock
}

func (m *MockGraphTxRepository) ConfirmVerification(params repository.ConfirmVerificationParams) (*repository.ConfirmVerificationResult, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ConfirmVerificationResult), args.Error(1)
}

func (m *MockGraphTxRepository) MergeIdentities(keepID, mergeAwayID uint, audit *entity.AuditLogEntry) error {
	args := m.Called(keepID, mergeAwayID, audit)
	return args.Error(0)
}

func (m *MockGraphTxRepository) UnlinkProfile(profileID uint, newIdentity *entity.Identity, audit *entity.AuditLogEntry) (int64, error) {
	args := m.Called(profileID, newIdentity, audit)
	return args.Get(0).(int64), args.Error(1)
}

// graphFixture bundles a GraphService with the mocks behind it.
type graphFixture struct {
	identityRepo *MockIdentityRepository
	profileRepo  *MockProfileRepository
	linkRepo     *MockLinkRepository
	auditRepo    *MockAuditRepository
	roomRepo     *MockRoomRepository
	cacheRepo    *MockCacheRepository
	graph        *GraphService
}

func newGraphFixture(withCache bool) *graphFixture {
	f := &graphFixture{
		identityRepo: new(MockIdentityRepository),
		profileRepo:  new(MockProfileRepository),
		linkRepo:     new(MockLinkRepository),
		auditRepo:    new(MockAuditRepository),
		roomRepo:     new(MockRoomRepository),
	}
	var cache repository.CacheRepository
	if withCache {
		f.cacheRepo = new(MockCacheRepository)
		cache = f.cacheRepo
	}
	graph, err := NewGraphService(
		f.identityRepo, f.profileRepo, f.linkRepo, f.auditRepo, f.roomRepo, cache,
		FusionBonuses{Username: 15, Temporal: 15, Social: 20},
		30*time.Second,
	)
	if err != nil {
		panic(err)
	}
	f.graph = graph
	return f
}
