package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// ProfileAttrs carries the mutable attributes a platform adapter observed
// for a user. Empty fields never wipe stored data.
type ProfileAttrs struct {
	Username         string         `json:"username"`
	DisplayName      string         `json:"display_name"`
	AvatarURL        string         `json:"avatar_url"`
	Bio              string         `json:"bio"`
	PlatformVerified bool           `json:"platform_verified"`
	RawPayload       entity.JSONMap `json:"raw_payload"`
}

// Resolution is the full answer to "who is this platform user": the
// profile, its owning identity if any, every sibling profile, and the
// identity's aggregate confidence.
type Resolution struct {
	Profile        *entity.PlatformProfile  `json:"profile"`
	Identity       *entity.Identity         `json:"identity,omitempty"`
	LinkedProfiles []entity.PlatformProfile `json:"linked_profiles"`
	Links          []entity.IdentityLink    `json:"links"`
	Confidence     float64                  `json:"confidence"`
}

// SearchGroup is one identity (or standalone profile) in a search result.
type SearchGroup struct {
	Identity *entity.Identity         `json:"identity,omitempty"`
	Profiles []entity.PlatformProfile `json:"profiles"`
}

// GraphService is the read/write surface of the identity graph store:
// profile upserts, resolution, link recording, room evidence and search.
type GraphService struct {
	identityRepo repository.IdentityRepository
	profileRepo  repository.ProfileRepository
	linkRepo     repository.LinkRepository
	auditRepo    repository.AuditRepository
	roomRepo     repository.RoomRepository
	cacheRepo    repository.CacheRepository
	matchingCfg  FusionBonuses
	cacheTTL     time.Duration
}

// FusionBonuses is the slice of matching configuration the graph service
// needs to strengthen an existing link when a new signal re-detects it.
type FusionBonuses struct {
	Username float64
	Temporal float64
	Social   float64
}

// NewGraphService creates the graph service.
func NewGraphService(
	identityRepo repository.IdentityRepository,
	profileRepo repository.ProfileRepository,
	linkRepo repository.LinkRepository,
	auditRepo repository.AuditRepository,
	roomRepo repository.RoomRepository,
	cacheRepo repository.CacheRepository,
	bonuses FusionBonuses,
	cacheTTL time.Duration,
) (*GraphService, error) {
	if identityRepo == nil || profileRepo == nil || linkRepo == nil || auditRepo == nil || roomRepo == nil {
		return nil, fmt.Errorf("all graph repositories are required")
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &GraphService{
		identityRepo: identityRepo,
		profileRepo:  profileRepo,
		linkRepo:     linkRepo,
		auditRepo:    auditRepo,
		roomRepo:     roomRepo,
		cacheRepo:    cacheRepo,
		matchingCfg:  bonuses,
		cacheTTL:     cacheTTL,
	}, nil
}

// UpsertProfile records an observation of a platform user: creates the
// profile on first sight, otherwise updates mutable attributes and
// counters. Idempotent on the (platform, platformUserID) key.
func (s *GraphService) UpsertProfile(platform, platformUserID string, attrs ProfileAttrs) (*entity.PlatformProfile, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	platformUserID = strings.TrimSpace(platformUserID)
	if platform == "" || platformUserID == "" {
		return nil, fmt.Errorf("%w: platform and platform user id are required", apperrors.ErrValidation)
	}

	profile := &entity.PlatformProfile{
		Platform:         platform,
		PlatformUserID:   platformUserID,
		Username:         strings.TrimSpace(attrs.Username),
		DisplayName:      strings.TrimSpace(attrs.DisplayName),
		AvatarURL:        attrs.AvatarURL,
		Bio:              attrs.Bio,
		PlatformVerified: attrs.PlatformVerified,
		RawPayload:       attrs.RawPayload,
	}
	if err := s.profileRepo.Upsert(profile); err != nil {
		return nil, fmt.Errorf("failed to upsert profile %s/%s: %w", platform, platformUserID, err)
	}
	s.invalidateResolve(platform, platformUserID)
	return profile, nil
}

// Resolve returns the profile, its identity and all linked profiles.
// Results are cached briefly; any write through this service invalidates
// the affected keys.
func (s *GraphService) Resolve(platform, platformUserID string) (*Resolution, error) {
	key := resolveCacheKey(platform, platformUserID)
	if s.cacheRepo != nil {
		var cached Resolution
		if err := s.cacheRepo.GetJSON(key, &cached); err == nil {
			return &cached, nil
		}
	}

	profile, err := s.profileRepo.GetByPlatformUser(platform, platformUserID)
	if err != nil {
		return nil, err
	}

	resolution := &Resolution{Profile: profile, LinkedProfiles: []entity.PlatformProfile{}}
	if profile.IdentityID != nil {
		identity, err := s.identityRepo.GetByID(*profile.IdentityID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			resolution.Identity = identity
			resolution.Confidence = identity.ConfidenceScore
			linked, err := s.profileRepo.GetByIdentityID(identity.ID)
			if err != nil {
				return nil, err
			}
			resolution.LinkedProfiles = linked
		}
	}

	links, err := s.linkRepo.GetByProfile(profile.ID)
	if err != nil {
		return nil, err
	}
	resolution.Links = links

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(key, resolution, s.cacheTTL); err != nil {
			log.Printf("[GraphService.Resolve] cache write failed for %s: %v", key, err)
		}
	}
	return resolution, nil
}

// EnsureIdentity returns the profile's identity, creating one seeded from
// the profile when it has none. Concurrent calls for the same profile
// resolve to a single identity: the conditional assignment decides the
// winner and the loser's identity record is discarded.
func (s *GraphService) EnsureIdentity(profile *entity.PlatformProfile) (*entity.Identity, error) {
	if profile.IdentityID != nil {
		return s.identityRepo.GetByID(*profile.IdentityID)
	}

	identity := &entity.Identity{
		MasterID:        uuid.NewString(),
		PrimaryPlatform: profile.Platform,
		DisplayName:     firstNonEmpty(profile.DisplayName, profile.Username),
		AvatarURL:       profile.AvatarURL,
		FirstSeen:       profile.FirstSeen,
		LastSeen:        profile.LastSeen,
	}
	if err := s.identityRepo.Create(identity); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	won, err := s.profileRepo.AssignIdentityIfUnowned(profile.ID, identity.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent caller attached an identity first; ours owns
		// nothing and is dropped.
		if err := s.identityRepo.Delete(identity.ID); err != nil {
			log.Printf("[GraphService.EnsureIdentity] failed to discard orphan identity #%d: %v", identity.ID, err)
		}
		current, err := s.profileRepo.GetByID(profile.ID)
		if err != nil {
			return nil, err
		}
		if current.IdentityID == nil {
			return nil, fmt.Errorf("%w: profile #%d lost identity assignment twice", apperrors.ErrConflict, profile.ID)
		}
		profile.IdentityID = current.IdentityID
		return s.identityRepo.GetByID(*current.IdentityID)
	}

	profile.IdentityID = &identity.ID
	s.invalidateResolve(profile.Platform, profile.PlatformUserID)
	return identity, nil
}

// RecordLink creates or strengthens the unique edge for the unordered
// profile pair. Re-detection of an existing pending link by a second
// signal raises its confidence by that signal's corroboration bonus;
// re-detection by the same signal keeps the higher confidence. Confirmed
// and rejected links are never weakened or overridden here.
func (s *GraphService) RecordLink(source, target *entity.PlatformProfile, linkType string, confidence float64, evidence entity.JSONMap, status string) (*entity.IdentityLink, error) {
	if source.ID == target.ID {
		return nil, fmt.Errorf("%w: cannot link a profile to itself", apperrors.ErrValidation)
	}

	existing, err := s.linkRepo.GetByPair(source.ID, target.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		link := &entity.IdentityLink{
			LinkType:   linkType,
			Confidence: clampConfidence(confidence),
			Evidence:   evidence,
			Status:     status,
		}
		link.SetPair(source.ID, target.ID)
		createErr := s.linkRepo.Create(link)
		if createErr == nil {
			return link, nil
		}
		if !errors.Is(createErr, repository.ErrLinkPairExists) {
			return nil, createErr
		}
		// Lost the race; fall through to strengthen.
		existing, err = s.linkRepo.GetByPair(source.ID, target.ID)
	}
	if err != nil {
		return nil, err
	}

	if existing.Status != entity.LinkStatusPending {
		return existing, nil
	}

	strengthened := existing.Confidence
	strongerType := existing.LinkType
	if linkType == existing.LinkType {
		if confidence > strengthened {
			strengthened = confidence
		}
	} else {
		strengthened += s.bonusForLinkType(linkType)
		if confidence > existing.Confidence {
			strongerType = linkType
		}
	}
	strengthened = clampConfidence(strengthened)

	merged := mergeEvidence(existing.Evidence, evidence)
	rows, err := s.linkRepo.StrengthenPending(existing.ID, strengthened, strongerType, merged)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Confirmed or rejected concurrently; the stored state wins.
		return s.linkRepo.GetByPair(source.ID, target.ID)
	}
	existing.Confidence = strengthened
	existing.LinkType = strongerType
	existing.Evidence = merged
	return existing, nil
}

// RecordRoomPresence stores room co-occurrence evidence for the social
// overlap signal.
func (s *GraphService) RecordRoomPresence(platform, roomKey, communityKey string, profileID uint) error {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" || roomKey == "" || profileID == 0 {
		return fmt.Errorf("%w: platform, room key and profile id are required", apperrors.ErrValidation)
	}
	if communityKey == "" {
		communityKey = roomKey
	}
	return s.roomRepo.UpsertPresence(&entity.RoomParticipant{
		Platform:     platform,
		RoomKey:      roomKey,
		CommunityKey: communityKey,
		ProfileID:    profileID,
		LastActive:   time.Now(),
	})
}

// Search matches identities and profiles on username/display name and
// groups profile hits under their owning identities.
func (s *GraphService) Search(term string, limit int) ([]SearchGroup, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty search term", apperrors.ErrValidation)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	profiles, err := s.profileRepo.Search(term, limit)
	if err != nil {
		return nil, err
	}
	identities, err := s.identityRepo.SearchByDisplayName(term, limit)
	if err != nil {
		return nil, err
	}

	groups := make([]SearchGroup, 0, len(identities))
	byIdentity := make(map[uint]*SearchGroup)
	for i := range identities {
		identity := identities[i]
		groups = append(groups, SearchGroup{Identity: &identity, Profiles: []entity.PlatformProfile{}})
		byIdentity[identity.ID] = &groups[len(groups)-1]
	}

	for _, profile := range profiles {
		if profile.IdentityID != nil {
			if group, ok := byIdentity[*profile.IdentityID]; ok {
				group.Profiles = append(group.Profiles, profile)
				continue
			}
			identity, err := s.identityRepo.GetByID(*profile.IdentityID)
			if err == nil {
				groups = append(groups, SearchGroup{Identity: identity, Profiles: []entity.PlatformProfile{profile}})
				byIdentity[identity.ID] = &groups[len(groups)-1]
				continue
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
		}
		groups = append(groups, SearchGroup{Profiles: []entity.PlatformProfile{profile}})
	}
	return groups, nil
}

// AuditTrail returns the newest audit entries for an identity.
func (s *GraphService) AuditTrail(identityID uint, limit int) ([]entity.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.auditRepo.GetByIdentity(identityID, limit)
}

// AuditRange returns audit entries in [from, to) for export.
func (s *GraphService) AuditRange(from, to time.Time, limit int) ([]entity.AuditLogEntry, error) {
	if limit <= 0 || limit > 50000 {
		limit = 10000
	}
	return s.auditRepo.ListRange(from, to, limit)
}

// InvalidateResolve drops the cached resolution for a platform user.
func (s *GraphService) InvalidateResolve(platform, platformUserID string) {
	s.invalidateResolve(platform, platformUserID)
}

func (s *GraphService) invalidateResolve(platform, platformUserID string) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(resolveCacheKey(platform, platformUserID)); err != nil {
		log.Printf("[GraphService] cache invalidation failed for %s/%s: %v", platform, platformUserID, err)
	}
}

func (s *GraphService) bonusForLinkType(linkType string) float64 {
	switch linkType {
	case entity.LinkTypeAutoTemporal:
		return s.matchingCfg.Temporal
	case entity.LinkTypeAutoSocial:
		return s.matchingCfg.Social
	case entity.LinkTypeAutoUsername:
		return s.matchingCfg.Username
	default:
		return 0
	}
}

func resolveCacheKey(platform, platformUserID string) string {
	return "resolve:" + strings.ToLower(platform) + ":" + platformUserID
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func mergeEvidence(older, newer entity.JSONMap) entity.JSONMap {
	merged := entity.JSONMap{}
	for k, v := range older {
		merged[k] = v
	}
	for k, v := range newer {
		merged[k] = v
	}
	return merged
}
