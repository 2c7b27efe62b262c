package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// UnlinkResult reports a completed unlink.
type UnlinkResult struct {
	NewIdentityID      uint   `json:"new_identity_id"`
	NewMasterID        string `json:"new_master_id"`
	DetachedProfileID  uint   `json:"detached_profile_id"`
	RemovedLinks       int64  `json:"removed_links"`
	OriginalIdentityID *uint  `json:"original_identity_id,omitempty"`
}

// MergeService performs the reviewer-facing merge and unlink operations on
// the identity graph. Both run inside a single storage transaction; a
// partial merge or split is never observable.
type MergeService struct {
	identityRepo repository.IdentityRepository
	profileRepo  repository.ProfileRepository
	graphTx      repository.GraphTxRepository
	graph        *GraphService
}

// NewMergeService creates the merge/unlink service.
func NewMergeService(
	identityRepo repository.IdentityRepository,
	profileRepo repository.ProfileRepository,
	graphTx repository.GraphTxRepository,
	graph *GraphService,
) (*MergeService, error) {
	if identityRepo == nil || profileRepo == nil || graphTx == nil || graph == nil {
		return nil, fmt.Errorf("repositories and graph service are required")
	}
	return &MergeService{
		identityRepo: identityRepo,
		profileRepo:  profileRepo,
		graphTx:      graphTx,
		graph:        graph,
	}, nil
}

// MergeIdentities absorbs mergeAwayID into keepID: every profile and
// confidence factor moves to keep, an audit entry on keep references the
// absorbed identity, and the empty identity record is deleted. Returns the
// surviving identity id.
func (s *MergeService) MergeIdentities(keepID, mergeAwayID uint, actorProfileID *uint) (uint, error) {
	if keepID == mergeAwayID {
		return 0, fmt.Errorf("%w: cannot merge an identity into itself", apperrors.ErrValidation)
	}

	away, err := s.identityRepo.GetByID(mergeAwayID)
	if err != nil {
		return 0, fmt.Errorf("merge source: %w", err)
	}
	if _, err := s.identityRepo.GetByID(keepID); err != nil {
		return 0, fmt.Errorf("merge target: %w", err)
	}

	// Captured before the merge so the cache entries of reassigned
	// profiles can be dropped afterwards.
	affected, err := s.profileRepo.GetByIdentityID(mergeAwayID)
	if err != nil {
		return 0, err
	}

	audit := &entity.AuditLogEntry{
		Action:         entity.AuditActionMerge,
		ActorProfileID: actorProfileID,
		Details: entity.JSONMap{
			"absorbed_identity_id": away.ID,
			"absorbed_master_id":   away.MasterID,
			"absorbed_profiles":    len(affected),
		},
	}
	if err := s.graphTx.MergeIdentities(keepID, mergeAwayID, audit); err != nil {
		return 0, err
	}

	for _, profile := range affected {
		s.graph.InvalidateResolve(profile.Platform, profile.PlatformUserID)
	}
	if kept, err := s.profileRepo.GetByIdentityID(keepID); err == nil {
		for _, profile := range kept {
			s.graph.InvalidateResolve(profile.Platform, profile.PlatformUserID)
		}
	} else {
		log.Printf("[MergeService.MergeIdentities] cache sweep after merge failed: %v", err)
	}

	return keepID, nil
}

// Unlink detaches the requester identity's profile on targetPlatform into
// a brand-new standalone identity. Every link touching the detached
// profile is removed; re-linking requires matching or verification again.
func (s *MergeService) Unlink(platform, platformUserID, targetPlatform string) (*UnlinkResult, error) {
	targetPlatform = strings.ToLower(strings.TrimSpace(targetPlatform))
	if targetPlatform == "" {
		return nil, fmt.Errorf("%w: target platform is required", apperrors.ErrValidation)
	}

	requester, err := s.profileRepo.GetByPlatformUser(platform, platformUserID)
	if err != nil {
		return nil, err
	}
	if requester.IdentityID == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrProfileUnlinked, platform, platformUserID)
	}

	profiles, err := s.profileRepo.GetByIdentityID(*requester.IdentityID)
	if err != nil {
		return nil, err
	}
	var detach *entity.PlatformProfile
	for i := range profiles {
		if profiles[i].Platform == targetPlatform {
			detach = &profiles[i]
			break
		}
	}
	if detach == nil {
		return nil, fmt.Errorf("%w: identity has no %s profile", apperrors.ErrNotFound, targetPlatform)
	}

	newIdentity := &entity.Identity{
		MasterID:        uuid.NewString(),
		PrimaryPlatform: detach.Platform,
		DisplayName:     firstNonEmpty(detach.DisplayName, detach.Username),
		AvatarURL:       detach.AvatarURL,
		FirstSeen:       detach.FirstSeen,
		LastSeen:        detach.LastSeen,
	}
	audit := &entity.AuditLogEntry{
		Action:         entity.AuditActionSplit,
		ActorProfileID: &requester.ID,
		Details: entity.JSONMap{
			"detached_platform":   detach.Platform,
			"detached_profile_id": detach.ID,
		},
	}

	removed, err := s.graphTx.UnlinkProfile(detach.ID, newIdentity, audit)
	if err != nil {
		return nil, err
	}

	for _, profile := range profiles {
		s.graph.InvalidateResolve(profile.Platform, profile.PlatformUserID)
	}

	return &UnlinkResult{
		NewIdentityID:      newIdentity.ID,
		NewMasterID:        newIdentity.MasterID,
		DetachedProfileID:  detach.ID,
		RemovedLinks:       removed,
		OriginalIdentityID: requester.IdentityID,
	}, nil
}
