package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// LinkRepo implements repository.LinkRepository.
type LinkRepo struct {
	db *gorm.DB
}

// NewLinkRepo creates a new identity link repository.
func NewLinkRepo(db *gorm.DB) *LinkRepo {
	return &LinkRepo{db: db}
}

// Create inserts a new link. The unique index on the canonical pair turns a
// racing duplicate into repository.ErrLinkPairExists so the caller can
// re-read and strengthen instead.
func (r *LinkRepo) Create(link *entity.IdentityLink) error {
	if link.ProfileLowID == 0 || link.ProfileHighID == 0 {
		link.SetPair(link.SourceProfileID, link.TargetProfileID)
	}
	if err := r.db.Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: profiles %d/%d", repository.ErrLinkPairExists, link.ProfileLowID, link.ProfileHighID)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetByID returns the link with the given ID.
func (r *LinkRepo) GetByID(id uint) (*entity.IdentityLink, error) {
	var link entity.IdentityLink
	err := r.db.First(&link, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// GetByPair looks the link up by unordered pair, in either direction.
func (r *LinkRepo) GetByPair(profileA, profileB uint) (*entity.IdentityLink, error) {
	low, high := entity.NormalizePair(profileA, profileB)
	var link entity.IdentityLink
	err := r.db.
		Where("profile_low_id = ? AND profile_high_id = ?", low, high).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link by pair: %w", err)
	}
	return &link, nil
}

// StrengthenPending updates confidence, type and evidence of a link only
// while it is still pending.
func (r *LinkRepo) StrengthenPending(linkID uint, confidence float64, linkType string, evidence entity.JSONMap) (int64, error) {
	result := r.db.Model(&entity.IdentityLink{}).
		Where("id = ? AND status = ?", linkID, entity.LinkStatusPending).
		Updates(map[string]interface{}{
			"confidence": confidence,
			"link_type":  linkType,
			"evidence":   evidence,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to strengthen link #%d: %w", linkID, result.Error)
	}
	return result.RowsAffected, nil
}

// GetByProfile returns every link touching the profile on either end.
func (r *LinkRepo) GetByProfile(profileID uint) ([]entity.IdentityLink, error) {
	var links []entity.IdentityLink
	err := r.db.
		Where("source_profile_id = ? OR target_profile_id = ?", profileID, profileID).
		Order("id").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get links by profile: %w", err)
	}
	return links, nil
}
