package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// ProfileRepo implements repository.ProfileRepository.
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo creates a new platform profile repository.
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Upsert creates the profile on first sight or updates its mutable
// attributes. Concurrent upserts for the same (platform, platform_user_id)
// serialize on the row lock; a lost create race is retried as an update, so
// the caller never observes a duplicate-key error.
func (r *ProfileRepo) Upsert(profile *entity.PlatformProfile) error {
	now := time.Now()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return upsertProfileTx(tx, profile, now)
	})
	if err != nil && isUniqueViolation(err) {
		// Lost the first-sight race; the row exists now.
		return r.db.Transaction(func(tx *gorm.DB) error {
			return updateProfileTx(tx, profile, now)
		})
	}
	return err
}

// upsertProfileTx applies the idempotent profile upsert inside an open
// transaction, so that verification can reuse it atomically.
func upsertProfileTx(tx *gorm.DB, profile *entity.PlatformProfile, now time.Time) error {
	err := updateProfileTx(tx, profile, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile.MessageCount = 1
		profile.FirstSeen = now
		profile.LastSeen = now
		profile.RecordActivity(now)
		return tx.Create(profile).Error
	}
	return err
}

// updateProfileTx locks and updates an existing profile row.
func updateProfileTx(tx *gorm.DB, profile *entity.PlatformProfile, now time.Time) error {
	var existing entity.PlatformProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("platform = ? AND platform_user_id = ?", profile.Platform, profile.PlatformUserID).
		First(&existing).Error
	if err != nil {
		return err
	}
	mergeMutableAttrs(&existing, profile)
	existing.MessageCount++
	existing.RecordActivity(now)
	existing.LastSeen = now
	if err := tx.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	*profile = existing
	return nil
}

// mergeMutableAttrs copies caller-provided mutable attributes onto the
// stored row. Empty values never wipe existing data.
func mergeMutableAttrs(dst, src *entity.PlatformProfile) {
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.DisplayName != "" {
		dst.DisplayName = src.DisplayName
	}
	if src.AvatarURL != "" {
		dst.AvatarURL = src.AvatarURL
	}
	if src.Bio != "" {
		dst.Bio = src.Bio
	}
	if src.PlatformVerified {
		dst.PlatformVerified = true
	}
	if len(src.RawPayload) > 0 {
		dst.RawPayload = src.RawPayload
	}
}

// GetByID returns the profile with the given ID.
func (r *ProfileRepo) GetByID(id uint) (*entity.PlatformProfile, error) {
	var profile entity.PlatformProfile
	err := r.db.First(&profile, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetByPlatformUser returns the profile for a (platform, platform_user_id) pair.
func (r *ProfileRepo) GetByPlatformUser(platform, platformUserID string) (*entity.PlatformProfile, error) {
	var profile entity.PlatformProfile
	err := r.db.
		Where("platform = ? AND platform_user_id = ?", platform, platformUserID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by platform user: %w", err)
	}
	return &profile, nil
}

// GetByIdentityID returns every profile currently owned by the identity.
func (r *ProfileRepo) GetByIdentityID(identityID uint) ([]entity.PlatformProfile, error) {
	var profiles []entity.PlatformProfile
	err := r.db.Where("identity_id = ?", identityID).Order("id").Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles by identity: %w", err)
	}
	return profiles, nil
}

// AssignIdentityIfUnowned attaches the profile to an identity only if it
// has none yet. The identity_id IS NULL guard makes concurrent identity
// creation race-safe: exactly one writer wins.
func (r *ProfileRepo) AssignIdentityIfUnowned(profileID, identityID uint) (bool, error) {
	result := r.db.Model(&entity.PlatformProfile{}).
		Where("id = ? AND identity_id IS NULL", profileID).
		Updates(map[string]interface{}{"identity_id": identityID, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindUsernameCandidates returns profiles on other platforms whose username
// is trigram-similar to, or contains / is contained by, the given username.
// The trigram index keeps this tractable at scale; exact scoring happens in
// the matching engine.
func (r *ProfileRepo) FindUsernameCandidates(platform, username string, limit int) ([]entity.PlatformProfile, error) {
	var profiles []entity.PlatformProfile
	err := r.db.
		Select("*, similarity(username, ?) AS sim", username).
		Where("platform <> ? AND username <> '' AND (username % ? OR POSITION(LOWER(?) IN LOWER(username)) > 0 OR POSITION(LOWER(username) IN LOWER(?)) > 0)",
			platform, username, username, username).
		Order("sim DESC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find username candidates: %w", err)
	}
	return profiles, nil
}

// ListActiveOnOtherPlatforms returns recently active profiles outside the
// given platform for the temporal correlation scan.
func (r *ProfileRepo) ListActiveOnOtherPlatforms(platform string, limit int) ([]entity.PlatformProfile, error) {
	var profiles []entity.PlatformProfile
	err := r.db.
		Where("platform <> ?", platform).
		Order("last_seen DESC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles on other platforms: %w", err)
	}
	return profiles, nil
}

// Search fuzzily matches username and display name, best matches first.
func (r *ProfileRepo) Search(term string, limit int) ([]entity.PlatformProfile, error) {
	var profiles []entity.PlatformProfile
	err := r.db.
		Select("*, GREATEST(similarity(username, ?), similarity(display_name, ?)) AS sim", term, term).
		Where("username % ? OR display_name % ? OR username ILIKE ? OR display_name ILIKE ?",
			term, term, "%"+term+"%", "%"+term+"%").
		Order("sim DESC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	return profiles, nil
}
