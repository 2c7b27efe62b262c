package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// IdentityRepo implements repository.IdentityRepository.
type IdentityRepo struct {
	db *gorm.DB
}

// NewIdentityRepo creates a new identity repository.
func NewIdentityRepo(db *gorm.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

// Create inserts a new identity.
func (r *IdentityRepo) Create(identity *entity.Identity) error {
	return r.db.Create(identity).Error
}

// GetByID returns the identity with the given ID.
func (r *IdentityRepo) GetByID(id uint) (*entity.Identity, error) {
	var identity entity.Identity
	err := r.db.First(&identity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// GetByMasterID returns the identity with the given master UUID.
func (r *IdentityRepo) GetByMasterID(masterID string) (*entity.Identity, error) {
	var identity entity.Identity
	err := r.db.Where("master_id = ?", masterID).First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity by master_id: %w", err)
	}
	return &identity, nil
}

// Update saves the full identity record.
func (r *IdentityRepo) Update(identity *entity.Identity) error {
	return r.db.Save(identity).Error
}

// UpdateFields patches the given columns without a full save.
func (r *IdentityRepo) UpdateFields(id uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.Model(&entity.Identity{}).Where("id = ?", id).Updates(updates).Error
}

// Delete removes an identity record.
func (r *IdentityRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Identity{}, id).Error
}

// SearchByDisplayName fuzzily matches display names using pg_trgm,
// best matches first.
func (r *IdentityRepo) SearchByDisplayName(term string, limit int) ([]entity.Identity, error) {
	var identities []entity.Identity
	err := r.db.
		Select("*, similarity(display_name, ?) AS sim", term).
		Where("display_name % ? OR display_name ILIKE ?", term, "%"+term+"%").
		Order("sim DESC").
		Limit(limit).
		Find(&identities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search identities: %w", err)
	}
	return identities, nil
}
