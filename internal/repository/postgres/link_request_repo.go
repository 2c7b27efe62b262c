package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// LinkRequestRepo implements repository.LinkRequestRepository.
type LinkRequestRepo struct {
	db *gorm.DB
}

// NewLinkRequestRepo creates a new link request repository.
func NewLinkRequestRepo(db *gorm.DB) *LinkRequestRepo {
	return &LinkRequestRepo{db: db}
}

// Create inserts a new link request. A (target_platform, code_hash)
// collision surfaces as ErrConflict so the caller can regenerate the code.
func (r *LinkRequestRepo) Create(request *entity.LinkRequest) error {
	if err := r.db.Create(request).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: verification code collision", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

// GetByID returns the request with the given ID.
func (r *LinkRequestRepo) GetByID(id uint) (*entity.LinkRequest, error) {
	var request entity.LinkRequest
	err := r.db.First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// GetByPlatformCode looks a request up by target platform and hashed code.
func (r *LinkRequestRepo) GetByPlatformCode(targetPlatform, codeHash string) (*entity.LinkRequest, error) {
	var request entity.LinkRequest
	err := r.db.
		Where("target_platform = ? AND code_hash = ?", targetPlatform, codeHash).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link request by code: %w", err)
	}
	return &request, nil
}

// MarkExpired transitions pending → expired. The status guard makes the
// transition race-safe: only one writer observes RowsAffected == 1.
func (r *LinkRequestRepo) MarkExpired(id uint) (int64, error) {
	result := r.db.Model(&entity.LinkRequest{}).
		Where("id = ? AND status = ?", id, entity.LinkRequestStatusPending).
		Updates(map[string]interface{}{
			"status":     entity.LinkRequestStatusExpired,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark request #%d expired: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}

// ExpireOverdue bulk-transitions every pending request past its deadline.
// Correctness never depends on this running; verification evaluates expiry
// lazily. This only reclaims storage.
func (r *LinkRequestRepo) ExpireOverdue(now time.Time) (int64, error) {
	result := r.db.Model(&entity.LinkRequest{}).
		Where("status = ? AND expires_at <= ?", entity.LinkRequestStatusPending, now).
		Updates(map[string]interface{}{
			"status":     entity.LinkRequestStatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire overdue requests: %w", result.Error)
	}
	return result.RowsAffected, nil
}
