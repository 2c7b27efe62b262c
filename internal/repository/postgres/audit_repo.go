package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// AuditRepo implements repository.AuditRepository. The audit log is
// append-only; no update or delete path exists.
type AuditRepo struct {
	db *gorm.DB
}

// NewAuditRepo creates a new audit log repository.
func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Append inserts an audit entry. A failed insert must fail the enclosing
// operation; callers inside transactions rely on that.
func (r *AuditRepo) Append(entry *entity.AuditLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// GetByIdentity returns the newest entries for an identity.
func (r *AuditRepo) GetByIdentity(identityID uint, limit int) ([]entity.AuditLogEntry, error) {
	var entries []entity.AuditLogEntry
	err := r.db.
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	return entries, nil
}

// ListRange returns entries in [from, to) for export, oldest first.
func (r *AuditRepo) ListRange(from, to time.Time, limit int) ([]entity.AuditLogEntry, error) {
	var entries []entity.AuditLogEntry
	err := r.db.
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
