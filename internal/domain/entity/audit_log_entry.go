package entity

import "time"

// Audit actions recorded for identity-affecting operations.
const (
	AuditActionLinkCreated  = "link_created"
	AuditActionLinkRemoved  = "link_removed"
	AuditActionMerge        = "merge"
	AuditActionSplit        = "split"
	AuditActionVerification = "verification"
)

// AuditLogEntry is an append-only record of an identity-affecting action.
// Entries are never mutated or deleted; the log is the sole reconstruction
// mechanism for how an identity arrived at its current shape.
type AuditLogEntry struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	IdentityID     *uint   `gorm:"index" json:"identity_id,omitempty"`
	Action         string  `gorm:"size:32;not null;index" json:"action"`
	ActorProfileID *uint   `json:"actor_profile_id,omitempty"`
	Details        JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"details"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName defines the table name for GORM.
func (AuditLogEntry) TableName() string {
	return "audit_log"
}
