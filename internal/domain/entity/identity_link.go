package entity

import "time"

// Link types record which signal (or human action) produced the edge.
const (
	LinkTypeManual       = "manual"
	LinkTypeAutoUsername = "auto_username"
	LinkTypeAutoTemporal = "auto_temporal"
	LinkTypeAutoSocial   = "auto_social"
)

// Link statuses. Automatic detection only ever proposes (pending);
// confirmed is reached through verification or reviewer action.
const (
	LinkStatusPending   = "pending"
	LinkStatusConfirmed = "confirmed"
	LinkStatusRejected  = "rejected"
)

// IdentityLink is an edge between two platform profiles recording why they
// are believed to be the same person. At most one link exists per unordered
// profile pair; ProfileLowID/ProfileHighID hold the canonical ordering that
// the unique index is built on, while SourceProfileID/TargetProfileID keep
// the direction the link was recorded in.
type IdentityLink struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	SourceProfileID uint       `gorm:"not null;index" json:"source_profile_id"`
	TargetProfileID uint       `gorm:"not null;index" json:"target_profile_id"`
	ProfileLowID    uint       `gorm:"not null;uniqueIndex:idx_links_pair,priority:1" json:"-"`
	ProfileHighID   uint       `gorm:"not null;uniqueIndex:idx_links_pair,priority:2" json:"-"`
	LinkType        string     `gorm:"size:20;not null" json:"link_type"`
	Confidence      float64    `gorm:"not null;default:0" json:"confidence"` // 0-100
	Evidence        JSONMap    `gorm:"type:jsonb;not null;default:'{}'" json:"evidence"`
	Status          string     `gorm:"size:16;not null;default:'pending';index" json:"status"`
	VerifiedBy      *uint      `gorm:"index" json:"verified_by,omitempty"` // profile id of the verifier
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM.
func (IdentityLink) TableName() string {
	return "identity_links"
}

// SetPair records the edge direction and derives the canonical unordered key.
func (l *IdentityLink) SetPair(sourceProfileID, targetProfileID uint) {
	l.SourceProfileID = sourceProfileID
	l.TargetProfileID = targetProfileID
	l.ProfileLowID, l.ProfileHighID = NormalizePair(sourceProfileID, targetProfileID)
}

// Touches reports whether the link references the given profile on either end.
func (l *IdentityLink) Touches(profileID uint) bool {
	return l.SourceProfileID == profileID || l.TargetProfileID == profileID
}

// NormalizePair returns the unordered canonical ordering of two profile IDs.
func NormalizePair(a, b uint) (low, high uint) {
	if a <= b {
		return a, b
	}
	return b, a
}
