package entity

import "time"

// Link request statuses. Pending is the only non-terminal state.
const (
	LinkRequestStatusPending  = "pending"
	LinkRequestStatusVerified = "verified"
	LinkRequestStatusExpired  = "expired"
	LinkRequestStatusRejected = "rejected"
)

// LinkRequest is an ephemeral user-initiated verification attempt. The code
// itself is never stored: CodeHash holds a deterministic peppered SHA-256 so
// verify calls can look the request up by (target_platform, code_hash)
// without the clear code ever touching the database.
type LinkRequest struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	RequesterProfileID uint       `gorm:"not null;index" json:"requester_profile_id"`
	IdentityID         uint       `gorm:"not null" json:"identity_id"`
	TargetPlatform     string     `gorm:"size:32;not null;uniqueIndex:idx_requests_platform_code,priority:1" json:"target_platform"`
	TargetIdentifier   string     `gorm:"size:128;not null" json:"target_identifier"` // username or platform id, unresolved
	CodeHash           string     `gorm:"size:64;not null;uniqueIndex:idx_requests_platform_code,priority:2" json:"-"`
	Status             string     `gorm:"size:16;not null;default:'pending';index" json:"status"`
	ExpiresAt          time.Time  `gorm:"not null;index" json:"expires_at"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM.
func (LinkRequest) TableName() string {
	return "link_requests"
}

// IsExpired reports whether the request deadline has passed. Expiry is a
// deadline encoded in data; no running timer is involved.
func (r *LinkRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsTerminal reports whether the request reached a final status.
func (r *LinkRequest) IsTerminal() bool {
	return r.Status != LinkRequestStatusPending
}
