package entity

import "time"

// Identity represents a hypothesized real-world person uniting one or more
// platform profiles. MasterID is a UUID that survives merges: when two
// identities merge, the surviving record keeps its MasterID and the absorbed
// record is deleted.
type Identity struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MasterID        string    `gorm:"size:36;not null;uniqueIndex" json:"master_id"`
	PrimaryPlatform string    `gorm:"size:32;not null;default:''" json:"primary_platform,omitempty"`
	DisplayName     string    `gorm:"size:100;not null;default:''" json:"display_name"`
	AvatarURL       string    `gorm:"size:255;not null;default:''" json:"avatar_url,omitempty"`
	Verified        bool      `gorm:"not null;default:false" json:"verified"`
	ConfidenceScore float64   `gorm:"not null;default:0" json:"confidence_score"` // 0-100, mean of confidence factors
	FirstSeen       time.Time `gorm:"not null" json:"first_seen"`
	LastSeen        time.Time `gorm:"not null" json:"last_seen"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM.
func (Identity) TableName() string {
	return "identities"
}
