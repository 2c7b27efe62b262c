package entity

import "time"

// ActivityBucketCount is the size of the hour-of-week activity histogram:
// 7 days x 24 hours. Message observations increment one bucket; the
// temporal correlation signal compares two profiles' histograms.
const ActivityBucketCount = 168

// PlatformProfile represents a user as seen on one specific platform.
// Exactly one row exists per (platform, platform_user_id) pair. A profile
// optionally belongs to one Identity.
type PlatformProfile struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	IdentityID       *uint    `gorm:"index" json:"identity_id,omitempty"`
	Platform         string   `gorm:"size:32;not null;uniqueIndex:idx_profiles_platform_user,priority:1" json:"platform"`
	PlatformUserID   string   `gorm:"size:128;not null;uniqueIndex:idx_profiles_platform_user,priority:2" json:"platform_user_id"`
	Username         string   `gorm:"size:100;not null;default:'';index" json:"username"`
	DisplayName      string   `gorm:"size:100;not null;default:''" json:"display_name"`
	AvatarURL        string   `gorm:"size:255;not null;default:''" json:"avatar_url,omitempty"`
	Bio              string   `gorm:"size:500;not null;default:''" json:"bio,omitempty"`
	PlatformVerified bool     `gorm:"not null;default:false" json:"platform_verified"`
	RawPayload       JSONMap  `gorm:"type:jsonb;not null;default:'{}'" json:"-"` // opaque platform data, interpreted only by adapters
	MessageCount     int64    `gorm:"not null;default:0" json:"message_count"`
	ActivityBuckets  IntArray `gorm:"type:jsonb;not null;default:'[]'" json:"-"`

	FirstSeen time.Time `gorm:"not null" json:"first_seen"`
	LastSeen  time.Time `gorm:"not null;index" json:"last_seen"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM.
func (PlatformProfile) TableName() string {
	return "platform_profiles"
}

// ActivityBucketIndex maps an observation time to its hour-of-week bucket.
func ActivityBucketIndex(t time.Time) int {
	return int(t.UTC().Weekday())*24 + t.UTC().Hour()
}

// RecordActivity increments the histogram bucket for the given observation
// time, growing the histogram to full size on first use.
func (p *PlatformProfile) RecordActivity(t time.Time) {
	if len(p.ActivityBuckets) < ActivityBucketCount {
		buckets := make(IntArray, ActivityBucketCount)
		copy(buckets, p.ActivityBuckets)
		p.ActivityBuckets = buckets
	}
	p.ActivityBuckets[ActivityBucketIndex(t)]++
}
