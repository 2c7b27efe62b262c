package entity

import "time"

// Factor types mirror the matching signals plus manual verification.
const (
	FactorUsernameSimilarity  = "username_similarity"
	FactorTemporalCorrelation = "temporal_correlation"
	FactorSocialOverlap       = "social_overlap"
	FactorManualVerification  = "manual_verification"
)

// ConfidenceFactor is one named signal's contribution (0-100) to an
// identity's aggregate confidence score. At most one factor exists per
// (identity, factor_type); recomputation overwrites the previous value.
type ConfidenceFactor struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	IdentityID uint    `gorm:"not null;uniqueIndex:idx_factors_identity_type,priority:1" json:"identity_id"`
	FactorType string  `gorm:"size:40;not null;uniqueIndex:idx_factors_identity_type,priority:2" json:"factor_type"`
	Value      float64 `gorm:"not null;default:0" json:"value"` // 0-100
	Evidence   JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"evidence"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM.
func (ConfidenceFactor) TableName() string {
	return "confidence_factors"
}
