package repository

import "github.com/anubis-chat/identity-graph/internal/domain/entity"

// FactorRepository stores per-identity confidence factors. At most one
// factor exists per (identity, factor_type); Upsert overwrites in place.
type FactorRepository interface {
	// Upsert creates or overwrites the factor for its (identity, type) key.
	Upsert(factor *entity.ConfidenceFactor) error
	GetByIdentity(identityID uint) ([]entity.ConfidenceFactor, error)
	// RecomputeAggregate recalculates the identity's confidence_score as
	// the mean of its current factors and persists it. Returns the new
	// aggregate (zero when the identity has no factors).
	RecomputeAggregate(identityID uint) (float64, error)
}
