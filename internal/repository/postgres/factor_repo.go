package postgres

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// FactorRepo implements repository.FactorRepository.
type FactorRepo struct {
	db *gorm.DB
}

// NewFactorRepo creates a new confidence factor repository.
func NewFactorRepo(db *gorm.DB) *FactorRepo {
	return &FactorRepo{db: db}
}

// Upsert creates or overwrites the factor for its (identity, factor_type)
// key in a single conditional write.
func (r *FactorRepo) Upsert(factor *entity.ConfidenceFactor) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_id"}, {Name: "factor_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "evidence", "updated_at"}),
	}).Create(factor).Error
	if err != nil {
		return fmt.Errorf("failed to upsert confidence factor: %w", err)
	}
	return nil
}

// GetByIdentity returns every factor contributing to the identity's aggregate.
func (r *FactorRepo) GetByIdentity(identityID uint) ([]entity.ConfidenceFactor, error) {
	var factors []entity.ConfidenceFactor
	err := r.db.Where("identity_id = ?", identityID).Order("factor_type").Find(&factors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get factors by identity: %w", err)
	}
	return factors, nil
}

// RecomputeAggregate recalculates the identity's confidence_score as the
// mean of its current factors and persists it in one statement.
func (r *FactorRepo) RecomputeAggregate(identityID uint) (float64, error) {
	if err := recomputeAggregateTx(r.db, identityID); err != nil {
		return 0, err
	}

	var aggregate float64
	err := r.db.Model(&entity.Identity{}).
		Where("id = ?", identityID).
		Pluck("confidence_score", &aggregate).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read aggregate for identity #%d: %w", identityID, err)
	}
	return aggregate, nil
}
