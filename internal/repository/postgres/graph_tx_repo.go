package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
	"github.com/anubis-chat/identity-graph/internal/domain/repository"
	apperrors "github.com/anubis-chat/identity-graph/internal/pkg/errors"
)

// GraphTxRepo implements repository.GraphTxRepository. Every operation
// runs inside one transaction; conditional writes decide races, so exactly
// one of N concurrent invocations wins each state transition.
type GraphTxRepo struct {
	db *gorm.DB
}

// NewGraphTxRepo creates the transactional graph store.
func NewGraphTxRepo(db *gorm.DB) *GraphTxRepo {
	return &GraphTxRepo{db: db}
}

// ConfirmVerification claims the link request and applies the verified link.
func (r *GraphTxRepo) ConfirmVerification(params repository.ConfirmVerificationParams) (*repository.ConfirmVerificationResult, error) {
	var result repository.ConfirmVerificationResult

	err := r.db.Transaction(func(tx *gorm.DB) error {
		// The status+deadline guard is the single-use guarantee: among N
		// concurrent calls exactly one update affects a row.
		claim := tx.Model(&entity.LinkRequest{}).
			Where("id = ? AND status = ? AND expires_at > ?",
				params.RequestID, entity.LinkRequestStatusPending, params.Now).
			Updates(map[string]interface{}{
				"status":      entity.LinkRequestStatusVerified,
				"verified_at": params.Now,
				"updated_at":  params.Now,
			})
		if claim.Error != nil {
			return fmt.Errorf("failed to claim link request #%d: %w", params.RequestID, claim.Error)
		}
		if claim.RowsAffected == 0 {
			return r.classifyClaimFailure(tx, params)
		}

		var request entity.LinkRequest
		if err := tx.First(&request, params.RequestID).Error; err != nil {
			return err
		}

		if err := upsertProfileTx(tx, params.TargetProfile, params.Now); err != nil {
			return fmt.Errorf("failed to upsert target profile: %w", err)
		}
		target := params.TargetProfile

		// The requester's identity was created at request time; the guard
		// here only covers a profile that was unlinked in between.
		if err := tx.Model(&entity.PlatformProfile{}).
			Where("id = ? AND identity_id IS NULL", request.RequesterProfileID).
			Update("identity_id", request.IdentityID).Error; err != nil {
			return err
		}

		if target.IdentityID != nil && *target.IdentityID != request.IdentityID {
			return fmt.Errorf("%w: target profile already belongs to identity #%d",
				apperrors.ErrConflict, *target.IdentityID)
		}
		if target.IdentityID == nil {
			if err := tx.Model(&entity.PlatformProfile{}).
				Where("id = ?", target.ID).
				Update("identity_id", request.IdentityID).Error; err != nil {
				return err
			}
			identityID := request.IdentityID
			target.IdentityID = &identityID
		}

		link, err := r.recordVerifiedLink(tx, &request, target, params)
		if err != nil {
			return err
		}

		factor := &entity.ConfidenceFactor{
			IdentityID: request.IdentityID,
			FactorType: entity.FactorManualVerification,
			Value:      100,
			Evidence: entity.JSONMap{
				"target_platform": request.TargetPlatform,
				"verified_at":     params.Now,
			},
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}, {Name: "factor_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "evidence", "updated_at"}),
		}).Create(factor).Error; err != nil {
			return fmt.Errorf("failed to upsert verification factor: %w", err)
		}
		if err := recomputeAggregateTx(tx, request.IdentityID); err != nil {
			return err
		}

		if err := tx.Model(&entity.Identity{}).
			Where("id = ?", request.IdentityID).
			Updates(map[string]interface{}{"verified": true, "last_seen": params.Now, "updated_at": params.Now}).Error; err != nil {
			return err
		}

		// Audit shares the transaction: if this insert fails, the whole
		// verification rolls back.
		params.Audit.CreatedAt = params.Now
		if params.Audit.ActorProfileID == nil {
			actorID := target.ID
			params.Audit.ActorProfileID = &actorID
		}
		if params.Audit.IdentityID == nil {
			identityID := request.IdentityID
			params.Audit.IdentityID = &identityID
		}
		if err := tx.Create(params.Audit).Error; err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		result.Request = &request
		result.Target = target
		result.Link = link
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// classifyClaimFailure decides why a claim lost: consumed, expired, or gone.
func (r *GraphTxRepo) classifyClaimFailure(tx *gorm.DB, params repository.ConfirmVerificationParams) error {
	var request entity.LinkRequest
	err := tx.First(&request, params.RequestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}
	switch {
	case request.Status == entity.LinkRequestStatusExpired:
		return fmt.Errorf("%w: link request to %s created %s",
			apperrors.ErrExpired, request.TargetPlatform, request.CreatedAt.Format("2006-01-02 15:04:05"))
	case request.Status == entity.LinkRequestStatusPending && request.IsExpired(params.Now):
		// Lazy expiry: the caller transitions the request outside this
		// rolled-back transaction.
		return fmt.Errorf("%w: link request to %s created %s",
			apperrors.ErrExpired, request.TargetPlatform, request.CreatedAt.Format("2006-01-02 15:04:05"))
	default:
		return fmt.Errorf("%w: link request already %s", apperrors.ErrConflict, request.Status)
	}
}

// verificationEvidence overlays code-verification provenance on whatever
// auto-signal evidence the link already carries, so a confirmed link keeps
// the scan history that first proposed it.
func verificationEvidence(existing entity.JSONMap, targetPlatform string) entity.JSONMap {
	merged := entity.JSONMap{}
	for k, v := range existing {
		merged[k] = v
	}
	merged["method"] = "verification_code"
	merged["target_platform"] = targetPlatform
	return merged
}

// recordVerifiedLink creates or overrides the unique pair edge as a
// confirmed manual link at confidence 100.
func (r *GraphTxRepo) recordVerifiedLink(tx *gorm.DB, request *entity.LinkRequest, target *entity.PlatformProfile, params repository.ConfirmVerificationParams) (*entity.IdentityLink, error) {
	low, high := entity.NormalizePair(request.RequesterProfileID, target.ID)

	var link entity.IdentityLink
	err := tx.Where("profile_low_id = ? AND profile_high_id = ?", low, high).First(&link).Error
	switch {
	case err == nil:
		verifierID := target.ID
		updates := map[string]interface{}{
			"link_type":   entity.LinkTypeManual,
			"confidence":  float64(100),
			"status":      entity.LinkStatusConfirmed,
			"evidence":    verificationEvidence(link.Evidence, request.TargetPlatform),
			"verified_by": verifierID,
			"verified_at": params.Now,
			"updated_at":  params.Now,
		}
		if err := tx.Model(&link).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to confirm existing link: %w", err)
		}
		return &link, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		verifierID := target.ID
		verifiedAt := params.Now
		link = entity.IdentityLink{
			LinkType:   entity.LinkTypeManual,
			Confidence: 100,
			Status:     entity.LinkStatusConfirmed,
			Evidence:   verificationEvidence(nil, request.TargetPlatform),
			VerifiedBy: &verifierID,
			VerifiedAt: &verifiedAt,
		}
		link.SetPair(request.RequesterProfileID, target.ID)
		if err := tx.Create(&link).Error; err != nil {
			return nil, fmt.Errorf("failed to create verified link: %w", err)
		}
		return &link, nil
	default:
		return nil, err
	}
}

// MergeIdentities absorbs mergeAwayID into keepID atomically.
func (r *GraphTxRepo) MergeIdentities(keepID, mergeAwayID uint, audit *entity.AuditLogEntry) error {
	if keepID == mergeAwayID {
		return fmt.Errorf("%w: cannot merge an identity into itself", apperrors.ErrValidation)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var keep, away entity.Identity
		// Lock in ID order so two opposing merges cannot deadlock.
		firstID, secondID := keepID, mergeAwayID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		for _, id := range []uint{firstID, secondID} {
			var locked entity.Identity
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, id).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: identity #%d", apperrors.ErrNotFound, id)
				}
				return err
			}
			if id == keepID {
				keep = locked
			} else {
				away = locked
			}
		}

		if err := tx.Model(&entity.PlatformProfile{}).
			Where("identity_id = ?", away.ID).
			Update("identity_id", keep.ID).Error; err != nil {
			return fmt.Errorf("failed to reassign profiles: %w", err)
		}

		// Move factors onto keep; last write wins per (identity, type),
		// recomputation below restores the aggregate either way.
		if err := tx.Exec(
			`INSERT INTO confidence_factors (identity_id, factor_type, value, evidence, created_at, updated_at)
			 SELECT ?, factor_type, value, evidence, created_at, NOW()
			   FROM confidence_factors WHERE identity_id = ?
			 ON CONFLICT (identity_id, factor_type)
			 DO UPDATE SET value = EXCLUDED.value, evidence = EXCLUDED.evidence, updated_at = NOW()`,
			keep.ID, away.ID,
		).Error; err != nil {
			return fmt.Errorf("failed to move confidence factors: %w", err)
		}
		if err := tx.Where("identity_id = ?", away.ID).
			Delete(&entity.ConfidenceFactor{}).Error; err != nil {
			return fmt.Errorf("failed to clear absorbed factors: %w", err)
		}
		if err := recomputeAggregateTx(tx, keep.ID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"verified": keep.Verified || away.Verified,
		}
		if away.FirstSeen.Before(keep.FirstSeen) {
			updates["first_seen"] = away.FirstSeen
		}
		if away.LastSeen.After(keep.LastSeen) {
			updates["last_seen"] = away.LastSeen
		}
		if keep.DisplayName == "" && away.DisplayName != "" {
			updates["display_name"] = away.DisplayName
		}
		if err := tx.Model(&entity.Identity{}).
			Where("id = ?", keep.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if audit.IdentityID == nil {
			keepRef := keep.ID
			audit.IdentityID = &keepRef
		}
		if err := tx.Create(audit).Error; err != nil {
			return fmt.Errorf("failed to append merge audit entry: %w", err)
		}

		if err := tx.Delete(&entity.Identity{}, away.ID).Error; err != nil {
			return fmt.Errorf("failed to delete absorbed identity: %w", err)
		}
		return nil
	})
}

// UnlinkProfile detaches the profile into the given fresh identity.
func (r *GraphTxRepo) UnlinkProfile(profileID uint, newIdentity *entity.Identity, audit *entity.AuditLogEntry) (int64, error) {
	var removed int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var profile entity.PlatformProfile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&profile, profileID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		result := tx.Where("source_profile_id = ? OR target_profile_id = ?", profileID, profileID).
			Delete(&entity.IdentityLink{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove links: %w", result.Error)
		}
		removed = result.RowsAffected

		if err := tx.Create(newIdentity).Error; err != nil {
			return fmt.Errorf("failed to create detached identity: %w", err)
		}
		if err := tx.Model(&entity.PlatformProfile{}).
			Where("id = ?", profileID).
			Update("identity_id", newIdentity.ID).Error; err != nil {
			return fmt.Errorf("failed to reassign profile: %w", err)
		}

		// Audited against the original identity so its history shows the
		// departure; nil when the profile was standalone.
		audit.IdentityID = profile.IdentityID
		if err := tx.Create(audit).Error; err != nil {
			return fmt.Errorf("failed to append split audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// recomputeAggregateTx recalculates an identity's aggregate confidence
// inside an open transaction.
func recomputeAggregateTx(tx *gorm.DB, identityID uint) error {
	err := tx.Exec(
		`UPDATE identities
		    SET confidence_score = COALESCE(
		            (SELECT AVG(value) FROM confidence_factors WHERE identity_id = ?), 0),
		        updated_at = NOW()
		  WHERE id = ?`,
		identityID, identityID,
	).Error
	if err != nil {
		return fmt.Errorf("failed to recompute aggregate for identity #%d: %w", identityID, err)
	}
	return nil
}
