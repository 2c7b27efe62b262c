package repository

import (
	"time"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// ConfirmVerificationParams carries everything needed to apply a successful
// code verification in one transaction.
type ConfirmVerificationParams struct {
	RequestID uint
	Now       time.Time
	// TargetProfile holds the attributes of the profile submitting the
	// code; it is upserted inside the transaction and populated with the
	// stored row on return.
	TargetProfile *entity.PlatformProfile
	// Audit is appended inside the same transaction; a failed audit write
	// rolls the whole confirmation back.
	Audit *entity.AuditLogEntry
}

// ConfirmVerificationResult reports the outcome of a confirmed verification.
type ConfirmVerificationResult struct {
	Request *entity.LinkRequest
	Target  *entity.PlatformProfile
	Link    *entity.IdentityLink
}

// GraphTxRepository runs the multi-entity graph mutations that must be
// atomic: a partial merge, unlink or verification must never be observable.
// Implementations wrap each operation in a single storage transaction with
// conditional writes so that concurrent invocations serialize and exactly
// one wins any state transition.
type GraphTxRepository interface {
	// ConfirmVerification claims the pending, unexpired link request
	// (status pending → verified), upserts the target profile, assigns it
	// the request's identity, records the confirmed manual link at
	// confidence 100 and appends the audit entry. Returns ErrExpired when
	// the deadline passed (transitioning the request to expired first) and
	// ErrConflict when a concurrent call already consumed the code.
	ConfirmVerification(params ConfirmVerificationParams) (*ConfirmVerificationResult, error)

	// MergeIdentities reassigns every profile and confidence factor owned
	// by mergeAwayID onto keepID, recomputes keep's aggregate, appends the
	// audit entry and deletes the absorbed identity record.
	MergeIdentities(keepID, mergeAwayID uint, audit *entity.AuditLogEntry) error

	// UnlinkProfile removes every link touching the profile, creates the
	// given fresh identity, reassigns the profile to it and appends the
	// audit entry against the profile's original identity. Returns the
	// number of links removed.
	UnlinkProfile(profileID uint, newIdentity *entity.Identity, audit *entity.AuditLogEntry) (int64, error)
}
