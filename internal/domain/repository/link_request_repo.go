package repository

import (
	"time"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// LinkRequestRepository stores verification link requests. Requests are
// never physically deleted on expiry or verification, only transitioned;
// ExpireOverdue exists for storage reclamation sweeps.
type LinkRequestRepository interface {
	Create(request *entity.LinkRequest) error
	GetByID(id uint) (*entity.LinkRequest, error)
	// GetByPlatformCode looks a request up by target platform and hashed code.
	GetByPlatformCode(targetPlatform, codeHash string) (*entity.LinkRequest, error)
	// MarkExpired transitions pending → expired. Returns rows updated.
	MarkExpired(id uint) (int64, error)
	// ExpireOverdue bulk-transitions every pending request past its
	// deadline. Returns the number of requests expired.
	ExpireOverdue(now time.Time) (int64, error)
}
