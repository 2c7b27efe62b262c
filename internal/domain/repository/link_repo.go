package repository

import (
	"errors"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// ErrLinkPairExists means a concurrent writer created the link for the same
// unordered pair first. Callers re-read the pair and strengthen instead.
var ErrLinkPairExists = errors.New("link already exists for profile pair")

// LinkRepository stores identity links. At most one link exists per
// unordered profile pair, enforced by a unique index on the canonical
// (profile_low_id, profile_high_id) ordering.
type LinkRepository interface {
	// Create inserts a new link; returns ErrLinkPairExists on a unique
	// violation of the pair index.
	Create(link *entity.IdentityLink) error
	GetByID(id uint) (*entity.IdentityLink, error)
	// GetByPair looks the link up by unordered pair, in either direction.
	GetByPair(profileA, profileB uint) (*entity.IdentityLink, error)
	// StrengthenPending updates confidence, type and evidence of a link
	// only while it is still pending. Returns the number of rows updated
	// (zero when the link was confirmed or rejected in the meantime).
	StrengthenPending(linkID uint, confidence float64, linkType string, evidence entity.JSONMap) (int64, error)
	GetByProfile(profileID uint) ([]entity.IdentityLink, error)
}
