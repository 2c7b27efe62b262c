package repository

import "github.com/anubis-chat/identity-graph/internal/domain/entity"

// IdentityRepository stores hypothesized real-world persons.
type IdentityRepository interface {
	Create(identity *entity.Identity) error
	GetByID(id uint) (*entity.Identity, error)
	GetByMasterID(masterID string) (*entity.Identity, error)
	Update(identity *entity.Identity) error
	// UpdateFields patches the given columns without a full save.
	UpdateFields(id uint, updates map[string]interface{}) error
	// Delete removes an identity record. Only used to discard a freshly
	// created identity that lost the assignment race and owns nothing.
	Delete(id uint) error
	// SearchByDisplayName returns identities whose display name fuzzily
	// matches the term, best matches first.
	SearchByDisplayName(term string, limit int) ([]entity.Identity, error)
}
