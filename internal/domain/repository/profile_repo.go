package repository

import "github.com/anubis-chat/identity-graph/internal/domain/entity"

// ProfileRepository stores platform profiles. The (platform,
// platform_user_id) pair is unique; Upsert is the only write path that may
// create a profile, and it must treat a concurrent create of the same key
// as a successful update, never as an error.
type ProfileRepository interface {
	// Upsert creates the profile on first sight or updates mutable
	// attributes (username, display name, avatar, bio, payload), bumps
	// message_count and the activity histogram, and advances last_seen.
	// The passed profile is populated with the stored row on return.
	Upsert(profile *entity.PlatformProfile) error
	GetByID(id uint) (*entity.PlatformProfile, error)
	GetByPlatformUser(platform, platformUserID string) (*entity.PlatformProfile, error)
	GetByIdentityID(identityID uint) ([]entity.PlatformProfile, error)
	// AssignIdentityIfUnowned attaches the profile to an identity only if
	// it has none yet. Returns false when another writer assigned one
	// first; the caller re-reads and discards its own identity candidate.
	AssignIdentityIfUnowned(profileID, identityID uint) (bool, error)
	// FindUsernameCandidates returns profiles on platforms other than the
	// given one whose username is trigram-similar to the given username.
	FindUsernameCandidates(platform, username string, limit int) ([]entity.PlatformProfile, error)
	// ListActiveOnOtherPlatforms returns recently active profiles outside
	// the given platform, for the temporal correlation scan.
	ListActiveOnOtherPlatforms(platform string, limit int) ([]entity.PlatformProfile, error)
	// Search fuzzily matches username and display name.
	Search(term string, limit int) ([]entity.PlatformProfile, error)
}
