package repository

import "github.com/anubis-chat/identity-graph/internal/domain/entity"

// RoomRepository stores room participation evidence for the social
// overlap signal.
type RoomRepository interface {
	// UpsertPresence records that a profile was seen in a room, updating
	// last_active on repeat observations.
	UpsertPresence(participant *entity.RoomParticipant) error
	// SharedCommunityCount returns the number of distinct community keys
	// in which both profiles participate.
	SharedCommunityCount(profileA, profileB uint) (int64, error)
	// CoParticipants returns profiles outside the given platform that share
	// at least one community with the given profile, with their shared
	// community counts.
	CoParticipants(profileID uint, platform string, limit int) ([]entity.PlatformProfile, map[uint]int64, error)
}
