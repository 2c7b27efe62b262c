package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anubis-chat/identity-graph/internal/domain/entity"
)

// RoomRepo implements repository.RoomRepository.
type RoomRepo struct {
	db *gorm.DB
}

// NewRoomRepo creates a new room participation repository.
func NewRoomRepo(db *gorm.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// UpsertPresence records that a profile was seen in a room.
func (r *RoomRepo) UpsertPresence(participant *entity.RoomParticipant) error {
	if participant.LastActive.IsZero() {
		participant.LastActive = time.Now()
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "room_key"}, {Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"community_key", "last_active"}),
	}).Create(participant).Error
	if err != nil {
		return fmt.Errorf("failed to upsert room presence: %w", err)
	}
	return nil
}

// SharedCommunityCount returns the number of distinct communities in which
// both profiles participate.
func (r *RoomRepo) SharedCommunityCount(profileA, profileB uint) (int64, error) {
	var count int64
	err := r.db.Raw(
		`SELECT COUNT(DISTINCT a.community_key)
		   FROM room_participants a
		   JOIN room_participants b ON b.community_key = a.community_key
		  WHERE a.profile_id = ? AND b.profile_id = ?`,
		profileA, profileB,
	).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count shared communities: %w", err)
	}
	return count, nil
}

// CoParticipants returns profiles outside the given platform that share at
// least one community with the profile, with their shared community counts.
func (r *RoomRepo) CoParticipants(profileID uint, platform string, limit int) ([]entity.PlatformProfile, map[uint]int64, error) {
	type sharedRow struct {
		ProfileID uint  `gorm:"column:profile_id"`
		Shared    int64 `gorm:"column:shared"`
	}
	var rows []sharedRow
	err := r.db.Raw(
		`SELECT p.id AS profile_id, COUNT(DISTINCT b.community_key) AS shared
		   FROM room_participants a
		   JOIN room_participants b
		     ON b.community_key = a.community_key AND b.profile_id <> a.profile_id
		   JOIN platform_profiles p ON p.id = b.profile_id
		  WHERE a.profile_id = ? AND p.platform <> ?
		  GROUP BY p.id
		  ORDER BY shared DESC
		  LIMIT ?`,
		profileID, platform, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query co-participants: %w", err)
	}
	if len(rows) == 0 {
		return nil, map[uint]int64{}, nil
	}

	shared := make(map[uint]int64, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		shared[row.ProfileID] = row.Shared
		ids = append(ids, row.ProfileID)
	}

	var profiles []entity.PlatformProfile
	if err := r.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load co-participant profiles: %w", err)
	}
	return profiles, shared, nil
}
