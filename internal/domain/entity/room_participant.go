package entity

import "time"

// RoomParticipant associates a profile with a room it participates in.
// Rooms carry a community key so that rooms on different platforms that
// belong to the same logical community can be matched; the social overlap
// signal counts shared communities between two profiles. This table is
// input evidence only and carries no identity state.
type RoomParticipant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Platform     string    `gorm:"size:32;not null;uniqueIndex:idx_rooms_member,priority:1" json:"platform"`
	RoomKey      string    `gorm:"size:128;not null;uniqueIndex:idx_rooms_member,priority:2" json:"room_key"`
	ProfileID    uint      `gorm:"not null;uniqueIndex:idx_rooms_member,priority:3;index" json:"profile_id"`
	CommunityKey string    `gorm:"size:64;not null;index" json:"community_key"`
	LastActive   time.Time `gorm:"not null" json:"last_active"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName defines the table name for GORM.
func (RoomParticipant) TableName() string {
	return "room_participants"
}
