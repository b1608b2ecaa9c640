package models

import "time"

// ModeratorInvite is an offer of moderator status awaiting an answer.
// Inviting the same user twice leaves exactly one pending invitation.
type ModeratorInvite struct {
	CommunityID     uint       `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community       *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID          uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User            *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	InvitedByUserID uint       `gorm:"not null;index" json:"invited_by_user_id"`
	InvitedByUser   *User      `gorm:"foreignKey:InvitedByUserID" json:"invited_by_user,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (ModeratorInvite) TableName() string {
	return "moderator_invites"
}
