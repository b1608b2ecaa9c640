package models

import "time"

// CommunityPrivacy defines who may join a community directly.
type CommunityPrivacy string

const (
	// CommunityPrivacyPublic allows anyone to join immediately.
	CommunityPrivacyPublic CommunityPrivacy = "public"
	// CommunityPrivacyRestricted requires moderator approval before joining.
	CommunityPrivacyRestricted CommunityPrivacy = "restricted"
)

// Community represents a named community namespace.
//
// MembersCount is an explicit counter kept in sync with the membership rows
// inside the same transaction that mutates them, so listings read it in O(1).
type Community struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	Name            string           `gorm:"size:120;not null" json:"name"`
	Slug            string           `gorm:"size:24;not null;uniqueIndex" json:"slug"`
	Description     string           `gorm:"type:text" json:"description"`
	Category        string           `gorm:"size:60;index" json:"category"`
	Privacy         CommunityPrivacy `gorm:"type:varchar(20);not null;default:'public'" json:"privacy"`
	MembersCount    int64            `gorm:"not null;default:0" json:"members_count"`
	CreatedByUserID *uint            `json:"created_by_user_id"`
	CreatedByUser   *User            `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Community) TableName() string {
	return "communities"
}
