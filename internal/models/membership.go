package models

import "time"

// CommunityMembership maps users to communities they are members of.
// Membership and moderator status are tracked in separate tables: a
// moderator who leaves the community keeps moderator rights.
type CommunityMembership struct {
	CommunityID uint       `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID      uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (CommunityMembership) TableName() string {
	return "community_memberships"
}

// CommunityModerator maps users to communities they govern.
type CommunityModerator struct {
	CommunityID uint       `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID      uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User        *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (CommunityModerator) TableName() string {
	return "community_moderators"
}

// MembershipStatus classifies a (community, user) pair into exactly one
// governance state.
type MembershipStatus string

const (
	// MembershipStatusNonMember means the user has no relation to the community.
	MembershipStatusNonMember MembershipStatus = "non_member"
	// MembershipStatusPending means a restricted-join request is awaiting approval.
	MembershipStatusPending MembershipStatus = "pending"
	// MembershipStatusMember means the user holds full participation rights.
	MembershipStatusMember MembershipStatus = "member"
	// MembershipStatusModerator means the user holds governance rights.
	MembershipStatusModerator MembershipStatus = "moderator"
	// MembershipStatusBanned means an active ban excludes the user.
	MembershipStatusBanned MembershipStatus = "banned"
)
