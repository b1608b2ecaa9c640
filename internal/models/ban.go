package models

import "time"

// CommunityBan stores community-scoped bans for moderation.
//
// The composite key guarantees at most one ban per (community, user):
// re-banning upserts the row so the latest reason and duration win.
// ExpiresAt is set only for temporary bans; a permanent ban has none.
type CommunityBan struct {
	CommunityID    uint           `gorm:"primaryKey;autoIncrement:false" json:"community_id"`
	Community      *Community     `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID         uint           `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User           *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BannedByUserID uint           `gorm:"not null;index" json:"banned_by_user_id"`
	BannedByUser   *User          `gorm:"foreignKey:BannedByUserID" json:"banned_by_user,omitempty"`
	Reason         string         `gorm:"type:text;default:''" json:"reason"`
	RuleID         *uint          `json:"rule_id"`
	Rule           *CommunityRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
	Permanent      bool           `gorm:"not null;default:false" json:"permanent"`
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CommunityBan) TableName() string {
	return "community_bans"
}

// ActiveAt reports whether the ban excludes the user at the given instant.
// This predicate is the single source of truth for "currently banned":
// a temporary ban past its expiry is inactive even before the sweeper
// removes the row.
func (b *CommunityBan) ActiveAt(now time.Time) bool {
	if b.Permanent {
		return true
	}
	return b.ExpiresAt != nil && b.ExpiresAt.After(now)
}
