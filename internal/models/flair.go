package models

import "time"

// Flair is a community-scoped label moderators manage for posts.
type Flair struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CommunityID uint       `gorm:"not null;index" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	Name        string     `gorm:"size:60;not null" json:"name"`
	Color       string     `gorm:"size:20" json:"color"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Flair) TableName() string {
	return "flairs"
}
