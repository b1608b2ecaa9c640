// Package models contains the persistent domain models for the application.
package models

import "time"

// User represents an account in the Agora application.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:40;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	Description  string    `gorm:"type:text" json:"description"`
	ProfileImage string    `json:"profile_image"`
	CoverImage   string    `json:"cover_image"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
