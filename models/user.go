package models

import (
	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Profile information
	Name     *string `json:"name,omitempty"`
	Timezone string  `gorm:"default:'UTC'" json:"timezone"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Jobs            []Job              `gorm:"foreignKey:UserID" json:"jobs,omitempty"`
	AutomationRules []AutomationRule   `gorm:"foreignKey:UserID" json:"automation_rules,omitempty"`
	Reminders       []FollowUpReminder `gorm:"foreignKey:UserID" json:"reminders,omitempty"`
}
