package models

import (
	"time"

	"gorm.io/gorm"
)

// JobStatus is the application pipeline stage of a tracked job
type JobStatus string

const (
	JobStatusInterested  JobStatus = "interested"
	JobStatusApplied     JobStatus = "applied"
	JobStatusPhoneScreen JobStatus = "phone_screen"
	JobStatusInterview   JobStatus = "interview"
	JobStatusOffer       JobStatus = "offer"
	JobStatusRejected    JobStatus = "rejected"
)

// Job represents a tracked job application
type Job struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	// Job details
	Title    string `gorm:"not null" json:"title"`
	Company  string `gorm:"not null" json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
	Notes    string `json:"notes"`

	// Pipeline state
	Status          JobStatus  `gorm:"default:'interested';index" json:"status"`
	StatusUpdatedAt *time.Time `json:"status_updated_at"`

	// Deadlines and archival
	ApplicationDeadline *time.Time `json:"application_deadline"`
	IsArchived          bool       `gorm:"default:false;index" json:"is_archived"`

	// Relations
	Reminders []FollowUpReminder `gorm:"foreignKey:JobID" json:"reminders,omitempty"`
}

// StatusTimestamp returns when the job entered its current status, falling
// back to the creation time for rows that predate status tracking.
func (j *Job) StatusTimestamp() time.Time {
	if j.StatusUpdatedAt != nil {
		return *j.StatusUpdatedAt
	}
	return j.CreatedAt
}
