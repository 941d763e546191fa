package models

import (
	"time"

	"gorm.io/gorm"
)

// ReminderType identifies the pipeline stage a follow-up belongs to
type ReminderType string

const (
	ReminderApplicationFollowUp ReminderType = "application_followup"
	ReminderPhoneScreenFollowUp ReminderType = "phone_screen_followup"
	ReminderInterviewFollowUp   ReminderType = "interview_followup"
)

// FollowUpReminder is a scheduled nudge to follow up on a job. At most one
// live reminder (neither dismissed nor completed) may exist per
// (job, reminder_type); a partial unique index enforces this at the database.
type FollowUpReminder struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`
	JobID  uint `gorm:"not null;index" json:"job_id"`

	ReminderType ReminderType `gorm:"not null" json:"reminder_type"`

	// Lifecycle timestamps
	ScheduledDate time.Time  `gorm:"not null" json:"scheduled_date"`
	SnoozedUntil  *time.Time `json:"snoozed_until"`
	DismissedAt   *time.Time `json:"dismissed_at"`
	CompletedAt   *time.Time `json:"completed_at"`

	// EmailTemplate is the rendered follow-up text, immutable once created
	EmailTemplate string `gorm:"type:text" json:"email_template"`
	AutoGenerated bool   `gorm:"default:false" json:"auto_generated"`

	// Relations
	Job Job `json:"-"`
}

// IsLive reports whether the reminder still blocks creation of a new one
// for the same (job, reminder_type) pair.
func (r *FollowUpReminder) IsLive() bool {
	return r.DismissedAt == nil && r.CompletedAt == nil
}

// IsPending reports whether the reminder should be surfaced to the user.
// A snoozed reminder reappears once its snooze window has passed; no stored
// state changes on lapse.
func (r *FollowUpReminder) IsPending(now time.Time) bool {
	if !r.IsLive() {
		return false
	}
	return r.SnoozedUntil == nil || r.SnoozedUntil.Before(now)
}

// IsOverdue is a read-time derived property, never stored
func (r *FollowUpReminder) IsOverdue(now time.Time) bool {
	return r.IsPending(now) && r.ScheduledDate.Before(now)
}
