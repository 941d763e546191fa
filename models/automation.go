package models

import (
	"time"

	"gorm.io/gorm"
)

// RuleKind is the closed set of automation actions. Adding a kind requires
// adding a matching executor in the engine package.
type RuleKind string

const (
	RuleKindGeneratePackage  RuleKind = "generate_package"
	RuleKindFollowUpReminder RuleKind = "follow_up_reminder"
	RuleKindDeadlineReminder RuleKind = "deadline_reminder"
	RuleKindStatusUpdate     RuleKind = "status_update"
)

// TriggerConditions is the structured predicate attached to a rule. The
// fields used depend on the rule kind; zero values mean "use the default".
type TriggerConditions struct {
	// Status narrows which jobs the rule looks at (follow_up_reminder,
	// generate_package).
	Status JobStatus `json:"status,omitempty"`

	// ElapsedDays overrides the stage default for follow_up_reminder rules.
	ElapsedDays int `json:"elapsed_days,omitempty" validate:"omitempty,min=1,max=365"`

	// DaysBeforeDeadline is the inclusive lookahead window for
	// deadline_reminder rules.
	DaysBeforeDeadline int `json:"days_before_deadline,omitempty" validate:"omitempty,min=1,max=90"`

	// DaysOld is the staleness threshold for status_update archive rules.
	DaysOld int `json:"days_old,omitempty" validate:"omitempty,min=1,max=365"`
}

// ActionConfig carries kind-specific action parameters
type ActionConfig struct {
	TemplateID *uint  `json:"template_id,omitempty"`
	Tone       string `json:"tone,omitempty" validate:"omitempty,oneof=formal casual enthusiastic"`
	BatchSize  int    `json:"batch_size,omitempty" validate:"omitempty,min=1,max=10"`
}

// AutomationRule is a stored trigger/action pair owned by a user
type AutomationRule struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name string   `gorm:"not null" json:"name"`
	Kind RuleKind `gorm:"not null;index" json:"kind"`

	// Structured payloads stored as JSON
	TriggerConditions TriggerConditions `json:"trigger_conditions" gorm:"type:jsonb;serializer:json"`
	ActionConfig      ActionConfig      `json:"action_config" gorm:"type:jsonb;serializer:json"`

	// IsActive gates evaluation; inactive rules are never considered
	IsActive bool `gorm:"default:true;index" json:"is_active"`

	// LastExecutedAt marks the rule's last dispatch pass. It records "the
	// rule was checked", not "the rule fired"; per-target dedup lives with
	// the reminders themselves.
	LastExecutedAt *time.Time `json:"last_executed_at"`
}

// CreateDefaultAutomationRules seeds the stock rule set for a new user
func CreateDefaultAutomationRules(db *gorm.DB, userID uint) error {
	defaultRules := []AutomationRule{
		{
			UserID:   userID,
			Name:     "Follow up on applications",
			Kind:     RuleKindFollowUpReminder,
			IsActive: true,
		},
		{
			UserID:            userID,
			Name:              "Deadline alerts",
			Kind:              RuleKindDeadlineReminder,
			IsActive:          true,
			TriggerConditions: TriggerConditions{DaysBeforeDeadline: 3},
		},
		{
			UserID:            userID,
			Name:              "Archive stale rejections",
			Kind:              RuleKindStatusUpdate,
			IsActive:          true,
			TriggerConditions: TriggerConditions{DaysOld: 30},
		},
	}
	for _, rule := range defaultRules {
		if err := db.FirstOrCreate(&rule, "user_id = ? AND name = ?", userID, rule.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
