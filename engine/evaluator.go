package engine

import (
	"fmt"
	"time"

	"jobtrail/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Default trigger thresholds, overridable per rule via TriggerConditions
const (
	DefaultDeadlineWindowDays = 3
	DefaultArchiveAfterDays   = 30
	GeneratePackageBatchCap   = 10
)

// followUpStages maps a pipeline stage to its reminder type and the default
// number of elapsed days before a follow-up is due.
var followUpStages = map[models.JobStatus]struct {
	ReminderType models.ReminderType
	ElapsedDays  int
}{
	models.JobStatusApplied:     {models.ReminderApplicationFollowUp, 7},
	models.JobStatusPhoneScreen: {models.ReminderPhoneScreenFollowUp, 3},
	models.JobStatusInterview:   {models.ReminderInterviewFollowUp, 2},
}

// Target identifies one entity a rule's action applies to in a dispatch pass
type Target struct {
	Job models.Job

	// ReminderType is set for follow_up_reminder rules only
	ReminderType models.ReminderType
}

// ValidateRule checks a rule's configuration before evaluation. A failure is
// a ValidationError: the rule is skipped and reported, nothing else stops.
func ValidateRule(rule *models.AutomationRule) error {
	switch rule.Kind {
	case models.RuleKindGeneratePackage, models.RuleKindFollowUpReminder,
		models.RuleKindDeadlineReminder, models.RuleKindStatusUpdate:
	default:
		return &ValidationError{RuleID: rule.ID, Reason: fmt.Sprintf("unknown kind %q", rule.Kind)}
	}

	if err := validate.Struct(rule.TriggerConditions); err != nil {
		return &ValidationError{RuleID: rule.ID, Reason: err.Error()}
	}
	if err := validate.Struct(rule.ActionConfig); err != nil {
		return &ValidationError{RuleID: rule.ID, Reason: err.Error()}
	}

	if rule.Kind == models.RuleKindFollowUpReminder && rule.TriggerConditions.Status != "" {
		if _, ok := followUpStages[rule.TriggerConditions.Status]; !ok {
			return &ValidationError{
				RuleID: rule.ID,
				Reason: fmt.Sprintf("status %q has no follow-up stage", rule.TriggerConditions.Status),
			}
		}
	}
	return nil
}

// EvaluateRule decides which jobs the rule's condition currently selects.
// It is a pure function of (rule, now, jobs); all day arithmetic uses
// calendar days normalized to midnight UTC.
func EvaluateRule(rule *models.AutomationRule, now time.Time, jobs []models.Job) ([]Target, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}

	switch rule.Kind {
	case models.RuleKindFollowUpReminder:
		return evaluateFollowUp(rule, now, jobs), nil
	case models.RuleKindDeadlineReminder:
		return evaluateDeadline(rule, now, jobs), nil
	case models.RuleKindStatusUpdate:
		return evaluateStaleRejections(rule, now, jobs), nil
	case models.RuleKindGeneratePackage:
		return evaluateGeneratePackage(rule, jobs), nil
	}
	return nil, ErrUnknownRuleKind
}

func evaluateFollowUp(rule *models.AutomationRule, now time.Time, jobs []models.Job) []Target {
	var targets []Target
	for _, job := range jobs {
		if job.IsArchived {
			continue
		}
		stage, ok := followUpStages[job.Status]
		if !ok {
			continue
		}
		if rule.TriggerConditions.Status != "" && job.Status != rule.TriggerConditions.Status {
			continue
		}
		threshold := stage.ElapsedDays
		if rule.TriggerConditions.ElapsedDays > 0 {
			threshold = rule.TriggerConditions.ElapsedDays
		}
		if ElapsedDays(now, job.StatusTimestamp()) >= threshold {
			targets = append(targets, Target{Job: job, ReminderType: stage.ReminderType})
		}
	}
	return targets
}

func evaluateDeadline(rule *models.AutomationRule, now time.Time, jobs []models.Job) []Target {
	window := rule.TriggerConditions.DaysBeforeDeadline
	if window <= 0 {
		window = DefaultDeadlineWindowDays
	}

	var targets []Target
	for _, job := range jobs {
		if job.IsArchived || job.Status == models.JobStatusRejected {
			continue
		}
		if job.ApplicationDeadline == nil {
			continue
		}
		// Inclusive window: a deadline exactly `window` days out still fires
		days := DaysUntil(now, *job.ApplicationDeadline)
		if days >= 0 && days <= window {
			targets = append(targets, Target{Job: job})
		}
	}
	return targets
}

func evaluateStaleRejections(rule *models.AutomationRule, now time.Time, jobs []models.Job) []Target {
	daysOld := rule.TriggerConditions.DaysOld
	if daysOld <= 0 {
		daysOld = DefaultArchiveAfterDays
	}

	var targets []Target
	for _, job := range jobs {
		if job.IsArchived || job.Status != models.JobStatusRejected {
			continue
		}
		if ElapsedDays(now, job.StatusTimestamp()) > daysOld {
			targets = append(targets, Target{Job: job})
		}
	}
	return targets
}

// evaluateGeneratePackage caps its selection to bound the fan-out of
// generation calls per pass.
func evaluateGeneratePackage(rule *models.AutomationRule, jobs []models.Job) []Target {
	status := rule.TriggerConditions.Status
	if status == "" {
		status = models.JobStatusInterested
	}
	cap := rule.ActionConfig.BatchSize
	if cap <= 0 || cap > GeneratePackageBatchCap {
		cap = GeneratePackageBatchCap
	}

	var targets []Target
	for _, job := range jobs {
		if job.IsArchived || job.Status != status {
			continue
		}
		targets = append(targets, Target{Job: job})
		if len(targets) >= cap {
			break
		}
	}
	return targets
}
