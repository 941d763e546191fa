package engine

import (
	"context"
	"errors"
	"time"

	"jobtrail/models"

	"gorm.io/gorm"
)

// Store is the engine's data gateway. Every operation is scoped to the
// owning user's rows; the engine never reaches across tenants.
type Store interface {
	ActiveRules(ctx context.Context, userID uint) ([]models.AutomationRule, error)
	UsersWithActiveRules(ctx context.Context) ([]uint, error)

	JobsByUser(ctx context.Context, userID uint) ([]models.Job, error)
	ArchiveJobs(ctx context.Context, userID uint, jobIDs []uint) (int64, error)

	LiveReminderExists(ctx context.Context, jobID uint, reminderType models.ReminderType) (bool, error)
	// CreateReminder must return ErrDuplicateReminder when a live reminder
	// for the same (job, reminder_type) already exists, including the race
	// where a concurrent pass inserted one between check and insert.
	CreateReminder(ctx context.Context, reminder *models.FollowUpReminder) error
	ReminderByID(ctx context.Context, userID, reminderID uint) (*models.FollowUpReminder, error)
	SaveReminder(ctx context.Context, reminder *models.FollowUpReminder) error
	PendingReminders(ctx context.Context, userID uint, now time.Time) ([]models.FollowUpReminder, error)

	TouchRuleExecuted(ctx context.Context, ruleID uint, at time.Time) error
}

// gormStore is the production Store backed by Postgres through gorm
type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection in the engine's data gateway.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ActiveRules(ctx context.Context, userID uint) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&rules).Error; err != nil {
		return nil, &DataGatewayError{Op: "fetch active rules", Err: err}
	}
	return rules, nil
}

func (s *gormStore) UsersWithActiveRules(ctx context.Context) ([]uint, error) {
	var userIDs []uint
	if err := s.db.WithContext(ctx).
		Model(&models.AutomationRule{}).
		Where("is_active = ?", true).
		Distinct().
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, &DataGatewayError{Op: "fetch users with active rules", Err: err}
	}
	return userIDs, nil
}

func (s *gormStore) JobsByUser(ctx context.Context, userID uint) ([]models.Job, error) {
	var jobs []models.Job
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&jobs).Error; err != nil {
		return nil, &DataGatewayError{Op: "fetch jobs", Err: err}
	}
	return jobs, nil
}

// ArchiveJobs flips is_archived in one bulk write and reports rows affected.
// Already-archived rows are excluded, so re-running an archive rule is a
// visible no-op.
func (s *gormStore) ArchiveJobs(ctx context.Context, userID uint, jobIDs []uint) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("user_id = ? AND id IN ? AND is_archived = ?", userID, jobIDs, false).
		Update("is_archived", true)
	if result.Error != nil {
		return 0, &DataGatewayError{Op: "archive jobs", Err: result.Error}
	}
	return result.RowsAffected, nil
}

func (s *gormStore) LiveReminderExists(ctx context.Context, jobID uint, reminderType models.ReminderType) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.FollowUpReminder{}).
		Where("job_id = ? AND reminder_type = ? AND dismissed_at IS NULL AND completed_at IS NULL",
			jobID, reminderType).
		Count(&count).Error; err != nil {
		return false, &DataGatewayError{Op: "check live reminder", Err: err}
	}
	return count > 0, nil
}

func (s *gormStore) CreateReminder(ctx context.Context, reminder *models.FollowUpReminder) error {
	// Re-check right before insert. The partial unique index is the real
	// guard; this avoids burning a failed insert in the common case.
	exists, err := s.LiveReminderExists(ctx, reminder.JobID, reminder.ReminderType)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateReminder
	}

	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race with a concurrent pass: same outcome as handled
			return ErrDuplicateReminder
		}
		return &DataGatewayError{Op: "create reminder", Err: err}
	}
	return nil
}

func (s *gormStore) ReminderByID(ctx context.Context, userID, reminderID uint) (*models.FollowUpReminder, error) {
	var reminder models.FollowUpReminder
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reminderID, userID).
		First(&reminder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, &DataGatewayError{Op: "fetch reminder", Err: err}
	}
	return &reminder, nil
}

func (s *gormStore) SaveReminder(ctx context.Context, reminder *models.FollowUpReminder) error {
	if err := s.db.WithContext(ctx).Save(reminder).Error; err != nil {
		return &DataGatewayError{Op: "save reminder", Err: err}
	}
	return nil
}

// PendingReminders returns live reminders whose snooze window has passed,
// joined with their jobs, oldest scheduled first.
func (s *gormStore) PendingReminders(ctx context.Context, userID uint, now time.Time) ([]models.FollowUpReminder, error) {
	var reminders []models.FollowUpReminder
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND dismissed_at IS NULL AND completed_at IS NULL", userID).
		Where("snoozed_until IS NULL OR snoozed_until < ?", now).
		Preload("Job").
		Order("scheduled_date ASC").
		Find(&reminders).Error; err != nil {
		return nil, &DataGatewayError{Op: "fetch pending reminders", Err: err}
	}
	return reminders, nil
}

func (s *gormStore) TouchRuleExecuted(ctx context.Context, ruleID uint, at time.Time) error {
	if err := s.db.WithContext(ctx).
		Model(&models.AutomationRule{}).
		Where("id = ?", ruleID).
		Update("last_executed_at", at).Error; err != nil {
		return &DataGatewayError{Op: "update last_executed_at", Err: err}
	}
	return nil
}
