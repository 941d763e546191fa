package engine

import (
	"context"
	"errors"
	"time"

	"jobtrail/models"
)

// ErrSnoozeInPast rejects snooze windows that have already elapsed
var ErrSnoozeInPast = errors.New("snoozed_until must be in the future")

// Reminders owns the lifecycle of individual follow-up reminders:
// scheduled → snoozed → dismissed or completed. Dismissed and completed are
// terminal; the engine never transitions a reminder on time alone.
type Reminders struct {
	store Store
	clock Clock
}

// NewReminders creates the reminder lifecycle service.
func NewReminders(store Store, clock Clock) *Reminders {
	return &Reminders{store: store, clock: clock}
}

// Snooze hides the reminder from pending lists until the given time. It
// reappears on its own once the window passes; no stored state changes then.
func (r *Reminders) Snooze(ctx context.Context, userID, reminderID uint, until time.Time) (*models.FollowUpReminder, error) {
	reminder, err := r.store.ReminderByID(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}
	if !reminder.IsLive() {
		return nil, ErrReminderTerminal
	}
	if !until.After(r.clock.Now()) {
		return nil, ErrSnoozeInPast
	}

	reminder.SnoozedUntil = &until
	if err := r.store.SaveReminder(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

// Dismiss moves the reminder to its terminal dismissed state. A later
// dispatch pass may create a fresh reminder for the same job and type;
// dismissal is not permanent suppression.
func (r *Reminders) Dismiss(ctx context.Context, userID, reminderID uint) (*models.FollowUpReminder, error) {
	return r.finish(ctx, userID, reminderID, func(reminder *models.FollowUpReminder, now time.Time) {
		reminder.DismissedAt = &now
	})
}

// Complete moves the reminder to its terminal completed state
func (r *Reminders) Complete(ctx context.Context, userID, reminderID uint) (*models.FollowUpReminder, error) {
	return r.finish(ctx, userID, reminderID, func(reminder *models.FollowUpReminder, now time.Time) {
		reminder.CompletedAt = &now
	})
}

func (r *Reminders) finish(ctx context.Context, userID, reminderID uint, apply func(*models.FollowUpReminder, time.Time)) (*models.FollowUpReminder, error) {
	reminder, err := r.store.ReminderByID(ctx, userID, reminderID)
	if err != nil {
		return nil, err
	}
	if !reminder.IsLive() {
		return nil, ErrReminderTerminal
	}

	apply(reminder, r.clock.Now())
	if err := r.store.SaveReminder(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

// Pending lists the user's reminders that should currently be surfaced,
// oldest scheduled first.
func (r *Reminders) Pending(ctx context.Context, userID uint) ([]models.FollowUpReminder, error) {
	return r.store.PendingReminders(ctx, userID, r.clock.Now())
}
