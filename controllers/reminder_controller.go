package controller

import (
	"context"
	"errors"
	"log"
	"time"

	"jobtrail/engine"
	"jobtrail/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	ErrInvalidReminderID = "invalid reminder ID"
	ErrReminderNotFound  = "reminder not found"
)

type ReminderController struct {
	Reminders *engine.Reminders
	Logger    *log.Logger
}

func NewReminderController(reminders *engine.Reminders, logger *log.Logger) *ReminderController {
	return &ReminderController{
		Reminders: reminders,
		Logger:    logger,
	}
}

// reminderSummary joins a reminder with a minimal job summary for display
type reminderSummary struct {
	ID            uint             `json:"id"`
	JobID         uint             `json:"job_id"`
	ReminderType  string           `json:"reminder_type"`
	ScheduledDate time.Time        `json:"scheduled_date"`
	SnoozedUntil  *time.Time       `json:"snoozed_until,omitempty"`
	EmailTemplate string           `json:"email_template"`
	AutoGenerated bool             `json:"auto_generated"`
	Overdue       bool             `json:"overdue"`
	JobTitle      string           `json:"job_title"`
	JobCompany    string           `json:"job_company"`
	JobStatus     models.JobStatus `json:"job_status"`
}

// GetPending lists the reminders that should currently be surfaced
func (ctl *ReminderController) GetPending(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	reminders, err := ctl.Reminders.Pending(c.Context(), userID)
	if err != nil {
		ctl.Logger.Printf("Failed to fetch pending reminders for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch pending reminders",
		})
	}

	now := time.Now().UTC()
	summaries := make([]reminderSummary, 0, len(reminders))
	for _, r := range reminders {
		summaries = append(summaries, reminderSummary{
			ID:            r.ID,
			JobID:         r.JobID,
			ReminderType:  string(r.ReminderType),
			ScheduledDate: r.ScheduledDate,
			SnoozedUntil:  r.SnoozedUntil,
			EmailTemplate: r.EmailTemplate,
			AutoGenerated: r.AutoGenerated,
			Overdue:       r.IsOverdue(now),
			JobTitle:      r.Job.Title,
			JobCompany:    r.Job.Company,
			JobStatus:     r.Job.Status,
		})
	}

	return c.JSON(fiber.Map{
		"data": summaries,
	})
}

// Snooze hides a reminder until the given time
func (ctl *ReminderController) Snooze(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	reminderID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidReminderID,
		})
	}

	var input struct {
		SnoozedUntil time.Time `json:"snoozed_until" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidRequestBody,
		})
	}

	reminder, err := ctl.Reminders.Snooze(c.Context(), userID, uint(reminderID), input.SnoozedUntil)
	if err != nil {
		return ctl.reminderError(c, reminderID, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"snoozed_until": reminder.SnoozedUntil,
	})
}

// Dismiss moves a reminder to its terminal dismissed state
func (ctl *ReminderController) Dismiss(c *fiber.Ctx) error {
	return ctl.finish(c, ctl.Reminders.Dismiss)
}

// Complete moves a reminder to its terminal completed state
func (ctl *ReminderController) Complete(c *fiber.Ctx) error {
	return ctl.finish(c, ctl.Reminders.Complete)
}

func (ctl *ReminderController) finish(c *fiber.Ctx, op func(ctx context.Context, userID, reminderID uint) (*models.FollowUpReminder, error)) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	reminderID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidReminderID,
		})
	}

	if _, err := op(c.Context(), userID, uint(reminderID)); err != nil {
		return ctl.reminderError(c, reminderID, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (ctl *ReminderController) reminderError(c *fiber.Ctx, reminderID int, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": ErrReminderNotFound,
		})
	case errors.Is(err, engine.ErrReminderTerminal), errors.Is(err, engine.ErrSnoozeInPast):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		ctl.Logger.Printf("Reminder %d operation failed: %v", reminderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
