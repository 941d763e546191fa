package controller

import (
	"errors"
	"log"

	"jobtrail/engine"
	"jobtrail/models"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	ErrInvalidRuleID = "invalid rule ID"
	ErrRuleNotFound  = "automation rule not found"
)

type AutomationController struct {
	DB         *gorm.DB
	Dispatcher *engine.Dispatcher
	Logger     *log.Logger
}

func NewAutomationController(db *gorm.DB, dispatcher *engine.Dispatcher, logger *log.Logger) *AutomationController {
	return &AutomationController{
		DB:         db,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
}

// CreateRule stores a new automation rule for the authenticated user
func (ctl *AutomationController) CreateRule(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	var input struct {
		Name              string                   `json:"name" validate:"required,min=3,max=100"`
		Kind              models.RuleKind          `json:"kind" validate:"required"`
		TriggerConditions models.TriggerConditions `json:"trigger_conditions"`
		ActionConfig      models.ActionConfig      `json:"action_config"`
		IsActive          *bool                    `json:"is_active"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidRequestBody,
		})
	}

	rule := models.AutomationRule{
		UserID:            userID,
		Name:              input.Name,
		Kind:              input.Kind,
		TriggerConditions: input.TriggerConditions,
		ActionConfig:      input.ActionConfig,
		IsActive:          true,
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	// Reject configurations the engine would skip at dispatch time
	if err := engine.ValidateRule(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := ctl.DB.Create(&rule).Error; err != nil {
		ctl.Logger.Printf("Failed to create rule: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create automation rule",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "automation rule created successfully",
		"data":    rule,
	})
}

// GetRules lists the authenticated user's automation rules
func (ctl *AutomationController) GetRules(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	var rules []models.AutomationRule
	if err := ctl.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&rules).Error; err != nil {
		ctl.Logger.Printf("Database error fetching rules: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch automation rules",
		})
	}

	return c.JSON(fiber.Map{
		"data": rules,
	})
}

// GetRule returns a single rule owned by the authenticated user
func (ctl *AutomationController) GetRule(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	ruleID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidRuleID,
		})
	}

	var rule models.AutomationRule
	if err := ctl.DB.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrRuleNotFound,
			})
		}
		ctl.Logger.Printf("Database error fetching rule: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"data": rule,
	})
}

// UpdateRule edits a rule's configuration. Only the owner may do this; the
// engine itself only ever touches last_executed_at.
func (ctl *AutomationController) UpdateRule(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	ruleID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidRuleID,
		})
	}

	var input struct {
		Name              *string                   `json:"name" validate:"omitempty,min=3,max=100"`
		TriggerConditions *models.TriggerConditions `json:"trigger_conditions"`
		ActionConfig      *models.ActionConfig      `json:"action_config"`
		IsActive          *bool                     `json:"is_active"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidRequestBody,
		})
	}

	var rule models.AutomationRule
	if err := ctl.DB.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": ErrRuleNotFound,
			})
		}
		ctl.Logger.Printf("Database error fetching rule: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if input.Name != nil {
		rule.Name = *input.Name
	}
	if input.TriggerConditions != nil {
		rule.TriggerConditions = *input.TriggerConditions
	}
	if input.ActionConfig != nil {
		rule.ActionConfig = *input.ActionConfig
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	if err := engine.ValidateRule(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := ctl.DB.Save(&rule).Error; err != nil {
		ctl.Logger.Printf("Failed to update rule: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update automation rule",
		})
	}

	return c.JSON(fiber.Map{
		"message": "automation rule updated successfully",
		"data":    rule,
	})
}

// DeleteRule removes a rule. Deletion is an owner action only.
func (ctl *AutomationController) DeleteRule(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	ruleID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ErrInvalidRuleID,
		})
	}

	result := ctl.DB.Where("id = ? AND user_id = ?", ruleID, userID).Delete(&models.AutomationRule{})
	if result.Error != nil {
		ctl.Logger.Printf("Failed to delete rule: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete automation rule",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": ErrRuleNotFound,
		})
	}

	return c.JSON(fiber.Map{
		"message": "automation rule deleted successfully",
	})
}

// RunDispatch runs one dispatch pass over the caller's active rules and
// returns the aggregate report.
func (ctl *AutomationController) RunDispatch(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid user ID",
		})
	}

	report, err := ctl.Dispatcher.RunPass(c.Context(), userID)
	if err != nil {
		ctl.Logger.Printf("Dispatch pass failed for user %d: %v", userID, err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("component", "dispatch")
			scope.SetExtra("user_id", userID)
			sentry.CaptureException(err)
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "dispatch pass failed",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"pass_id":         report.PassID,
			"processed_rules": report.ProcessedRules,
			"results":         report.Results,
		},
	})
}
