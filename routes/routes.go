package routes

import (
	"log"
	"os"

	controller "jobtrail/controllers"
	"jobtrail/engine"
	"jobtrail/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authController := controller.NewAuthController(db, log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile))

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", authController.GetCurrentUser)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, dispatcher *engine.Dispatcher, reminders *engine.Reminders) {
	automationController := controller.NewAutomationController(db, dispatcher,
		log.New(os.Stdout, "AUTOMATION: ", log.Ldate|log.Ltime|log.Lshortfile))
	reminderController := controller.NewReminderController(reminders,
		log.New(os.Stdout, "REMINDER: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Automation rule routes
	automation := api.Group("/automation")
	automation.Post("/rules", automationController.CreateRule)
	automation.Get("/rules", automationController.GetRules)
	automation.Get("/rules/:id", automationController.GetRule)
	automation.Put("/rules/:id", automationController.UpdateRule)
	automation.Delete("/rules/:id", automationController.DeleteRule)

	// Dispatch pass trigger, rate limited per user
	automation.Post("/dispatch", middleware.DispatchRateLimiter(), automationController.RunDispatch)

	// WebSocket route for dispatch progress
	app.Get("/api/v1/automation/dispatch/progress", middleware.Protected(), func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid user ID",
			})
		}
		return websocket.New(controller.HandleDispatchProgressWS(dispatcher, userID))(c)
	})

	// Reminder routes
	reminder := api.Group("/reminders")
	reminder.Get("/pending", reminderController.GetPending)
	reminder.Post("/:id/snooze", reminderController.Snooze)
	reminder.Post("/:id/dismiss", reminderController.Dismiss)
	reminder.Post("/:id/complete", reminderController.Complete)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, dispatcher *engine.Dispatcher, reminders *engine.Reminders) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db)

	// Setup API routes
	SetupAPIRoutes(app, db, dispatcher, reminders)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
