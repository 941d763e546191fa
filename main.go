package main

import (
	"context"
	"log"
	"os"

	"jobtrail/config"
	"jobtrail/engine"
	"jobtrail/middleware"
	"jobtrail/routes"
	"jobtrail/utils"
	"jobtrail/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "JOBTRAIL: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Initialize Sentry if configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Wire the automation engine and its collaborators
	dispatchLogger := log.New(os.Stdout, "DISPATCH: ", log.Ldate|log.Ltime|log.Lshortfile)
	store := engine.NewStore(config.DB)
	mailer := utils.NewMailer(config.DB, log.New(os.Stdout, "MAILER: ", log.LstdFlags))
	generator := utils.NewGenerationClient(config.AppConfig.GenerationServiceURL,
		log.New(os.Stdout, "GENERATE: ", log.LstdFlags))
	dispatcher := engine.NewDispatcher(store, mailer, generator, dispatchLogger)
	reminders := engine.NewReminders(store, engine.NewClock())

	// Initialize and start the automation worker
	automationWorker := worker.NewAutomationWorker(store, dispatcher, config.AppConfig.DispatchCron,
		log.New(os.Stdout, "WORKER: ", log.LstdFlags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go automationWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, dispatcher, reminders)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
