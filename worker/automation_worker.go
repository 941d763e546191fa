package worker

import (
	"context"
	"log"

	"jobtrail/engine"

	"github.com/robfig/cron/v3"
)

// AutomationWorker runs scheduled dispatch passes for every user with
// active rules. Each tick is one bounded pass per user; the worker keeps no
// state between ticks, so overlapping or missed ticks are harmless.
type AutomationWorker struct {
	store      engine.Store
	dispatcher *engine.Dispatcher
	cronSpec   string
	logger     *log.Logger
}

func NewAutomationWorker(store engine.Store, dispatcher *engine.Dispatcher, cronSpec string, logger *log.Logger) *AutomationWorker {
	return &AutomationWorker{
		store:      store,
		dispatcher: dispatcher,
		cronSpec:   cronSpec,
		logger:     logger,
	}
}

// Start schedules dispatch passes until the context is cancelled.
func (aw *AutomationWorker) Start(ctx context.Context) {
	aw.logger.Println("Automation worker started")

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(aw.cronSpec, func() {
		aw.runAllUsers(ctx)
	}); err != nil {
		aw.logger.Printf("Invalid dispatch cron spec %q: %v", aw.cronSpec, err)
		return
	}
	scheduler.Start()

	<-ctx.Done()
	aw.logger.Println("Automation worker shutting down...")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
}

func (aw *AutomationWorker) runAllUsers(ctx context.Context) {
	userIDs, err := aw.store.UsersWithActiveRules(ctx)
	if err != nil {
		aw.logger.Printf("Error fetching users with active rules: %v", err)
		return
	}

	for _, userID := range userIDs {
		report, err := aw.dispatcher.RunPass(ctx, userID)
		if err != nil {
			aw.logger.Printf("Error running dispatch pass for user %d: %v", userID, err)
			continue
		}

		for _, result := range report.Results {
			if !result.Success {
				aw.logger.Printf("Rule %d (%s) failed for user %d: %s",
					result.RuleID, result.RuleName, userID, result.Error)
			}
		}
	}
}
