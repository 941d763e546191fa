package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"jobtrail/models"
)

const (
	// collaboratorTimeout bounds every external call made by an executor
	collaboratorTimeout = 10 * time.Second

	// maxGenerateWorkers bounds the generation fan-out: each job costs two
	// collaborator calls (resume + cover letter)
	maxGenerateWorkers = 3
)

// Document is an artifact produced by a generation collaborator
type Document struct {
	Kind    string `json:"kind"` // resume, cover_letter
	JobID   uint   `json:"job_id"`
	Content string `json:"content"`
}

// Generator is the resume/cover-letter generation collaborator, treated as a
// black box behind a timeout.
type Generator interface {
	GenerateResume(ctx context.Context, job models.Job, tone string) (*Document, error)
	GenerateCoverLetter(ctx context.Context, job models.Job, tone string) (*Document, error)
}

// Notifier is the notification sink. Delivery guarantees beyond "submitted
// once" are the sink's problem, not the engine's.
type Notifier interface {
	Notify(ctx context.Context, userID uint, subject, message string, payload interface{}) error
}

// Outcome aggregates the effects of one rule execution
type Outcome struct {
	RemindersCreated  int      `json:"reminders_created,omitempty"`
	PackagesGenerated int      `json:"packages_generated,omitempty"`
	JobsArchived      int      `json:"jobs_archived,omitempty"`
	JobsNotified      int      `json:"jobs_notified,omitempty"`
	AlreadyHandled    int      `json:"already_handled,omitempty"`
	Errors            []string `json:"errors,omitempty"`
}

// Executor performs the side effect of one rule kind over the filtered
// target list. Partial failures are collected into the Outcome; a returned
// error means the rule's remaining work was abandoned.
type Executor interface {
	Execute(ctx context.Context, rule *models.AutomationRule, targets []Target) (*Outcome, error)
}

// executorFor selects the executor for a rule kind. The switch is the single
// place that enumerates the closed kind set: a new kind fails here until an
// executor exists for it.
func (d *Dispatcher) executorFor(kind models.RuleKind) (Executor, error) {
	switch kind {
	case models.RuleKindGeneratePackage:
		return &generatePackageExecutor{generator: d.generator}, nil
	case models.RuleKindFollowUpReminder:
		return &followUpExecutor{store: d.store, clock: d.clock}, nil
	case models.RuleKindDeadlineReminder:
		return &deadlineExecutor{notifier: d.notifier, clock: d.clock}, nil
	case models.RuleKindStatusUpdate:
		return &statusUpdateExecutor{store: d.store}, nil
	}
	return nil, ErrUnknownRuleKind
}

// followUpExecutor creates one live reminder per target. A duplicate insert
// (lost race with a concurrent pass) counts as already handled.
type followUpExecutor struct {
	store Store
	clock Clock
}

func (e *followUpExecutor) Execute(ctx context.Context, rule *models.AutomationRule, targets []Target) (*Outcome, error) {
	outcome := &Outcome{}
	now := e.clock.Now()

	for _, target := range targets {
		rendered, err := RenderFollowUpTemplate(target.ReminderType, &target.Job)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("job %d: %v", target.Job.ID, err))
			continue
		}

		reminder := &models.FollowUpReminder{
			UserID:        rule.UserID,
			JobID:         target.Job.ID,
			ReminderType:  target.ReminderType,
			ScheduledDate: now,
			EmailTemplate: rendered,
			AutoGenerated: true,
		}

		switch err := e.store.CreateReminder(ctx, reminder); {
		case err == nil:
			outcome.RemindersCreated++
		case err == ErrDuplicateReminder:
			outcome.AlreadyHandled++
		default:
			// Gateway failure aborts this rule's remaining targets
			return outcome, err
		}
	}
	return outcome, nil
}

// deadlineExecutor submits one batched notification for the whole pass;
// nothing is persisted.
type deadlineExecutor struct {
	notifier Notifier
	clock    Clock
}

type deadlineItem struct {
	JobID    uint   `json:"job_id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Deadline string `json:"deadline"`
	DaysLeft int    `json:"days_left"`
}

func (e *deadlineExecutor) Execute(ctx context.Context, rule *models.AutomationRule, targets []Target) (*Outcome, error) {
	outcome := &Outcome{}
	if len(targets) == 0 {
		return outcome, nil
	}

	now := e.clock.Now()
	items := make([]deadlineItem, 0, len(targets))
	var lines []string
	for _, target := range targets {
		deadline := *target.Job.ApplicationDeadline
		daysLeft := DaysUntil(now, deadline)
		items = append(items, deadlineItem{
			JobID:    target.Job.ID,
			Title:    target.Job.Title,
			Company:  target.Job.Company,
			Deadline: deadline.Format("2006-01-02"),
			DaysLeft: daysLeft,
		})
		lines = append(lines, fmt.Sprintf("- %s at %s: due %s (%d days left)",
			target.Job.Title, target.Job.Company, deadline.Format("Jan 2"), daysLeft))
	}

	subject := fmt.Sprintf("%d application deadline(s) approaching", len(items))
	message := "The following application deadlines are coming up:\n" + strings.Join(lines, "\n")

	notifyCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()
	if err := e.notifier.Notify(notifyCtx, rule.UserID, subject, message, items); err != nil {
		return outcome, &CollaboratorError{Collaborator: "notification sink", Err: err}
	}

	outcome.JobsNotified = len(items)
	return outcome, nil
}

// statusUpdateExecutor archives the selected jobs in one bulk write
type statusUpdateExecutor struct {
	store Store
}

func (e *statusUpdateExecutor) Execute(ctx context.Context, rule *models.AutomationRule, targets []Target) (*Outcome, error) {
	outcome := &Outcome{}
	if len(targets) == 0 {
		return outcome, nil
	}

	jobIDs := make([]uint, 0, len(targets))
	for _, target := range targets {
		jobIDs = append(jobIDs, target.Job.ID)
	}

	archived, err := e.store.ArchiveJobs(ctx, rule.UserID, jobIDs)
	if err != nil {
		return outcome, err
	}
	outcome.JobsArchived = int(archived)
	return outcome, nil
}

// generatePackageExecutor fans out to the generation collaborators with a
// bounded worker pool. One job's failure never fails the rule; per-job
// errors ride along in the partial outcome.
type generatePackageExecutor struct {
	generator Generator
}

func (e *generatePackageExecutor) Execute(ctx context.Context, rule *models.AutomationRule, targets []Target) (*Outcome, error) {
	outcome := &Outcome{}
	if len(targets) == 0 {
		return outcome, nil
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, maxGenerateWorkers)
	)

	for _, target := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(job models.Job) {
			defer wg.Done()
			defer func() { <-sem }()

			err := e.generatePackage(ctx, job, rule.ActionConfig.Tone)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.Errors = append(outcome.Errors, fmt.Sprintf("job %d: %v", job.ID, err))
				return
			}
			outcome.PackagesGenerated++
		}(target.Job)
	}
	wg.Wait()

	return outcome, nil
}

func (e *generatePackageExecutor) generatePackage(ctx context.Context, job models.Job, tone string) error {
	resumeCtx, cancelResume := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancelResume()
	if _, err := e.generator.GenerateResume(resumeCtx, job, tone); err != nil {
		return &CollaboratorError{Collaborator: "resume generator", Err: err}
	}

	letterCtx, cancelLetter := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancelLetter()
	if _, err := e.generator.GenerateCoverLetter(letterCtx, job, tone); err != nil {
		return &CollaboratorError{Collaborator: "cover letter generator", Err: err}
	}
	return nil
}
