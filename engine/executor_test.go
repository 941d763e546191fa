package engine

import (
	"context"
	"errors"
	"testing"

	"jobtrail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpExecutorCreatesReminder(t *testing.T) {
	store := newFakeStore()
	job := store.addJob(testJob(0, models.JobStatusApplied, daysAgo(10)))

	rule := followUpRule(models.TriggerConditions{})
	executor := &followUpExecutor{store: store, clock: NewFixedClock(testNow)}

	outcome, err := executor.Execute(context.Background(), rule,
		[]Target{{Job: job, ReminderType: models.ReminderApplicationFollowUp}})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.RemindersCreated)
	assert.Zero(t, outcome.AlreadyHandled)

	require.Len(t, store.reminders, 1)
	reminder := store.reminders[0]
	assert.Equal(t, rule.UserID, reminder.UserID)
	assert.Equal(t, job.ID, reminder.JobID)
	assert.Equal(t, models.ReminderApplicationFollowUp, reminder.ReminderType)
	assert.Equal(t, testNow, reminder.ScheduledDate)
	assert.True(t, reminder.AutoGenerated)
	assert.Contains(t, reminder.EmailTemplate, job.Company)
	assert.Contains(t, reminder.EmailTemplate, job.Title)
}

func TestFollowUpExecutorDuplicateCountsAsHandled(t *testing.T) {
	store := newFakeStore()
	job := store.addJob(testJob(0, models.JobStatusApplied, daysAgo(10)))

	require.NoError(t, store.CreateReminder(context.Background(), &models.FollowUpReminder{
		UserID:        1,
		JobID:         job.ID,
		ReminderType:  models.ReminderApplicationFollowUp,
		ScheduledDate: daysAgo(2),
	}))

	executor := &followUpExecutor{store: store, clock: NewFixedClock(testNow)}
	outcome, err := executor.Execute(context.Background(), followUpRule(models.TriggerConditions{}),
		[]Target{{Job: job, ReminderType: models.ReminderApplicationFollowUp}})
	require.NoError(t, err)
	assert.Zero(t, outcome.RemindersCreated)
	assert.Equal(t, 1, outcome.AlreadyHandled)
	assert.Equal(t, 1, store.liveReminderCount())
}

func TestDeadlineExecutorBatchesOneNotification(t *testing.T) {
	first := testJob(1, models.JobStatusApplied, daysAgo(1))
	first.ApplicationDeadline = timePtr(daysAhead(1))
	second := testJob(2, models.JobStatusApplied, daysAgo(1))
	second.Company = "Globex"
	second.ApplicationDeadline = timePtr(daysAhead(3))

	notifier := &fakeNotifier{}
	executor := &deadlineExecutor{notifier: notifier, clock: NewFixedClock(testNow)}

	rule := &models.AutomationRule{UserID: 1, Kind: models.RuleKindDeadlineReminder}
	outcome, err := executor.Execute(context.Background(), rule,
		[]Target{{Job: first}, {Job: second}})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.JobsNotified)

	require.Len(t, notifier.calls, 1)
	call := notifier.calls[0]
	assert.Equal(t, uint(1), call.userID)
	assert.Contains(t, call.subject, "2 application deadline")
	assert.Contains(t, call.message, "Acme")
	assert.Contains(t, call.message, "Globex")

	items, ok := call.payload.([]deadlineItem)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].DaysLeft)
	assert.Equal(t, 3, items[1].DaysLeft)
}

func TestDeadlineExecutorNoTargetsNoNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	executor := &deadlineExecutor{notifier: notifier, clock: NewFixedClock(testNow)}

	rule := &models.AutomationRule{UserID: 1, Kind: models.RuleKindDeadlineReminder}
	outcome, err := executor.Execute(context.Background(), rule, nil)
	require.NoError(t, err)
	assert.Zero(t, outcome.JobsNotified)
	assert.Empty(t, notifier.calls)
}

func TestDeadlineExecutorNotifierFailure(t *testing.T) {
	job := testJob(1, models.JobStatusApplied, daysAgo(1))
	job.ApplicationDeadline = timePtr(daysAhead(1))

	notifier := &fakeNotifier{err: errors.New("smtp down")}
	executor := &deadlineExecutor{notifier: notifier, clock: NewFixedClock(testNow)}

	rule := &models.AutomationRule{UserID: 1, Kind: models.RuleKindDeadlineReminder}
	outcome, err := executor.Execute(context.Background(), rule, []Target{{Job: job}})
	require.Error(t, err)

	var collaboratorErr *CollaboratorError
	require.True(t, errors.As(err, &collaboratorErr))
	assert.Equal(t, "notification sink", collaboratorErr.Collaborator)
	assert.Zero(t, outcome.JobsNotified)
}

func TestStatusUpdateExecutorArchivesOnce(t *testing.T) {
	store := newFakeStore()
	first := store.addJob(testJob(0, models.JobStatusRejected, daysAgo(40)))
	second := store.addJob(testJob(0, models.JobStatusRejected, daysAgo(45)))

	executor := &statusUpdateExecutor{store: store}
	rule := &models.AutomationRule{UserID: 1, Kind: models.RuleKindStatusUpdate}
	targets := []Target{{Job: first}, {Job: second}}

	outcome, err := executor.Execute(context.Background(), rule, targets)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.JobsArchived)

	// Re-archiving the same jobs is a visible no-op
	outcome, err = executor.Execute(context.Background(), rule, targets)
	require.NoError(t, err)
	assert.Zero(t, outcome.JobsArchived)
}

func TestGeneratePackageExecutorPartialFailure(t *testing.T) {
	jobs := []Target{
		{Job: testJob(1, models.JobStatusInterested, daysAgo(1))},
		{Job: testJob(2, models.JobStatusInterested, daysAgo(1))},
		{Job: testJob(3, models.JobStatusInterested, daysAgo(1))},
	}

	generator := &fakeGenerator{failJobs: map[uint]bool{2: true}}
	executor := &generatePackageExecutor{generator: generator}

	rule := &models.AutomationRule{UserID: 1, Kind: models.RuleKindGeneratePackage}
	outcome, err := executor.Execute(context.Background(), rule, jobs)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.PackagesGenerated)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "job 2")
	assert.Contains(t, outcome.Errors[0], "resume generator")

	assert.ElementsMatch(t, []uint{1, 3}, generator.resumes)
	assert.ElementsMatch(t, []uint{1, 3}, generator.letters)
}
