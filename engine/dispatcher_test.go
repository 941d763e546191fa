package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"jobtrail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultFor(t *testing.T, report *Report, ruleID uint) RuleResult {
	t.Helper()
	for _, result := range report.Results {
		if result.RuleID == ruleID {
			return result
		}
	}
	t.Fatalf("no result for rule %d", ruleID)
	return RuleResult{}
}

func TestRunPassTouchesRuleWithoutTargets(t *testing.T) {
	store := newFakeStore()
	rule := store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "follow up",
		Kind:   models.RuleKindFollowUpReminder,
	})

	dispatcher := newTestDispatcher(store, &fakeNotifier{}, &fakeGenerator{})
	report, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)

	assert.NotEmpty(t, report.PassID)
	assert.Equal(t, 1, report.ProcessedRules)

	result := resultFor(t, report, rule.ID)
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	require.NotNil(t, result.Result)
	assert.Zero(t, result.Result.RemindersCreated)

	// Checked counts as executed even when nothing fired
	assert.Equal(t, testNow, store.touched[rule.ID])
}

func TestRunPassCreatesFollowUpReminderOnce(t *testing.T) {
	store := newFakeStore()
	rule := store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "follow up",
		Kind:   models.RuleKindFollowUpReminder,
	})
	store.addJob(testJob(0, models.JobStatusApplied, daysAgo(10)))

	dispatcher := newTestDispatcher(store, &fakeNotifier{}, &fakeGenerator{})

	report, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)
	result := resultFor(t, report, rule.ID)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Result.RemindersCreated)
	assert.Equal(t, 1, store.liveReminderCount())

	// The second pass finds the live reminder and creates nothing
	report, err = dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)
	result = resultFor(t, report, rule.ID)
	assert.True(t, result.Success)
	assert.Zero(t, result.Result.RemindersCreated)
	assert.Equal(t, 1, store.liveReminderCount())
}

func TestRunPassRecreatesAfterDismissal(t *testing.T) {
	store := newFakeStore()
	store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "follow up",
		Kind:   models.RuleKindFollowUpReminder,
	})
	store.addJob(testJob(0, models.JobStatusApplied, daysAgo(10)))

	dispatcher := newTestDispatcher(store, &fakeNotifier{}, &fakeGenerator{})
	_, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, store.liveReminderCount())

	// Dismissal is not permanent suppression: the trigger still holds, so
	// the next pass creates a fresh reminder.
	dismissed := testNow
	store.reminders[0].DismissedAt = &dismissed

	_, err = dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, store.liveReminderCount())
	assert.Len(t, store.reminders, 2)
}

func TestRunPassIsolatesFailingRule(t *testing.T) {
	store := newFakeStore()
	deadlineRule := store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "deadline alerts",
		Kind:   models.RuleKindDeadlineReminder,
	})
	archiveRule := store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "archive stale rejections",
		Kind:   models.RuleKindStatusUpdate,
	})

	withDeadline := testJob(0, models.JobStatusApplied, daysAgo(1))
	withDeadline.ApplicationDeadline = timePtr(daysAhead(1))
	store.addJob(withDeadline)
	store.addJob(testJob(0, models.JobStatusRejected, daysAgo(40)))

	notifier := &fakeNotifier{err: errors.New("smtp down")}
	dispatcher := newTestDispatcher(store, notifier, &fakeGenerator{})

	report, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	failed := resultFor(t, report, deadlineRule.ID)
	assert.False(t, failed.Success)
	assert.Contains(t, failed.Error, "notification sink")

	succeeded := resultFor(t, report, archiveRule.ID)
	assert.True(t, succeeded.Success)
	assert.Equal(t, 1, succeeded.Result.JobsArchived)

	// Both rules were checked regardless of the failure
	assert.Contains(t, store.touched, deadlineRule.ID)
	assert.Contains(t, store.touched, archiveRule.ID)
}

func TestRunPassContainsPanickingRule(t *testing.T) {
	store := newFakeStore()
	deadlineRule := store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "deadline alerts",
		Kind:   models.RuleKindDeadlineReminder,
	})
	followRule := store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "follow up",
		Kind:   models.RuleKindFollowUpReminder,
	})

	withDeadline := testJob(0, models.JobStatusApplied, daysAgo(10))
	withDeadline.ApplicationDeadline = timePtr(daysAhead(1))
	store.addJob(withDeadline)

	notifier := &fakeNotifier{panicMsg: "notifier exploded"}
	dispatcher := newTestDispatcher(store, notifier, &fakeGenerator{})

	report, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)

	panicked := resultFor(t, report, deadlineRule.ID)
	assert.False(t, panicked.Success)
	assert.Contains(t, panicked.Error, "panic: notifier exploded")

	unaffected := resultFor(t, report, followRule.ID)
	assert.True(t, unaffected.Success)
	assert.Equal(t, 1, unaffected.Result.RemindersCreated)

	assert.Contains(t, store.touched, deadlineRule.ID)
}

func TestRunPassReportsInvalidRule(t *testing.T) {
	store := newFakeStore()
	invalid := store.addRule(models.AutomationRule{
		UserID:            1,
		Name:              "broken",
		Kind:              models.RuleKindFollowUpReminder,
		TriggerConditions: models.TriggerConditions{ElapsedDays: 700},
	})
	valid := store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "archive stale rejections",
		Kind:   models.RuleKindStatusUpdate,
	})
	store.addJob(testJob(0, models.JobStatusRejected, daysAgo(40)))

	dispatcher := newTestDispatcher(store, &fakeNotifier{}, &fakeGenerator{})
	report, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)

	bad := resultFor(t, report, invalid.ID)
	assert.False(t, bad.Success)
	assert.Contains(t, bad.Error, "invalid configuration")

	good := resultFor(t, report, valid.ID)
	assert.True(t, good.Success)
	assert.Equal(t, 1, good.Result.JobsArchived)
}

func TestRunPassScopedToUser(t *testing.T) {
	store := newFakeStore()
	store.addRule(models.AutomationRule{
		UserID: 1,
		Name:   "follow up",
		Kind:   models.RuleKindFollowUpReminder,
	})
	otherUsersJob := testJob(0, models.JobStatusApplied, daysAgo(10))
	otherUsersJob.UserID = 2
	store.addJob(otherUsersJob)

	dispatcher := newTestDispatcher(store, &fakeNotifier{}, &fakeGenerator{})
	_, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, store.liveReminderCount())
}

func TestWithProgressStreamsEachResult(t *testing.T) {
	store := newFakeStore()
	store.addRule(models.AutomationRule{UserID: 1, Name: "follow up", Kind: models.RuleKindFollowUpReminder})
	store.addRule(models.AutomationRule{UserID: 1, Name: "deadline alerts", Kind: models.RuleKindDeadlineReminder})
	store.addRule(models.AutomationRule{UserID: 1, Name: "archive", Kind: models.RuleKindStatusUpdate})

	base := newTestDispatcher(store, &fakeNotifier{}, &fakeGenerator{})

	var (
		mu       sync.Mutex
		streamed []RuleResult
	)
	dispatcher := base.WithProgress(func(result RuleResult) {
		mu.Lock()
		streamed = append(streamed, result)
		mu.Unlock()
	})

	report, err := dispatcher.RunPass(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, streamed, 3)
	assert.Len(t, report.Results, 3)

	// The base dispatcher stays callback-free
	assert.Nil(t, base.progress)
}
