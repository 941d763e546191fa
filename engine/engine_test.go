package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"jobtrail/models"

	"gorm.io/gorm"
)

// testNow is the pinned instant the engine tests run at
var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time   { return testNow.AddDate(0, 0, -n) }
func daysAhead(n int) time.Time { return testNow.AddDate(0, 0, n) }

func timePtr(t time.Time) *time.Time { return &t }

func testJob(id uint, status models.JobStatus, statusAt time.Time) models.Job {
	return models.Job{
		Model:           gorm.Model{ID: id, CreatedAt: statusAt},
		UserID:          1,
		Title:           "Backend Engineer",
		Company:         "Acme",
		Status:          status,
		StatusUpdatedAt: timePtr(statusAt),
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fakeStore is the in-memory Store the engine tests run against. It mirrors
// the production gateway's contracts: duplicate live reminders are rejected,
// archiving skips already-archived rows, saves write back by ID.
type fakeStore struct {
	mu        sync.Mutex
	rules     []models.AutomationRule
	jobs      []models.Job
	reminders []models.FollowUpReminder
	touched   map[uint]time.Time
	nextID    uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{touched: make(map[uint]time.Time)}
}

func (s *fakeStore) addRule(rule models.AutomationRule) models.AutomationRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rule.ID = s.nextID
	if rule.UserID == 0 {
		rule.UserID = 1
	}
	rule.IsActive = true
	s.rules = append(s.rules, rule)
	return rule
}

func (s *fakeStore) addJob(job models.Job) models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == 0 {
		s.nextID++
		job.ID = s.nextID
	}
	if job.UserID == 0 {
		job.UserID = 1
	}
	s.jobs = append(s.jobs, job)
	return job
}

func (s *fakeStore) liveReminderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.reminders {
		if s.reminders[i].IsLive() {
			count++
		}
	}
	return count
}

func (s *fakeStore) ActiveRules(_ context.Context, userID uint) ([]models.AutomationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AutomationRule
	for _, rule := range s.rules {
		if rule.UserID == userID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *fakeStore) UsersWithActiveRules(_ context.Context) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uint]bool)
	var out []uint
	for _, rule := range s.rules {
		if rule.IsActive && !seen[rule.UserID] {
			seen[rule.UserID] = true
			out = append(out, rule.UserID)
		}
	}
	return out, nil
}

func (s *fakeStore) JobsByUser(_ context.Context, userID uint) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Job
	for _, job := range s.jobs {
		if job.UserID == userID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *fakeStore) ArchiveJobs(_ context.Context, userID uint, jobIDs []uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uint]bool, len(jobIDs))
	for _, id := range jobIDs {
		wanted[id] = true
	}
	var archived int64
	for i := range s.jobs {
		if s.jobs[i].UserID == userID && wanted[s.jobs[i].ID] && !s.jobs[i].IsArchived {
			s.jobs[i].IsArchived = true
			archived++
		}
	}
	return archived, nil
}

func (s *fakeStore) LiveReminderExists(_ context.Context, jobID uint, reminderType models.ReminderType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveReminderExistsLocked(jobID, reminderType), nil
}

func (s *fakeStore) liveReminderExistsLocked(jobID uint, reminderType models.ReminderType) bool {
	for i := range s.reminders {
		r := &s.reminders[i]
		if r.JobID == jobID && r.ReminderType == reminderType && r.IsLive() {
			return true
		}
	}
	return false
}

func (s *fakeStore) CreateReminder(_ context.Context, reminder *models.FollowUpReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveReminderExistsLocked(reminder.JobID, reminder.ReminderType) {
		return ErrDuplicateReminder
	}
	s.nextID++
	reminder.ID = s.nextID
	s.reminders = append(s.reminders, *reminder)
	return nil
}

func (s *fakeStore) ReminderByID(_ context.Context, userID, reminderID uint) (*models.FollowUpReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reminders {
		if s.reminders[i].ID == reminderID && s.reminders[i].UserID == userID {
			copied := s.reminders[i]
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStore) SaveReminder(_ context.Context, reminder *models.FollowUpReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reminders {
		if s.reminders[i].ID == reminder.ID {
			s.reminders[i] = *reminder
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *fakeStore) PendingReminders(_ context.Context, userID uint, now time.Time) ([]models.FollowUpReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FollowUpReminder
	for i := range s.reminders {
		r := s.reminders[i]
		if r.UserID == userID && r.IsPending(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out, nil
}

func (s *fakeStore) TouchRuleExecuted(_ context.Context, ruleID uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[ruleID] = at
	return nil
}

type notifyCall struct {
	userID  uint
	subject string
	message string
	payload interface{}
}

type fakeNotifier struct {
	mu       sync.Mutex
	calls    []notifyCall
	err      error
	panicMsg string
}

func (n *fakeNotifier) Notify(_ context.Context, userID uint, subject, message string, payload interface{}) error {
	if n.panicMsg != "" {
		panic(n.panicMsg)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, notifyCall{userID: userID, subject: subject, message: message, payload: payload})
	return nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	resumes  []uint
	letters  []uint
	failJobs map[uint]bool
}

func (g *fakeGenerator) GenerateResume(_ context.Context, job models.Job, tone string) (*Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failJobs[job.ID] {
		return nil, errors.New("generation backend unavailable")
	}
	g.resumes = append(g.resumes, job.ID)
	return &Document{Kind: "resume", JobID: job.ID, Content: "resume for " + job.Title}, nil
}

func (g *fakeGenerator) GenerateCoverLetter(_ context.Context, job models.Job, tone string) (*Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failJobs[job.ID] {
		return nil, errors.New("generation backend unavailable")
	}
	g.letters = append(g.letters, job.ID)
	return &Document{Kind: "cover_letter", JobID: job.ID, Content: "cover letter for " + job.Title}, nil
}

func newTestDispatcher(store *fakeStore, notifier *fakeNotifier, generator *fakeGenerator) *Dispatcher {
	return NewDispatcher(store, notifier, generator, discardLogger()).
		WithClock(NewFixedClock(testNow))
}
