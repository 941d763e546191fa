package engine

import (
	"context"
	"fmt"
	"sync"

	"jobtrail/models"
)

// DedupGuard prevents a trigger from firing twice for the same
// (rule, target) pair. For follow-up rules the check is persisted: a live
// reminder for the (job, reminder_type) pair suppresses the target. For all
// kinds, an in-memory seen-set suppresses repeats within one dispatch pass.
// Other kinds carry no persisted marker across passes; their effects are
// idempotent (re-archiving an archived job is a no-op).
type DedupGuard struct {
	store Store

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupGuard creates a guard scoped to a single dispatch pass.
func NewDedupGuard(store Store) *DedupGuard {
	return &DedupGuard{
		store: store,
		seen:  make(map[string]struct{}),
	}
}

// AlreadyHandled reports whether the action for this (rule, target) pair is
// already covered, recording the pair as handled otherwise.
func (g *DedupGuard) AlreadyHandled(ctx context.Context, rule *models.AutomationRule, target Target) (bool, error) {
	if rule.Kind == models.RuleKindFollowUpReminder {
		exists, err := g.store.LiveReminderExists(ctx, target.Job.ID, target.ReminderType)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}

	key := fmt.Sprintf("%d/%d/%s", rule.ID, target.Job.ID, target.ReminderType)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return true, nil
	}
	g.seen[key] = struct{}{}
	return false, nil
}
