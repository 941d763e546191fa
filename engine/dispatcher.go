package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"jobtrail/models"

	"github.com/google/uuid"
)

// defaultRuleWorkers bounds how many rules a pass processes concurrently
const defaultRuleWorkers = 4

// RuleResult is the per-rule entry of a dispatch report
type RuleResult struct {
	RuleID   uint     `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	Kind     string   `json:"kind"`
	Success  bool     `json:"success"`
	Result   *Outcome `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Report aggregates one dispatch pass
type Report struct {
	PassID         string       `json:"pass_id"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	ProcessedRules int          `json:"processed_rules"`
	Results        []RuleResult `json:"results"`
}

// Dispatcher runs one bounded dispatch pass per invocation. It holds no
// state between passes; overlapping invocations are tolerated because the
// reminder store resolves creation races itself.
type Dispatcher struct {
	store     Store
	notifier  Notifier
	generator Generator
	clock     Clock
	logger    *log.Logger
	workers   int
	progress  func(RuleResult) // optional, nil = disabled
}

// NewDispatcher wires the engine's collaborators together.
func NewDispatcher(store Store, notifier Notifier, generator Generator, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		notifier:  notifier,
		generator: generator,
		clock:     NewClock(),
		logger:    logger,
		workers:   defaultRuleWorkers,
	}
}

// WithClock returns a dispatcher using the given clock, used by tests for
// fixed timestamps.
func (d *Dispatcher) WithClock(clock Clock) *Dispatcher {
	clone := *d
	clone.clock = clock
	return &clone
}

// WithProgress returns a dispatcher that reports each rule result through
// fn as it completes. The callback runs under the report lock, so
// implementations must be quick. A derived copy is returned so concurrent
// passes never share a callback.
func (d *Dispatcher) WithProgress(fn func(RuleResult)) *Dispatcher {
	clone := *d
	clone.progress = fn
	return &clone
}

// RunPass evaluates every active rule of one user once. Rules are
// independent: each runs under its own panic guard, and no failure leaks
// past its own result entry.
func (d *Dispatcher) RunPass(ctx context.Context, userID uint) (*Report, error) {
	rules, err := d.store.ActiveRules(ctx, userID)
	if err != nil {
		return nil, err
	}
	jobs, err := d.store.JobsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		PassID:         uuid.NewString(),
		StartedAt:      d.clock.Now(),
		ProcessedRules: len(rules),
		Results:        make([]RuleResult, 0, len(rules)),
	}
	guard := NewDedupGuard(d.store)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, d.workers)
	)

	for i := range rules {
		rule := rules[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result := d.processRule(ctx, &rule, jobs, guard)

			mu.Lock()
			report.Results = append(report.Results, result)
			if d.progress != nil {
				d.progress(result)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	report.FinishedAt = d.clock.Now()
	d.logger.Printf("Dispatch pass %s: user %d, %d rules processed", report.PassID, userID, report.ProcessedRules)
	return report, nil
}

// processRule runs evaluate → dedup → execute for a single rule and
// converts every failure mode, panics included, into a RuleResult.
func (d *Dispatcher) processRule(ctx context.Context, rule *models.AutomationRule, jobs []models.Job, guard *DedupGuard) (result RuleResult) {
	result = RuleResult{RuleID: rule.ID, RuleName: rule.Name, Kind: string(rule.Kind)}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("Rule %d panicked: %v", rule.ID, r)
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	// The rule was checked, fired or not. Recorded even when evaluation
	// fails so scheduling cadence stays observable.
	defer func() {
		if err := d.store.TouchRuleExecuted(ctx, rule.ID, d.clock.Now()); err != nil {
			d.logger.Printf("Failed to update last_executed_at for rule %d: %v", rule.ID, err)
		}
	}()

	targets, err := EvaluateRule(rule, d.clock.Now(), jobs)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	remaining := make([]Target, 0, len(targets))
	for _, target := range targets {
		handled, err := guard.AlreadyHandled(ctx, rule, target)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		if !handled {
			remaining = append(remaining, target)
		}
	}

	executor, err := d.executorFor(rule.Kind)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	outcome, err := executor.Execute(ctx, rule, remaining)
	result.Result = outcome
	if err != nil {
		d.logger.Printf("Rule %d (%s) failed: %v", rule.ID, rule.Name, err)
		result.Error = err.Error()
		return result
	}

	result.Success = true
	return result
}
