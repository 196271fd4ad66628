// Package scheduler registers cron-triggered suite replays. One
// Scheduler owns a single robfig/cron/v3 instance for the process
// lifetime; each active RunSchedule maps to one registered cron.EntryID
// so an update or delete can cancel its prior registration before
// (re)registering, atomically from the caller's point of view.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/events"
	"github.com/santhoshkumr96/orchestapi/internal/logging"
	"github.com/santhoshkumr96/orchestapi/internal/suiteexec"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// parser accepts both 5-field (Unix) and 6-field (with seconds) cron
// expressions. robfig/cron/v3 has no native 5-or-6 auto-detection, so
// normalizeExpr prepends "0 " to a 5-field expression before handing it
// to this parser.
var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// SuiteSource resolves the (suite, environment) pair a schedule replays.
// Backed by internal/config in production; a test double in unit tests.
type SuiteSource interface {
	Suite(id string) (*suite.TestSuite, error)
	Environment(id string) (*suite.Environment, error)
}

// Store persists RunSchedule bookkeeping (lastRunAt/nextRunAt) after
// each firing. internal/config's Store implements it by rewriting the
// schedule's entry in its YAML fixture file; unit tests use an in-memory
// double.
type Store interface {
	Save(sched runrec.RunSchedule) error
}

// Scheduler owns the process-lifetime cron runner and the
// scheduleId -> cron.EntryID registration map.
type Scheduler struct {
	cron   *cron.Cron
	engine *suiteexec.Engine
	source SuiteSource
	store  Store
	log    *logging.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	specs   map[string]runrec.RunSchedule
}

// New builds a Scheduler. Call Start to begin firing registered
// schedules; Stop releases the underlying cron goroutine.
func New(engine *suiteexec.Engine, source SuiteSource, store Store, log *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		engine:  engine,
		source:  source,
		store:   store,
		log:     log,
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]runrec.RunSchedule),
	}
}

// Start begins the cron runner in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop blocks until the running job (if any) completes, then stops the
// cron runner.
func (s *Scheduler) Stop(ctx context.Context) {
	<-s.cron.Stop().Done()
}

// LoadAll registers one cron trigger per active schedule. Inactive schedules are skipped; Register rejects a
// malformed cron expression for any individual schedule without
// aborting the rest.
func (s *Scheduler) LoadAll(schedules []runrec.RunSchedule) []error {
	var errs []error
	for _, sched := range schedules {
		if !sched.Active {
			continue
		}
		if err := s.Register(sched); err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", sched.ID, err))
		}
	}
	return errs
}

// Register adds or updates a schedule's cron trigger. If sched.ID is
// already registered, the prior entry is cancelled first.
func (s *Scheduler) Register(sched runrec.RunSchedule) error {
	normalized, err := normalizeExpr(sched.CronExpr)
	if err != nil {
		return apperrors.NewValidationError("cronExpr", err.Error(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prevID, ok := s.entries[sched.ID]; ok {
		s.cron.Remove(prevID)
		delete(s.entries, sched.ID)
	}

	if !sched.Active {
		delete(s.specs, sched.ID)
		return nil
	}

	entryID, err := s.cron.AddFunc(normalized, s.fire(sched.ID))
	if err != nil {
		return apperrors.NewValidationError("cronExpr", err.Error(), err)
	}
	s.entries[sched.ID] = entryID
	s.specs[sched.ID] = sched
	return nil
}

// Unregister cancels sched's cron trigger and soft-deletes its
// bookkeeping entry.
func (s *Scheduler) Unregister(scheduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[scheduleID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, scheduleID)
	}
	delete(s.specs, scheduleID)
}

// fire builds the cron.FuncJob invoked when scheduleID's trigger fires.
// If the schedule was disabled or deleted between firing and the
// process start, the job finds no spec and cancels its own entry
// instead of running.
func (s *Scheduler) fire(scheduleID string) func() {
	return func() {
		s.mu.Lock()
		sched, ok := s.specs[scheduleID]
		s.mu.Unlock()
		if !ok {
			s.Unregister(scheduleID)
			return
		}

		now := time.Now()
		if err := s.runOnce(sched); err != nil {
			// Scheduler-side exceptions are logged; nextRunAt is still
			// updated so the schedule keeps firing.
			s.log.With("scheduleId", scheduleID).Error("scheduled run failed", "error", err)
		}

		s.mu.Lock()
		sched.LastRunAt = now
		if entryID, ok := s.entries[scheduleID]; ok {
			sched.NextRunAt = s.cron.Entry(entryID).Next
		}
		s.specs[scheduleID] = sched
		s.mu.Unlock()

		if s.store != nil {
			if err := s.store.Save(sched); err != nil {
				s.log.With("scheduleId", scheduleID).Error("failed to persist schedule bookkeeping", "error", err)
			}
		}
	}
}

func (s *Scheduler) runOnce(sched runrec.RunSchedule) error {
	def, err := s.source.Suite(sched.SuiteID)
	if err != nil {
		return err
	}
	env, err := s.source.Environment(sched.EnvironmentID)
	if err != nil {
		return err
	}

	runID := fmt.Sprintf("%s-%d", sched.ID, time.Now().UnixNano())
	ctx := context.Background()
	_, err = s.engine.Run(ctx, def, env, suiteexec.RunOptions{
		RunID:          runID,
		Trigger:        runrec.TriggerScheduled,
		ScheduleID:     sched.ID,
		Sink:           events.Nop,
		NonInteractive: true,
	})
	return err
}

// PreviewNext returns the next n fire times for cronExpr without
// registering anything.
func PreviewNext(cronExpr string, n int, from time.Time) ([]time.Time, error) {
	normalized, err := normalizeExpr(cronExpr)
	if err != nil {
		return nil, err
	}
	schedule, err := parser.Parse(normalized)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = schedule.Next(next)
		out = append(out, next)
	}
	return out, nil
}

// normalizeExpr prepends "0 " (second=0) to a 5-field expression so it
// parses as 6-field; a 6-field expression passes through unchanged.
func normalizeExpr(expr string) (string, error) {
	fields := strings.Fields(expr)
	switch len(fields) {
	case 5:
		return "0 " + expr, nil
	case 6:
		return expr, nil
	default:
		return "", fmt.Errorf("cron expression %q must have 5 or 6 fields, got %d", expr, len(fields))
	}
}
