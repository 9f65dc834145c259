package updater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Snapshot is the most recent update check, scheduled or manual
type Snapshot struct {
	State       Status       `json:"state"`
	Result      *CheckResult `json:"result,omitempty"`
	CheckedAt   *time.Time   `json:"checked_at,omitempty"`
	NextCheckAt *time.Time   `json:"next_check_at,omitempty"`
	Schedule    string       `json:"schedule,omitempty"`
}

// Scheduler runs update checks on a cron schedule and remembers the last
// result. An empty schedule disables background checks; manual checks
// through Check are still recorded.
type Scheduler struct {
	checker  *Checker
	schedule string
	cron     *cron.Cron
	entry    cron.EntryID
	logger   *zap.Logger

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	last      *CheckResult
	checkedAt time.Time
}

// NewScheduler validates schedule and creates a stopped scheduler
func NewScheduler(checker *Checker, schedule string, logger *zap.Logger) (*Scheduler, error) {
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid update check schedule %q: %w", schedule, err)
		}
	}

	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		checker:  checker,
		schedule: schedule,
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		logger:   logger,
	}, nil
}

// Checker returns the underlying checker
func (s *Scheduler) Checker() *Checker {
	return s.checker
}

// Start registers the check job and starts the cron loop. Jobs run with a
// context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("update scheduler already running")
	}
	if s.schedule == "" {
		s.logger.Info("Background update checks disabled")
		return nil
	}

	jobCtx, cancel := context.WithCancel(ctx)
	entry, err := s.cron.AddFunc(s.schedule, func() { s.Check(jobCtx) })
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule update check: %w", err)
	}

	s.entry = entry
	s.cancel = cancel
	s.running = true
	s.cron.Start()

	s.logger.Info("Update scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running check to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entry)

	s.logger.Info("Update scheduler stopped")
}

// Check runs one update check and records its result. A check refused
// because another is running is returned but not recorded.
func (s *Scheduler) Check(ctx context.Context) *CheckResult {
	result := s.checker.Check(ctx)
	if result.Status == StatusChecking {
		return result
	}

	s.mu.Lock()
	s.last = result
	s.checkedAt = s.checker.now()
	s.mu.Unlock()

	return result
}

// Snapshot returns the last recorded check and the next scheduled run
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{State: s.checker.State(), Result: s.last, Schedule: s.schedule}
	if !s.checkedAt.IsZero() {
		checked := s.checkedAt
		snap.CheckedAt = &checked
	}
	if s.running {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			snap.NextCheckAt = &next
		}
	}
	return snap
}

// cronLogger routes cron's internal logging through zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
