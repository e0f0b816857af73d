package infra

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Default schedules
const (
	DefaultSweepSpec   = "@every 1m"
	DefaultRevalueSpec = "*/1 * * * *"

	visitorMaxIdle = 3 * time.Minute
	jobTimeout     = 30 * time.Second
)

// Sweepable drops expired entries and reports how many
type Sweepable interface {
	Sweep(ctx context.Context) (int, error)
}

// VisitorCleaner forgets idle rate-limit buckets
type VisitorCleaner interface {
	Cleanup(maxIdle time.Duration) int
}

// Revaluer marks positions to market
type Revaluer interface {
	RevalueAll(ctx context.Context) (int, error)
}

// SchedulerRecorder receives sweep results and store gauges
type SchedulerRecorder interface {
	Swept(kind string, n int)
	SetStoreCounts(counts map[string]int)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	log      *zap.Logger
	recorder SchedulerRecorder

	mu       sync.Mutex
	sweepers map[string]Sweepable
	limiter  VisitorCleaner
	revaluer Revaluer
	counts   func() map[string]int
}

// NewScheduler creates a new scheduler; recorder may be nil
func NewScheduler(log *zap.Logger, recorder SchedulerRecorder) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		log:      log,
		recorder: recorder,
		sweepers: make(map[string]Sweepable),
	}
}

// AddSweeper registers a store to sweep under kind
func (s *Scheduler) AddSweeper(kind string, sw Sweepable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepers[kind] = sw
}

// SetLimiter registers the rate limiter for idle-visitor cleanup
func (s *Scheduler) SetLimiter(l VisitorCleaner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = l
}

// SetRevaluer enables the mark-to-market job
func (s *Scheduler) SetRevaluer(r Revaluer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revaluer = r
}

// SetStoreCounter publishes record counts on every sweep
func (s *Scheduler) SetStoreCounter(fn func() map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = fn
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start(sweepSpec, revalueSpec string) error {
	if _, err := s.cron.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.SweepNow(ctx)
	}); err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.mu.Lock()
	hasRevaluer := s.revaluer != nil
	s.mu.Unlock()

	if hasRevaluer {
		if _, err := s.cron.AddFunc(revalueSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, err := s.RevalueNow(ctx); err != nil {
				s.log.Error("revaluation failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("failed to add revaluation job: %w", err)
		}
	}

	s.cron.Start()
	s.log.Info("[OK] Scheduler started",
		zap.String("sweep", sweepSpec),
		zap.Bool("revaluation", hasRevaluer),
	)
	return nil
}

// SweepNow runs one sweep pass over every registered store
func (s *Scheduler) SweepNow(ctx context.Context) map[string]int {
	s.mu.Lock()
	kinds := make([]string, 0, len(s.sweepers))
	sweepers := make(map[string]Sweepable, len(s.sweepers))
	for kind, sw := range s.sweepers {
		kinds = append(kinds, kind)
		sweepers[kind] = sw
	}
	limiter := s.limiter
	counts := s.counts
	s.mu.Unlock()
	sort.Strings(kinds)

	removed := make(map[string]int, len(kinds)+1)
	for _, kind := range kinds {
		n, err := sweepers[kind].Sweep(ctx)
		if err != nil {
			s.log.Error("sweep failed", zap.String("kind", kind), zap.Error(err))
			continue
		}
		removed[kind] = n
	}
	if limiter != nil {
		removed["rate_limit_visitor"] = limiter.Cleanup(visitorMaxIdle)
	}

	if s.recorder != nil {
		for kind, n := range removed {
			s.recorder.Swept(kind, n)
		}
		if counts != nil {
			s.recorder.SetStoreCounts(counts())
		}
	}

	s.log.Debug("sweep complete", zap.Any("removed", removed))
	return removed
}

// RevalueNow runs the revaluation job once
func (s *Scheduler) RevalueNow(ctx context.Context) (int, error) {
	s.mu.Lock()
	r := s.revaluer
	s.mu.Unlock()

	if r == nil {
		return 0, nil
	}
	return r.RevalueAll(ctx)
}

// Stop stops the scheduler and waits up to timeout for running jobs
func (s *Scheduler) Stop(timeout time.Duration) {
	s.log.Info("Stopping scheduler...")
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.log.Info("[OK] Scheduler stopped")
	case <-time.After(timeout):
		s.log.Warn("scheduler stop timed out with jobs still running")
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
