// Package schedule runs background jobs at fixed intervals.
//
//	s := schedule.New()
//	s.Every(10*time.Minute).Name("checkout.reconcile").Run(sweep)
//	s.Start(ctx) // stops when ctx is done
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/huertohogar/huerto/pkg/logger"
)

// Task is one run of a job. Errors are logged; the job keeps its schedule.
type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	immediate bool
	task      Task

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler dispatches registered jobs. The zero value is not usable; create
// one with New.
type Scheduler struct {
	tick time.Duration

	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

// New returns a Scheduler that checks for due jobs once per second.
func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Builder configures one job before Run registers it.
type Builder struct {
	s *Scheduler
	e *entry
}

// Every starts a job that runs each interval.
func (s *Scheduler) Every(interval time.Duration) *Builder {
	return &Builder{s: s, e: &entry{interval: interval}}
}

// Name gives the job an identifier for logs.
func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// Immediately runs the job on the first tick instead of after one interval.
func (b *Builder) Immediately() *Builder {
	b.e.immediate = true
	return b
}

// Run registers task.
func (b *Builder) Run(task Task) {
	b.e.task = task
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
}

// Start dispatches due jobs in the background until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	started := time.Now()
	s.mu.Lock()
	for _, e := range s.entries {
		if !e.immediate {
			e.lastRun = started
		}
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	logger.Info("schedule: scheduler started", "jobs", len(s.List()))
}

// Wait blocks until the scheduler has stopped and every dispatched run has
// returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule: scheduler stopped")
			return
		case now := <-ticker.C:
			s.mu.Lock()
			current := make([]*entry, len(s.entries))
			copy(current, s.entries)
			s.mu.Unlock()

			for _, e := range current {
				s.dispatch(ctx, e, now)
			}
		}
	}
}

// dispatch starts e when due. A job never overlaps with itself.
func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if e.running || (!e.lastRun.IsZero() && now.Sub(e.lastRun) < e.interval) {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
		}()

		logger.Debug("schedule: running task", "id", e.id)
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "id", e.id, "error", err)
		}
	}()
}

// List describes the registered jobs, sorted by id.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [every %s]", e.id, e.interval))
	}
	sort.Strings(out)
	return out
}
