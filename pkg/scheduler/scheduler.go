// Package scheduler triggers alert passes on a fixed interval with random
// jitter in front of every periodic pass.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"ticket-hunter/pkg/alerts"
	"ticket-hunter/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
)

// Runner executes one pass over all active alerts.
type Runner interface {
	ProcessAll(ctx context.Context) (alerts.Stats, error)
}

type Config struct {
	Interval time.Duration
	Jitter   time.Duration
}

// Pass describes a finished pass.
type Pass struct {
	ID        string        `json:"id"`
	Initial   bool          `json:"initial"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Stats     alerts.Stats  `json:"stats"`
	Error     string        `json:"error,omitempty"`
}

type Status struct {
	Running  bool          `json:"running"`
	Interval time.Duration `json:"interval"`
	NextRun  *time.Time    `json:"next_run,omitempty"`
	LastPass *Pass         `json:"last_pass,omitempty"`
}

type Scheduler struct {
	runner Runner
	cfg    Config
	log    logger.Logger
	jitter func(ceiling time.Duration) time.Duration

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	last    *Pass

	// passMu serializes passes, including the initial one that runs outside
	// of cron.
	passMu sync.Mutex
}

func New(runner Runner, cfg Config, log logger.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		log:    log,
		jitter: randomJitter,
	}
}

func randomJitter(ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		return 0
	}
	return rand.N(ceiling)
}

// Start registers the interval job and then runs one pass right away,
// without jitter, before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("invalid interval %s", s.cfg.Interval)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{s.log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	entry, err := c.AddFunc("@every "+s.cfg.Interval.String(), func() { s.periodic(runCtx) })
	if err != nil {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("schedule alert pass: %w", err)
	}
	c.Start()

	s.cron, s.entry, s.cancel, s.running = c, entry, cancel, true
	s.mu.Unlock()

	s.log.Info("Scheduler started",
		logger.Duration("interval", s.cfg.Interval),
		logger.Duration("jitter", s.cfg.Jitter),
	)
	s.runPass(runCtx, true)
	return nil
}

// Stop cancels the interval job and waits for an in-flight pass to finish.
// A pending jitter sleep is abandoned.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	c, cancel := s.cron, s.cancel
	s.running, s.cron, s.cancel = false, nil, nil
	s.mu.Unlock()

	s.log.Info("Stopping scheduler")
	cancel()
	<-c.Stop().Done()

	s.passMu.Lock()
	defer s.passMu.Unlock()
	s.log.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.running, Interval: s.cfg.Interval}
	if s.running {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	if s.last != nil {
		p := *s.last
		st.LastPass = &p
	}
	return st
}

func (s *Scheduler) periodic(ctx context.Context) {
	if d := s.jitter(s.cfg.Jitter); d > 0 {
		s.log.Info("Applying jitter before pass", logger.Duration("delay", d))
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
	s.runPass(ctx, false)
}

func (s *Scheduler) runPass(ctx context.Context, initial bool) {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	if ctx.Err() != nil {
		return
	}

	p := Pass{ID: uuid.NewString(), Initial: initial, StartedAt: time.Now()}
	log := s.log.With(logger.String("pass_id", p.ID), logger.Bool("initial", initial))
	log.Info("Starting alert pass")

	stats, err := s.runner.ProcessAll(ctx)
	p.Duration = time.Since(p.StartedAt)
	p.Stats = stats
	if err != nil {
		p.Error = err.Error()
		log.Error("Alert pass failed", logger.Error(err))
	} else {
		log.Info("Alert pass finished",
			logger.Int("total", stats.Total),
			logger.Int("succeeded", stats.Succeeded),
			logger.Int("failed", stats.Failed),
			logger.Duration("duration", p.Duration),
		)
	}

	s.mu.Lock()
	s.last = &p
	s.mu.Unlock()
}

// cronLogger routes cron's own messages into the application logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
