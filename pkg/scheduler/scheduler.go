package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/utils"
	"github.com/sirupsen/logrus"
)

// ErrBusy is returned by RunNow while another run is in progress
var ErrBusy = errors.New("run already in progress")

// Job is one pipeline run
type Job func(ctx context.Context) error

type Options struct {
	Hour       int
	Minute     int
	Location   *time.Location
	Poll       time.Duration
	RunTimeout time.Duration
}

// Scheduler fires the job once a day at an exact hour and minute
type Scheduler struct {
	job     Job
	options Options
	now     func() time.Time

	guard       sync.Mutex
	lastTrigger string // date of the last trigger in the schedule timezone

	running sync.Mutex

	logger *logrus.Logger
}

func New(job Job, options Options, logger *logrus.Logger) *Scheduler {
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.Poll <= 0 {
		options.Poll = 30 * time.Second
	}
	if options.RunTimeout <= 0 {
		options.RunTimeout = 10 * time.Minute
	}

	return &Scheduler{
		job:     job,
		options: options,
		now:     time.Now,
		logger:  logger,
	}
}

// ShouldRun reports whether now is the trigger minute and the job has not
// been triggered today yet. A true answer marks today as triggered.
func (s *Scheduler) ShouldRun(now time.Time) bool {
	local := now.In(s.options.Location)
	if local.Hour() != s.options.Hour || local.Minute() != s.options.Minute {
		return false
	}

	s.guard.Lock()
	defer s.guard.Unlock()

	today := local.Format("2006-01-02")
	if s.lastTrigger == today {
		return false
	}
	s.lastTrigger = today

	return true
}

// NextRun returns the next trigger time after now
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.options.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.options.Hour, s.options.Minute, 0, 0, s.options.Location)

	s.guard.Lock()
	triggered := s.lastTrigger == local.Format("2006-01-02")
	s.guard.Unlock()

	if !next.After(local) && (triggered || local.Sub(next) >= time.Minute) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// NextRunIn returns the time left until the next trigger. Inside the
// trigger minute before the first tick the run is due and the result is 0.
func (s *Scheduler) NextRunIn(now time.Time) time.Duration {
	in := s.NextRun(now).Sub(now)
	if in < 0 {
		return 0
	}

	return in
}

// Run polls the clock until ctx is cancelled. A run blocks the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.logNext()

	ticker := time.NewTicker(s.options.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks the clock once and runs the job when it is time
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.ShouldRun(s.now()) {
		return
	}

	s.logger.Info("scheduled run triggered")
	s.running.Lock()
	s.execute(ctx)
	s.running.Unlock()

	s.logNext()
}

// RunNow executes the job immediately unless another run is in progress
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.running.TryLock() {
		return ErrBusy
	}
	defer s.running.Unlock()

	s.logger.Info("manual run triggered")
	return s.execute(ctx)
}

// Wait blocks until no run is in progress, false when timeout passes first
func (s *Scheduler) Wait(timeout time.Duration) bool {
	idle := make(chan struct{})
	go func() {
		s.running.Lock()
		s.running.Unlock()
		close(idle)
	}()

	select {
	case <-idle:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Busy reports whether a run is in progress
func (s *Scheduler) Busy() bool {
	if !s.running.TryLock() {
		return true
	}
	s.running.Unlock()

	return false
}

func (s *Scheduler) execute(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.options.RunTimeout)
	defer cancel()

	started := s.now()
	err := s.job(ctx)
	if err != nil {
		s.logger.WithField("duration", utils.FormatDuration(s.now().Sub(started))).Errorf("run failed: %v", err)
		return err
	}

	s.logger.WithField("duration", utils.FormatDuration(s.now().Sub(started))).Info("run finished")
	return nil
}

func (s *Scheduler) logNext() {
	now := s.now()
	logger := s.logger.WithField("next_run", s.NextRun(now).Format(time.RFC3339))

	in := s.NextRunIn(now)
	if in == 0 {
		logger.Info("next run is due now")
		return
	}

	logger.Infof("next run in %s", utils.FormatDuration(in))
}
