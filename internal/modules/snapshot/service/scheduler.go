package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"portfolio_monitor/pkg/logger"
)

// Scheduler: сбор сразу на старте, дальше на каждой границе interval по часам;
// чистка раз в неделю, воскресенье 03:00 UTC.
type Scheduler struct {
	sampler     *Sampler
	interval    time.Duration
	tickTimeout time.Duration

	running  atomic.Bool
	lastTick atomic.Int64
	inflight sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}

	now func() time.Time
}

func NewScheduler(sampler *Sampler, interval, tickTimeout time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if tickTimeout <= 0 || tickTimeout > interval {
		tickTimeout = interval
	}
	return &Scheduler{
		sampler:     sampler,
		interval:    interval,
		tickTimeout: tickTimeout,
		now:         time.Now,
	}
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
	logger.Info("[SNAPSHOT] scheduler started interval=%s tick_timeout=%s", s.interval, s.tickTimeout)
}

// Stop не ждёт окончания сбора дольше ctx: недоделанный тик бросаем.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	finished := make(chan struct{})
	go func() {
		<-s.done
		s.inflight.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		logger.Warn("[SNAPSHOT] stop: abandoning in-flight tick")
		return nil
	}
}

// LastTick: время начала последнего завершённого сбора.
func (s *Scheduler) LastTick() time.Time {
	u := s.lastTick.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(0, u)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.fire(ctx)
	nextTick := nextAligned(s.now(), s.interval)
	nextClean := nextCleanup(s.now())

	for {
		tickT := time.NewTimer(nextTick.Sub(s.now()))
		cleanT := time.NewTimer(nextClean.Sub(s.now()))

		select {
		case <-ctx.Done():
			tickT.Stop()
			cleanT.Stop()
			return
		case <-tickT.C:
			cleanT.Stop()
			s.fire(ctx)
			nextTick = nextAligned(s.now(), s.interval)
		case <-cleanT.C:
			tickT.Stop()
			s.cleanup(ctx)
			nextClean = nextCleanup(s.now())
		}
	}
}

// fire запускает сбор в отдельной горутине; если прошлый ещё идёт - пропускаем тик.
func (s *Scheduler) fire(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("[SNAPSHOT] previous tick still running, skip")
		return
	}
	started := s.now()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.running.Store(false)

		tctx, cancel := context.WithTimeout(ctx, s.tickTimeout)
		defer cancel()

		s.sampler.CollectAll(tctx)
		s.lastTick.Store(started.UnixNano())
	}()
}

func (s *Scheduler) cleanup(ctx context.Context) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		cctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		s.sampler.Cleanup(cctx)
	}()
}

func nextAligned(now time.Time, interval time.Duration) time.Time {
	return now.UTC().Truncate(interval).Add(interval)
}

// nextCleanup: ближайшее воскресенье 03:00 UTC строго после now.
func nextCleanup(now time.Time) time.Time {
	now = now.UTC()
	at := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, time.UTC)
	at = at.AddDate(0, 0, (int(time.Sunday)-int(at.Weekday())+7)%7)
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}
