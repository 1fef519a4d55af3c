package worker

import (
	"context"
	"sync"
	"time"

	"bankops/internal/orchestrator/service"
	"bankops/pkg/logger"
)

// Sweeper periodically runs the orchestrator sweep: reclaim expired leases and
// cancel idle sessions.
type Sweeper struct {
	service  service.OrchestratorService
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewSweeper(svc service.OrchestratorService, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		service:  svc,
		interval: interval,
		timeout:  interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the loop. It does nothing after Stop or on a second call.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.log.Info("Session sweeper started", "interval", s.interval)
	go s.loop()
}

func (s *Sweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.service.Sweep(ctx); err != nil {
		s.log.Error("Sweep failed", "error", err)
	}
}

// Stop ends the loop and waits for a sweep in progress to finish. Stopping a
// sweeper that never started returns at once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	close(s.stopCh)
	s.mu.Unlock()

	if started {
		<-s.done
	}
	s.log.Info("Session sweeper stopped")
}
