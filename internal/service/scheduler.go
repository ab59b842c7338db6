package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSchedulerInterval = 100 * time.Millisecond
	defaultSchedulerSteps    = 10
)

// SchedulerService drives every hosted agent on a fixed tick.
type SchedulerService struct {
	agents *AgentService
	logger *zap.Logger

	interval time.Duration
	steps    int
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSchedulerService(agents *AgentService, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		agents:   agents,
		logger:   logger,
		interval: defaultSchedulerInterval,
		steps:    defaultSchedulerSteps,
		stopCh:   make(chan struct{}),
	}
}

func (s *SchedulerService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// SetSteps sets how many steps each agent may take per tick.
func (s *SchedulerService) SetSteps(n int) {
	if n > 0 {
		s.steps = n
	}
}

// Start runs the scheduler in a background goroutine.
func (s *SchedulerService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("agent scheduler started",
			zap.Duration("interval", s.interval),
			zap.Int("steps", s.steps),
		)

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.tick(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("agent scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *SchedulerService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *SchedulerService) tick(ctx context.Context) {
	for id, res := range s.agents.StepAll(ctx, s.steps) {
		for _, f := range res.Failures {
			s.logger.Warn("agent intention failed",
				zap.String("agent_id", id.String()),
				zap.String("failure", f),
			)
		}
	}
}
