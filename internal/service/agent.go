package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harshitk-cp/agentspeak/internal/agent"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/program"
	"github.com/Harshitk-cp/agentspeak/internal/store"
)

var (
	ErrAgentNotFound  = errors.New("agent not found")
	ErrAgentConflict  = errors.New("agent with this name already exists")
	ErrInvalidLiteral = errors.New("invalid literal")
)

// agentCounter is implemented by observers that track the number of hosted
// agents.
type agentCounter interface {
	SetAgents(n int)
}

type hosted struct {
	mu     sync.Mutex
	record domain.Agent
	agent  *agent.Agent
}

// AgentService hosts agents and serialises access to each of them.
type AgentService struct {
	store    domain.AgentStore
	storage  store.Factory
	actions  domain.Action
	cfg      agent.Config
	observer agent.Observer
	logger   *zap.Logger
	workers  int

	mu     sync.RWMutex
	agents map[uuid.UUID]*hosted
}

func NewAgentService(s domain.AgentStore, storage store.Factory, actions domain.Action, cfg agent.Config, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storage == nil {
		storage = store.MemoryFactory()
	}
	return &AgentService{
		store:   s,
		storage: storage,
		actions: actions,
		cfg:     cfg,
		logger:  logger,
		workers: 8,
		agents:  make(map[uuid.UUID]*hosted),
	}
}

func (s *AgentService) SetObserver(o agent.Observer) {
	s.observer = o
}

// SetWorkers bounds how many agents StepAll steps concurrently.
func (s *AgentService) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Create compiles source, records the agent and starts hosting it. The
// program name is used when name is empty.
func (s *AgentService) Create(ctx context.Context, name string, source []byte, metadata map[string]any) (*domain.Agent, error) {
	p, err := program.Parse(source)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = p.Name
	}
	if name == "" {
		name = "agent-" + uuid.NewString()[:8]
	}
	rec := &domain.Agent{Name: name, Program: string(source), Metadata: metadata}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAgentConflict
		}
		return nil, err
	}

	h, err := s.host(*rec, p)
	if err != nil {
		if derr := s.store.Delete(ctx, rec.ID); derr != nil {
			s.logger.Warn("failed to roll back agent record", zap.String("agent_id", rec.ID.String()), zap.Error(derr))
		}
		return nil, err
	}
	s.add(h)
	s.logger.Info("agent created", zap.String("agent_id", rec.ID.String()), zap.String("name", rec.Name))
	return rec, nil
}

// Restore hosts every stored agent that is not running yet. Agents restart
// from their program; beliefs learnt before the restart are not replayed.
func (s *AgentService) Restore(ctx context.Context) (int, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, rec := range records {
		if _, ok := s.lookup(rec.ID); ok {
			continue
		}
		p, err := program.Parse([]byte(rec.Program))
		if err != nil {
			s.logger.Warn("skipping agent with invalid program", zap.String("agent_id", rec.ID.String()), zap.Error(err))
			continue
		}
		h, err := s.host(rec, p)
		if err != nil {
			s.logger.Warn("failed to restore agent", zap.String("agent_id", rec.ID.String()), zap.Error(err))
			continue
		}
		s.add(h)
		restored++
	}
	return restored, nil
}

// Preload creates an agent named after each program file in dir. Files whose
// agent already exists are skipped.
func (s *AgentService) Preload(ctx context.Context, dir string) (int, error) {
	paths, err := program.Files(dir)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return created, err
		}
		if _, err := s.Create(ctx, program.Name(path), src, map[string]any{"source": path}); err != nil {
			if errors.Is(err, ErrAgentConflict) {
				continue
			}
			return created, fmt.Errorf("%s: %w", path, err)
		}
		created++
	}
	return created, nil
}

func (s *AgentService) host(rec domain.Agent, p *domain.Program) (*hosted, error) {
	id := rec.ID.String()
	opts := []agent.Option{
		agent.WithID(id),
		agent.WithLogger(s.logger),
		agent.WithStorage(s.storage(id)),
		agent.WithActions(s.actions),
	}
	if s.observer != nil {
		opts = append(opts, agent.WithObserver(s.observer))
	}
	a, err := agent.New(p, s.cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", program.ErrInvalidProgram, err)
	}
	return &hosted{record: rec, agent: a}, nil
}

func (s *AgentService) add(h *hosted) {
	s.mu.Lock()
	s.agents[h.record.ID] = h
	n := len(s.agents)
	s.mu.Unlock()
	s.count(n)
}

func (s *AgentService) count(n int) {
	if c, ok := s.observer.(agentCounter); ok {
		c.SetAgents(n)
	}
}

func (s *AgentService) lookup(id uuid.UUID) (*hosted, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.agents[id]
	return h, ok
}

func (s *AgentService) get(id uuid.UUID) (*hosted, error) {
	h, ok := s.lookup(id)
	if !ok {
		return nil, ErrAgentNotFound
	}
	return h, nil
}

func (s *AgentService) GetByID(_ context.Context, id uuid.UUID) (*domain.Agent, error) {
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}
	rec := h.record
	return &rec, nil
}

// List returns the hosted agents in creation order.
func (s *AgentService) List(_ context.Context) []domain.Agent {
	s.mu.RLock()
	out := make([]domain.Agent, 0, len(s.agents))
	for _, h := range s.agents {
		out = append(out, h.record)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *AgentService) Delete(ctx context.Context, id uuid.UUID) error {
	h, err := s.get(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	h.mu.Lock()
	if err := h.agent.Storage().Clear(ctx); err != nil {
		s.logger.Warn("failed to clear agent storage", zap.String("agent_id", id.String()), zap.Error(err))
	}
	h.mu.Unlock()

	s.mu.Lock()
	delete(s.agents, id)
	n := len(s.agents)
	s.mu.Unlock()
	s.count(n)
	s.logger.Info("agent deleted", zap.String("agent_id", id.String()))
	return nil
}

// with runs fn while holding the agent's lock.
func (s *AgentService) with(id uuid.UUID, fn func(a *agent.Agent) error) error {
	h, err := s.get(id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.agent)
}

func parseLiteral(src string, ground bool) (domain.Literal, error) {
	l, err := domain.ParseLiteral(src)
	if err != nil {
		return domain.Literal{}, fmt.Errorf("%w: %v", ErrInvalidLiteral, err)
	}
	if ground && !l.IsGround() {
		return domain.Literal{}, fmt.Errorf("%w: %s is not ground", ErrInvalidLiteral, l)
	}
	return l, nil
}

// AddPercept adds a ground belief and queues its event.
func (s *AgentService) AddPercept(_ context.Context, id uuid.UUID, src string) error {
	l, err := parseLiteral(src, true)
	if err != nil {
		return err
	}
	return s.with(id, func(a *agent.Agent) error { return a.Perceive(l) })
}

// RemovePercept removes the first belief unifying with src.
func (s *AgentService) RemovePercept(_ context.Context, id uuid.UUID, src string) (bool, error) {
	l, err := parseLiteral(src, false)
	if err != nil {
		return false, err
	}
	var removed bool
	err = s.with(id, func(a *agent.Agent) error {
		removed = a.Forget(l)
		return nil
	})
	return removed, err
}

func (s *AgentService) PostGoal(_ context.Context, id uuid.UUID, src string) error {
	l, err := parseLiteral(src, false)
	if err != nil {
		return err
	}
	return s.with(id, func(a *agent.Agent) error {
		a.Post(l)
		return nil
	})
}

// DropGoal cancels the intentions pursuing src, withdraws matching posts that
// have not started and returns how many of both were removed.
func (s *AgentService) DropGoal(_ context.Context, id uuid.UUID, src string) (int, error) {
	l, err := parseLiteral(src, false)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.with(id, func(a *agent.Agent) error {
		n = a.Drop(l)
		return nil
	})
	return n, err
}

// StepResult summarises a batch of reasoning steps.
type StepResult struct {
	Steps     int      `json:"steps"`
	Cycle     uint64   `json:"cycle"`
	Completed []string `json:"completed"`
	Failures  []string `json:"failures"`
	Sleeping  bool     `json:"sleeping"`
}

// Step runs up to n reasoning steps, stopping early when the agent idles.
func (s *AgentService) Step(ctx context.Context, id uuid.UUID, n int) (StepResult, error) {
	var out StepResult
	err := s.with(id, func(a *agent.Agent) error {
		out = run(ctx, a, n)
		return nil
	})
	return out, err
}

func run(ctx context.Context, a *agent.Agent, n int) StepResult {
	res := a.Run(ctx, n)
	out := StepResult{
		Steps:     res.Steps,
		Cycle:     a.Cycle(),
		Completed: res.Completed,
		Failures:  make([]string, 0, len(res.Failures)),
		Sleeping:  a.Sleeping(),
	}
	if out.Completed == nil {
		out.Completed = []string{}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, f.Error())
	}
	return out
}

// StepAll steps every hosted agent up to n times, agents in parallel.
func (s *AgentService) StepAll(ctx context.Context, n int) map[uuid.UUID]StepResult {
	s.mu.RLock()
	all := make([]*hosted, 0, len(s.agents))
	for _, h := range s.agents {
		all = append(all, h)
	}
	s.mu.RUnlock()

	results := make([]StepResult, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, h := range all {
		g.Go(func() error {
			h.mu.Lock()
			defer h.mu.Unlock()
			results[i] = run(gctx, h.agent, n)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[uuid.UUID]StepResult, len(all))
	for i, h := range all {
		out[h.record.ID] = results[i]
	}
	return out
}

func (s *AgentService) Inspect(_ context.Context, id uuid.UUID) (agent.Snapshot, error) {
	var snap agent.Snapshot
	err := s.with(id, func(a *agent.Agent) error {
		snap = a.Inspect()
		return nil
	})
	return snap, err
}
