// Package action holds the explicit name-to-action table the engine
// dispatches external calls through, plus a small set of builtins.
package action

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

var (
	ErrDuplicateAction = errors.New("action already registered")
	ErrBadArguments    = errors.New("bad action arguments")
	ErrPanic           = errors.New("action panicked")
)

// Registry maps action paths to implementations. It is safe for concurrent
// use, so one table can serve many agents.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]domain.Action
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		actions: make(map[string]domain.Action),
		logger:  logger,
	}
}

func (r *Registry) Register(name string, a domain.Action) error {
	key := domain.ParsePath(name).String()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, key)
	}
	r.actions[key] = a
	return nil
}

// RegisterFunc registers fn under name, panicking on duplicates. It is meant
// for table setup at start-up.
func (r *Registry) RegisterFunc(name string, fn domain.ActionFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name domain.Path) (domain.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name.String()]
	return a, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke dispatches inv to the registered action. Unknown names and panics
// come back as hard failures.
func (r *Registry) Invoke(ctx context.Context, inv domain.Invocation) (value domain.FuzzyValue, returned []domain.Term) {
	a, ok := r.Lookup(inv.Name)
	if !ok {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrUnknownAction, inv.Name)), nil
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("action panicked",
				zap.String("action", inv.Name.String()),
				zap.Any("panic", p),
			)
			value, returned = domain.Failed(fmt.Errorf("%w: %s: %v", ErrPanic, inv.Name, p)), nil
		}
	}()
	return a.Invoke(ctx, inv)
}

func badArgs(format string, args ...any) domain.FuzzyValue {
	return domain.Failed(fmt.Errorf("%w: %s", ErrBadArguments, fmt.Sprintf(format, args...)))
}
