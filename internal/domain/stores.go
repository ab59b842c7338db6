package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrKeyNotFound is returned by Storage.Get for a missing key.
var ErrKeyNotFound = errors.New("storage key not found")

// Storage is the per-agent key/value scratchpad shared by plan bodies and
// actions. There are no transactional semantics; the last write wins.
type Storage interface {
	Get(ctx context.Context, key string) (Term, error)
	Put(ctx context.Context, key string, value Term) error
	Remove(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Clear removes the given keys, or every key when none are given.
	Clear(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
}

// AgentContext is the view of the calling agent handed to actions.
type AgentContext interface {
	ID() string
	Cycle() uint64
	Storage() Storage
	Sleep(steps int)
}

// Invocation describes one action call. Parallel is a hint that the action
// may fan out internally; results must then be safe to read from the engine
// goroutine without further synchronisation.
type Invocation struct {
	Name     Path
	Args     []Term
	Parallel bool
	Agent    AgentContext
}

// Action is an external capability dispatched by name. The call is
// synchronous from the engine's point of view. Errors are reported through a
// failing FuzzyValue, never by panicking.
type Action interface {
	Invoke(ctx context.Context, inv Invocation) (FuzzyValue, []Term)
}

// ActionFunc adapts an ordinary function to the Action interface.
type ActionFunc func(ctx context.Context, inv Invocation) (FuzzyValue, []Term)

func (f ActionFunc) Invoke(ctx context.Context, inv Invocation) (FuzzyValue, []Term) {
	return f(ctx, inv)
}

// AgentStore persists the registry records of hosted agents so they can be
// rebuilt from their program source after a restart.
type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	List(ctx context.Context) ([]Agent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
