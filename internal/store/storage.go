package store

import (
	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// Factory opens the scratchpad of one agent.
type Factory func(agentID string) domain.Storage

// MemoryFactory gives every agent its own in-memory scratchpad.
func MemoryFactory() Factory {
	return func(string) domain.Storage { return NewMemoryStorage() }
}
