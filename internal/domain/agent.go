package domain

import (
	"time"

	"github.com/google/uuid"
)

// Agent is the registry record of a hosted agent.
type Agent struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Program   string         `json:"program,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
