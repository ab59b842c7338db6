package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

const storageSchema = `
CREATE TABLE IF NOT EXISTS agent_storage (
	agent_id   TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (agent_id, key)
)`

// EnsureSchema creates the agents and agent_storage tables when missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range []string{agentSchema, storageSchema} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// PostgresStorage keeps an agent's scratchpad in the agent_storage table.
type PostgresStorage struct {
	db      *pgxpool.Pool
	agentID string
}

func NewPostgresStorage(db *pgxpool.Pool, agentID string) *PostgresStorage {
	return &PostgresStorage{db: db, agentID: agentID}
}

func PostgresFactory(db *pgxpool.Pool) Factory {
	return func(agentID string) domain.Storage { return NewPostgresStorage(db, agentID) }
}

func (s *PostgresStorage) Get(ctx context.Context, key string) (domain.Term, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT value FROM agent_storage WHERE agent_id = $1 AND key = $2`,
		s.agentID, key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, err
	}
	return domain.UnmarshalTerm(data)
}

func (s *PostgresStorage) Put(ctx context.Context, key string, value domain.Term) error {
	data, err := domain.MarshalTerm(value)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO agent_storage (agent_id, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (agent_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.agentID, key, data,
	)
	return err
}

func (s *PostgresStorage) Remove(ctx context.Context, key string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM agent_storage WHERE agent_id = $1 AND key = $2`,
		s.agentID, key,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStorage) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM agent_storage WHERE agent_id = $1 AND key = $2)`,
		s.agentID, key,
	).Scan(&ok)
	return ok, err
}

func (s *PostgresStorage) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		_, err := s.db.Exec(ctx, `DELETE FROM agent_storage WHERE agent_id = $1`, s.agentID)
		return err
	}
	_, err := s.db.Exec(ctx,
		`DELETE FROM agent_storage WHERE agent_id = $1 AND key = ANY($2)`,
		s.agentID, keys,
	)
	return err
}

func (s *PostgresStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key FROM agent_storage WHERE agent_id = $1 ORDER BY key`,
		s.agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
