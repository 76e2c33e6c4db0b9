// README: Driver state store backed by Redis hashes.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"routematch/internal/types"
)

const stateKeyPrefix = "driver:%s:state"

// StateKey is the hash holding a driver's dynamic state.
func StateKey(id types.ID) string {
	return fmt.Sprintf(stateKeyPrefix, string(id))
}

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// Record is one raw state hash returned by BatchGet. Fields is empty when the
// driver has no state.
type Record struct {
	ID     types.ID
	Fields map[string]string
}

// BatchGet fetches every state hash in a single pipelined round trip.
func (s *Store) BatchGet(ctx context.Context, ids []types.ID) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, StateKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch get driver state: %w", err)
	}
	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = Record{ID: id, Fields: cmds[i].Val()}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (State, error) {
	fields, err := s.redis.HGetAll(ctx, StateKey(id)).Result()
	if err != nil {
		return State{}, err
	}
	return Parse(id, fields)
}

// Set upserts the given fields and stamps updated_at.
func (s *Store) Set(ctx context.Context, id types.ID, fields map[string]any) error {
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values[FieldUpdatedAt] = time.Now().UnixMilli()
	return s.redis.HSet(ctx, StateKey(id), values).Err()
}

func (s *Store) SetStatus(ctx context.Context, id types.ID, status Status) error {
	return s.Set(ctx, id, map[string]any{FieldStatus: string(status)})
}
