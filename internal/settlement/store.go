package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/domiciliarios-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/domiciliarios-backend/pkg/redis"
)

// Store persists workflows between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Workflow, error)
	Save(ctx context.Context, wf *Workflow) error
	Delete(ctx context.Context, id string) error
}

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	WorkflowKey(sessionID string) string
}

type redisStore struct {
	kv  kvStore
	ttl time.Duration
}

// NewRedisStore keeps workflows as JSON under a sliding TTL. It works with both the Redis
// client and its in-memory stand-in.
func NewRedisStore(kv kvStore, ttl time.Duration) (Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("workflow kv store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("workflow ttl must be positive")
	}
	return &redisStore{kv: kv, ttl: ttl}, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*Workflow, error) {
	raw, err := s.kv.Get(ctx, s.kv.WorkflowKey(id))
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, errWorkflowNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement session")
	}
	var wf Workflow
	if err := json.Unmarshal([]byte(raw), &wf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode settlement session")
	}
	return &wf, nil
}

func (s *redisStore) Save(ctx context.Context, wf *Workflow) error {
	raw, err := json.Marshal(wf)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settlement session")
	}
	if err := s.kv.Set(ctx, s.kv.WorkflowKey(wf.ID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store settlement session")
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Del(ctx, s.kv.WorkflowKey(id)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete settlement session")
	}
	return nil
}

func errWorkflowNotFound(id string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "settlement session not found").
		WithDetails(map[string]any{"sessionId": id})
}
