package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	leaseserrors "bankops/internal/leases/errors"
	"bankops/pkg/model"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "lease:"

// renewScript extends a lease only while the stored holder matches.
// Returns 1 when renewed, 0 when another session holds the key, -1 when the key vanished.
var renewScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return -1
end
local lease = cjson.decode(cur)
if lease['holder_session_id'] ~= ARGV[1] then
  return 0
end
lease['expires_at'] = ARGV[2]
redis.call('SET', KEYS[1], cjson.encode(lease), 'PX', ARGV[3])
return 1
`)

// releaseScript deletes a lease only while the stored holder matches.
// Returns 1 when deleted, 0 when there was nothing to delete, -1 when held by another session.
var releaseScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return 0
end
local lease = cjson.decode(cur)
if lease['holder_session_id'] ~= ARGV[1] then
  return -1
end
redis.call('DEL', KEYS[1])
return 1
`)

type redisLeaseStore struct {
	rdb *redis.Client
}

// NewRedisLeaseStore keeps one key per lease with a PX expiry, so Redis itself
// drops expired leases.
func NewRedisLeaseStore(rdb *redis.Client) LeaseStore {
	return &redisLeaseStore{rdb: rdb}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

func (s *redisLeaseStore) Acquire(ctx context.Context, lease model.Lease, now time.Time) (*model.Lease, bool, error) {
	ttl := lease.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil, false, leaseserrors.ErrInvalidTTL
	}

	payload, err := json.Marshal(lease)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode lease %s: %w", lease.ID, err)
	}

	// Two rounds: a renew can race with expiry, in which case the key is free again.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, redisKey(lease.ID), payload, ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to acquire lease %s: %w", lease.ID, err)
		}
		if ok {
			out := lease
			return &out, false, nil
		}

		res, err := renewScript.Run(ctx, s.rdb,
			[]string{redisKey(lease.ID)},
			lease.HolderSessionID,
			lease.ExpiresAt.UTC().Format(time.RFC3339Nano),
			ttl.Milliseconds(),
		).Int()
		if err != nil {
			return nil, false, fmt.Errorf("failed to renew lease %s: %w", lease.ID, err)
		}

		switch res {
		case 1:
			cur, err := s.Get(ctx, lease.ID)
			if err != nil {
				return nil, false, err
			}
			if cur == nil {
				out := lease
				return &out, true, nil
			}
			return cur, true, nil
		case 0:
			return nil, false, leaseserrors.ErrAlreadyLocked
		}
	}

	return nil, false, leaseserrors.ErrAlreadyLocked
}

func (s *redisLeaseStore) Release(ctx context.Context, key string, sessionID string, _ time.Time) (bool, error) {
	res, err := releaseScript.Run(ctx, s.rdb, []string{redisKey(key)}, sessionID).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release lease %s: %w", key, err)
	}

	switch res {
	case 1:
		return true, nil
	case -1:
		return false, leaseserrors.ErrNotOwner
	default:
		return false, nil
	}
}

func (s *redisLeaseStore) Get(ctx context.Context, key string) (*model.Lease, error) {
	raw, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lease %s: %w", key, err)
	}

	var lease model.Lease
	if err := json.Unmarshal(raw, &lease); err != nil {
		return nil, fmt.Errorf("failed to decode lease %s: %w", key, err)
	}
	return &lease, nil
}

// ReclaimExpired has nothing to do: PX expiry removes leases as their deadline passes.
func (s *redisLeaseStore) ReclaimExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
