// README: Driver offer locks in Redis: SET NX EX to acquire, compare-and-delete to release.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"routematch/internal/types"
)

const lockKeyPrefix = "lock:driver:%s"

// releaseScript deletes the lock only while it still belongs to the order.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

func LockKey(driverID types.ID) string {
	return fmt.Sprintf(lockKeyPrefix, string(driverID))
}

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// AcquireLock reports whether this call created the driver's lock. It is a
// single SET NX EX, so concurrent callers cannot both succeed.
func (s *Store) AcquireLock(ctx context.Context, driverID, orderID types.ID, ttl time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, LockKey(driverID), string(orderID), ttl).Result()
}

// ReleaseLock removes the lock if orderID still holds it.
func (s *Store) ReleaseLock(ctx context.Context, driverID, orderID types.ID) (bool, error) {
	n, err := releaseScript.Run(ctx, s.redis, []string{LockKey(driverID)}, string(orderID)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Holder returns the order currently holding the driver, or "" if unlocked.
func (s *Store) Holder(ctx context.Context, driverID types.ID) (types.ID, error) {
	v, err := s.redis.Get(ctx, LockKey(driverID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return types.ID(v), nil
}
