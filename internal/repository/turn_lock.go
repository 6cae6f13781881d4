package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockBusy 表示在等待时间内没有拿到会话的轮次锁。
var ErrLockBusy = errors.New("session turn lock is busy")

// TurnLocker 串行化同一会话上的“读取-追加-保存”过程。
type TurnLocker interface {
	// Lock 获取 sessionID 的轮次锁，返回的 unlock 必须被调用。
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

const lockRetryInterval = 50 * time.Millisecond

// 仅当 value 仍是自己的 token 时才删除，避免释放他人在 TTL 过期后拿到的锁。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisTurnLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

// NewRedisTurnLocker 创建基于 Redis SETNX 的轮次锁，可在多个进程间生效。
func NewRedisTurnLocker(rdb *redis.Client, ttl, wait time.Duration) TurnLocker {
	return &redisTurnLocker{rdb: rdb, ttl: ttl, wait: wait}
}

func turnLockKey(sessionID string) string {
	return fmt.Sprintf("argumentor:session:%s:turn_lock", sessionID)
}

func (l *redisTurnLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := turnLockKey(sessionID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire turn lock: %w", err)
		}
		if ok {
			return func() {
				// 使用后台上下文，请求被取消时也要释放锁
				_ = releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

type localTurnLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewLocalTurnLocker 创建进程内的轮次锁，未配置 Redis 时使用。
func NewLocalTurnLocker(wait time.Duration) TurnLocker {
	return &localTurnLocker{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *localTurnLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[sessionID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[sessionID] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrLockBusy
	}
}
