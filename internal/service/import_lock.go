package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/pkg/redis"
)

var ErrImportLocked = errors.New("another import is running")

const importLockName = "import"

// Locker 跨进程的导入互斥锁
// 未启用 Redis 时使用 noopLocker，仅靠进程内队列保证串行
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type noopLocker struct{}

// NewNoopLocker 不做任何跨进程互斥
func NewNoopLocker() Locker { return noopLocker{} }

func (noopLocker) Acquire(context.Context) (func(), error) {
	return func() {}, nil
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker 基于 Redis SETNX 的导入锁
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) Locker {
	return &redisLocker{client: client, ttl: ttl, logger: logger}
}

func (l *redisLocker) Acquire(ctx context.Context) (func(), error) {
	token, ok, err := l.client.AcquireLock(ctx, importLockName, l.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrImportLocked
	}
	return func() {
		// 释放时不受请求 ctx 取消影响
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.client.ReleaseLock(releaseCtx, importLockName, token); err != nil {
			l.logger.Warn("释放导入锁失败", zap.Error(err))
		}
	}, nil
}
