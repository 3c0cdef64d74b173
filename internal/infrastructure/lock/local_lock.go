package lock

import (
	"context"
	"sync"
)

// localSlot 带引用计数的锁槽，refs 为持有者与等待者之和
type localSlot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker 进程内按 key 互斥，单实例部署或未启用 Redis 时使用
// 无人持有也无人等待的 key 会被回收
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

func (l *LocalLocker) ref(key string) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Acquire 阻塞直到拿到锁或 ctx 结束，owner 仅用于与 RedisLocker 保持同一签名
func (l *LocalLocker) Acquire(ctx context.Context, key, _ string) (func(), error) {
	s := l.ref(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

// size 当前保留的 key 数量
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
