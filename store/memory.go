package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/rushteam/knnkit/core"
)

const cleanupInterval = 10 * time.Second

// MemoryStore 是进程内 Store，key 有序存放，支持 TTL 与前缀列举。
// 用于测试、单机离线任务和示例；进程退出即丢失。
type MemoryStore struct {
	mu   sync.RWMutex
	data btree.Map[string, entry]

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

type entry struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		ticker: time.NewTicker(cleanupInterval),
		done:   make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data.Get(key)
	if !ok || e.expired(time.Now()) {
		return nil, core.ErrStoreNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Set(key, entry{value: value, expireAt: expireAt(ttl)})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Delete(key)
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if e, ok := m.data.Get(k); ok && !e.expired(now) {
			result[k] = e.value
		}
	}
	return result, nil
}

func (m *MemoryStore) BatchSet(_ context.Context, kvs map[string][]byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp := expireAt(ttl)
	for k, v := range kvs {
		m.data.Set(k, entry{value: v, expireAt: exp})
	}
	return nil
}

// Keys 按字典序返回以 prefix 开头且未过期的 key。
func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	var keys []string
	m.data.Ascend(prefix, func(k string, e entry) bool {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
		if !e.expired(now) {
			keys = append(keys, k)
		}
		return true
	})
	return keys, nil
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		m.ticker.Stop()
		close(m.done)
	})
	return nil
}

func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.done:
			return
		case now := <-m.ticker.C:
			m.evict(now)
		}
	}
}

func (m *MemoryStore) evict(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []string
	m.data.Scan(func(k string, e entry) bool {
		if e.expired(now) {
			stale = append(stale, k)
		}
		return true
	})
	for _, k := range stale {
		m.data.Delete(k)
	}
}

func expireAt(ttl []int) time.Time {
	if len(ttl) > 0 && ttl[0] > 0 {
		return time.Now().Add(time.Duration(ttl[0]) * time.Second)
	}
	return time.Time{}
}

var (
	_ core.Store     = (*MemoryStore)(nil)
	_ core.KeyLister = (*MemoryStore)(nil)
)
