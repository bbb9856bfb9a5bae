package idem

import (
	"context"
	"strings"
	"sync"
)

// memoryStore 内存耐久层实现（非导出）
// 仅用于单机和测试场景：满足 Store 契约但不跨进程存活
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemoryStore() Store {
	return &memoryStore{
		data: make(map[string][]byte),
	}
}

func (ms *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	val, ok := ms.data[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return append([]byte(nil), val...), nil
}

func (ms *memoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	ms.data[key] = append([]byte(nil), value...)
	ms.mu.Unlock()
	return nil
}

func (ms *memoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	delete(ms.data, key)
	ms.mu.Unlock()
	return nil
}

func (ms *memoryStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	keys := make([]string, 0, len(ms.data))
	for key := range ms.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (ms *memoryStore) Close() error {
	return nil
}
