package idem

import (
	"sort"
	"sync"
	"time"
)

// memoryTier 快速内存层（非导出）
//
// 有界的 key → *Record 映射。写入超过容量时按记录创建时间
// 淘汰最旧的约 10%（至少 1 条）。淘汰按创建顺序而非最近访问，
// 这是刻意保留的 FIFO 风格策略。
type memoryTier struct {
	mu         sync.RWMutex
	entries    map[string]*Record
	maxEntries int

	evictions   uint64
	expirations uint64
}

func newMemoryTier(maxEntries int) *memoryTier {
	return &memoryTier{
		entries:    make(map[string]*Record),
		maxEntries: maxEntries,
	}
}

// get 读取未过期的记录；过期记录被当场清除并视同不存在
func (t *memoryTier) get(key string, now time.Time) (*Record, bool) {
	t.mu.RLock()
	rec, ok := t.entries[key]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if rec.expired(now) {
		t.mu.Lock()
		// 并发下条目可能已被替换，仅删除仍然过期的同一条
		if cur, ok := t.entries[key]; ok && cur.expired(now) {
			delete(t.entries, key)
			t.expirations++
		}
		t.mu.Unlock()
		return nil, false
	}

	return rec, true
}

// put 写入记录，容量不足时先淘汰最旧的一批
func (t *memoryTier) put(rec *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[rec.Key]; !exists && len(t.entries) >= t.maxEntries {
		t.evictOldest()
	}
	t.entries[rec.Key] = rec
}

// evictOldest 按 CreatedAt 淘汰最旧的约 10%（至少 1 条）
// 调用方必须持有 t.mu
func (t *memoryTier) evictOldest() {
	batch := t.maxEntries / 10
	if batch < 1 {
		batch = 1
	}

	type aged struct {
		key       string
		createdAt time.Time
	}
	all := make([]aged, 0, len(t.entries))
	for key, rec := range t.entries {
		all = append(all, aged{key: key, createdAt: rec.CreatedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].createdAt.Before(all[j].createdAt)
	})

	if batch > len(all) {
		batch = len(all)
	}
	for _, victim := range all[:batch] {
		delete(t.entries, victim.key)
		t.evictions++
	}
}

// remove 删除指定键
func (t *memoryTier) remove(key string) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// clear 清空内存层
func (t *memoryTier) clear() {
	t.mu.Lock()
	t.entries = make(map[string]*Record)
	t.mu.Unlock()
}

// sweep 清除全部过期记录，返回清除数量
func (t *memoryTier) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, rec := range t.entries {
		if rec.expired(now) {
			delete(t.entries, key)
			t.expirations++
			removed++
		}
	}
	return removed
}

// len 返回当前条目数
func (t *memoryTier) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// counters 返回累计淘汰/过期计数
func (t *memoryTier) counters() (evictions, expirations uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.evictions, t.expirations
}
