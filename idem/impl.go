package idem

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
	"github.com/ceyewan/aegis/xerrors"

	"golang.org/x/sync/singleflight"
)

// idem 幂等缓存实现（非导出）
type idem struct {
	cfg        *Config
	tier       *memoryTier
	store      Store
	serializer Serializer
	logger     clog.Logger
	meter      metrics.Meter

	// 同键并发合并：两个并发调用方在无缓存时不会各自执行一次底层操作
	group singleflight.Group

	memoryHits  atomic.Uint64
	durableHits atomic.Uint64
	misses      atomic.Uint64
	executions  atomic.Uint64

	stopCh    chan struct{}
	closeOnce sync.Once
	done      sync.WaitGroup
}

// newIdempotency 创建幂等缓存实例并启动清扫协程（内部函数）
func newIdempotency(cfg *Config, store Store, serializer Serializer, logger clog.Logger, meter metrics.Meter) Idempotency {
	i := &idem{
		cfg:        cfg,
		tier:       newMemoryTier(cfg.MaxMemoryEntries),
		store:      store,
		serializer: serializer,
		logger:     logger.WithNamespace("idem"),
		meter:      meter,
		stopCh:     make(chan struct{}),
	}

	i.done.Add(1)
	go i.cleanupLoop()

	return i
}

// Execute 执行幂等操作
func (i *idem) Execute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}
	select {
	case <-i.stopCh:
		return nil, ErrClosed
	default:
	}
	if ttl <= 0 {
		ttl = i.cfg.DefaultTTL
	}

	result, err, _ := i.group.Do(key, func() (any, error) {
		return i.executeOnce(ctx, key, ttl, fn)
	})
	return result, err
}

// executeOnce 走完查找-执行-缓存的完整流程
// singleflight 保证同键并发时只有一个调用方进入这里
func (i *idem) executeOnce(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	now := time.Now()

	// 1. 内存层
	if rec, ok := i.tier.get(key, now); ok {
		i.memoryHits.Add(1)
		i.recordHit(ctx, "memory")
		i.logger.Debug("memory tier hit", clog.String("key", key))
		return rec.Value, nil
	}

	// 2. 耐久层，命中则提升进内存层
	storeKey := i.cfg.Prefix + key
	data, err := i.store.Get(ctx, storeKey)
	switch {
	case err == nil:
		var rec Record
		if uerr := i.serializer.Unmarshal(data, &rec); uerr != nil {
			// 损坏的记录视同不存在
			i.logger.Warn("dropping undecodable durable record",
				clog.String("key", key), clog.Error(uerr))
			_ = i.store.Remove(ctx, storeKey)
		} else if rec.expired(now) {
			// 过期记录惰性清除
			_ = i.store.Remove(ctx, storeKey)
		} else {
			i.tier.put(&rec)
			i.durableHits.Add(1)
			i.recordHit(ctx, "durable")
			i.logger.Debug("durable tier hit", clog.String("key", key))
			return rec.Value, nil
		}
	case xerrors.Is(err, ErrRecordNotFound):
		// 未命中，继续执行
	default:
		return nil, err
	}

	// 3. 两层均未命中，执行底层操作（恰好一次）
	i.misses.Add(1)
	i.recordMiss(ctx)
	i.executions.Add(1)

	result, err := fn(ctx)
	if err != nil {
		// 失败不缓存：同键必须保持可重试
		return nil, err
	}

	rec := &Record{
		Key:       key,
		Value:     result,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	i.tier.put(rec)

	if data, merr := i.serializer.Marshal(rec); merr != nil {
		i.logger.Warn("failed to encode record for durable tier",
			clog.String("key", key), clog.Error(merr))
	} else if serr := i.store.Set(ctx, storeKey, data); serr != nil {
		// 副作用已经发生，耐久层写入失败不应吞掉成功结果；
		// 内存层已持有记录，窗口内的重复请求仍然命中
		i.logger.Error("failed to write durable tier",
			clog.String("key", key), clog.Error(serr))
	}

	i.logger.Debug("executed and cached", clog.String("key", key), clog.Duration("ttl", ttl))
	return result, nil
}

// Has 判断 key 是否存在未过期的缓存记录
func (i *idem) Has(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}

	now := time.Now()
	if _, ok := i.tier.get(key, now); ok {
		return true, nil
	}

	data, err := i.store.Get(ctx, i.cfg.Prefix+key)
	if xerrors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var rec Record
	if err := i.serializer.Unmarshal(data, &rec); err != nil {
		return false, nil
	}
	return !rec.expired(now), nil
}

// Invalidate 使指定 key 的缓存记录立即失效
func (i *idem) Invalidate(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}

	i.tier.remove(key)
	if err := i.store.Remove(ctx, i.cfg.Prefix+key); err != nil {
		return err
	}
	i.logger.Debug("record invalidated", clog.String("key", key))
	return nil
}

// Clear 清空两层中本实例前缀下的全部记录
func (i *idem) Clear(ctx context.Context) error {
	i.tier.clear()

	keys, err := i.store.ListKeys(ctx, i.cfg.Prefix)
	if err != nil {
		return err
	}
	var collector xerrors.Collector
	for _, key := range keys {
		collector.Collect(i.store.Remove(ctx, key))
	}
	if err := collector.Err(); err != nil {
		return err
	}

	i.logger.Info("cache cleared", clog.Int("durable_keys", len(keys)))
	return nil
}

// Stats 返回缓存统计快照
func (i *idem) Stats() Stats {
	evictions, expirations := i.tier.counters()
	return Stats{
		MemoryEntries:    i.tier.len(),
		MaxMemoryEntries: i.cfg.MaxMemoryEntries,
		MemoryHits:       i.memoryHits.Load(),
		DurableHits:      i.durableHits.Load(),
		Misses:           i.misses.Load(),
		Evictions:        evictions,
		Expirations:      expirations,
		Executions:       i.executions.Load(),
	}
}

// Close 停止清扫协程并关闭存储，可安全重复调用
func (i *idem) Close() error {
	var err error
	i.closeOnce.Do(func() {
		close(i.stopCh)
		i.done.Wait()
		err = i.store.Close()
		i.logger.Info("idempotency cache closed")
	})
	return err
}

// cleanupLoop 后台清扫协程：定期清除两层的过期记录
// 生命周期归缓存实例所有，New 启动、Close 停止
func (i *idem) cleanupLoop() {
	defer i.done.Done()

	ticker := time.NewTicker(i.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.sweep()
		case <-i.stopCh:
			return
		}
	}
}

// sweep 清扫两层的过期记录
func (i *idem) sweep() {
	now := time.Now()
	removedMemory := i.tier.sweep(now)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removedDurable := 0
	keys, err := i.store.ListKeys(ctx, i.cfg.Prefix)
	if err != nil {
		i.logger.Warn("durable sweep: list keys failed", clog.Error(err))
	} else {
		for _, storeKey := range keys {
			data, err := i.store.Get(ctx, storeKey)
			if err != nil {
				continue
			}
			var rec Record
			if err := i.serializer.Unmarshal(data, &rec); err != nil || rec.expired(now) {
				if rerr := i.store.Remove(ctx, storeKey); rerr == nil {
					removedDurable++
				}
			}
		}
	}

	if removedMemory > 0 || removedDurable > 0 {
		i.logger.Debug("expired records swept",
			clog.Int("memory", removedMemory),
			clog.Int("durable", removedDurable))
		i.recordSweep(ctx, removedMemory+removedDurable)
	}
}

// ========================================
// 指标记录
// ========================================

func (i *idem) recordHit(ctx context.Context, tier string) {
	if i.meter == nil {
		return
	}
	if counter, err := i.meter.Counter(MetricHitsTotal, "Cache hits"); err == nil {
		counter.Inc(ctx, metrics.L(LabelTier, tier))
	}
}

func (i *idem) recordMiss(ctx context.Context) {
	if i.meter == nil {
		return
	}
	if counter, err := i.meter.Counter(MetricMissesTotal, "Cache misses"); err == nil {
		counter.Inc(ctx)
	}
}

func (i *idem) recordSweep(ctx context.Context, removed int) {
	if i.meter == nil {
		return
	}
	if counter, err := i.meter.Counter(MetricExpiredTotal, "Expired records removed"); err == nil {
		counter.Add(ctx, float64(removed))
	}
}
