package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
	"github.com/ceyewan/aegis/xerrors"
)

// bucket 包装 rate.Limiter 并记录最后访问时间，供空闲回收使用
type bucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

// standaloneLimiter 单机限流器实现（非导出）
type standaloneLimiter struct {
	cfg    *Config
	logger clog.Logger
	meter  metrics.Meter

	// map[string]*bucket，键为 "key:rate:burst"，
	// 同一业务键在不同规则下各有独立的桶
	buckets sync.Map

	stopCh    chan struct{}
	closeOnce sync.Once
}

// newStandalone 创建单机限流器并启动回收协程（内部函数）
func newStandalone(cfg *Config, logger clog.Logger, meter metrics.Meter) Limiter {
	l := &standaloneLimiter{
		cfg:    cfg,
		logger: logger,
		meter:  meter,
		stopCh: make(chan struct{}),
	}

	go l.reap()

	logger.Info("standalone rate limiter created",
		clog.Duration("cleanup_interval", cfg.CleanupInterval),
		clog.Duration("idle_timeout", cfg.IdleTimeout))

	return l
}

// Allow 尝试获取 1 个令牌
func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

// AllowN 尝试获取 N 个令牌
func (l *standaloneLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if limit.Rate <= 0 || limit.Burst <= 0 {
		return false, ErrInvalidLimit
	}
	if n <= 0 {
		return false, xerrors.Wrapf(xerrors.ErrInvalidInput, "ratelimit: n must be positive, got %d", n)
	}

	b := l.getBucket(key, limit)

	b.mu.Lock()
	allowed := b.limiter.AllowN(time.Now(), n)
	b.lastSeen = time.Now()
	b.mu.Unlock()

	l.recordCheck(ctx, allowed)
	l.logger.Debug("rate limit check",
		clog.String("key", key),
		clog.Bool("allowed", allowed),
		clog.Float64("rate", limit.Rate),
		clog.Int("burst", limit.Burst),
		clog.Int("requested", n))

	return allowed, nil
}

// Wait 阻塞等待直到获取 1 个令牌或 ctx 取消
func (l *standaloneLimiter) Wait(ctx context.Context, key string, limit Limit) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if limit.Rate <= 0 || limit.Burst <= 0 {
		return ErrInvalidLimit
	}

	b := l.getBucket(key, limit)

	// rate.Limiter.Wait 内部等待时不能持有 b.mu，
	// 否则同键的 Allow 会被长时间阻塞
	b.mu.Lock()
	b.lastSeen = time.Now()
	limiter := b.limiter
	b.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return xerrors.Wrap(err, "ratelimit: wait aborted")
	}
	return nil
}

// Close 停止回收协程，可安全重复调用
func (l *standaloneLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopCh)
		l.logger.Info("standalone rate limiter closed")
	})
	return nil
}

// getBucket 获取或创建指定键和规则的令牌桶
func (l *standaloneLimiter) getBucket(key string, limit Limit) *bucket {
	cacheKey := fmt.Sprintf("%s:%v:%d", key, limit.Rate, limit.Burst)

	if v, ok := l.buckets.Load(cacheKey); ok {
		return v.(*bucket)
	}

	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.buckets.LoadOrStore(cacheKey, b)
	return actual.(*bucket)
}

// reap 定期回收空闲超过 IdleTimeout 的令牌桶
func (l *standaloneLimiter) reap() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			count := 0

			l.buckets.Range(func(key, value any) bool {
				b := value.(*bucket)
				b.mu.Lock()
				idle := now.Sub(b.lastSeen)
				b.mu.Unlock()

				if idle > l.cfg.IdleTimeout {
					l.buckets.Delete(key)
					count++
				}
				return true
			})

			if count > 0 {
				l.logger.Debug("reaped idle rate limiters", clog.Int("count", count))
			}

		case <-l.stopCh:
			return
		}
	}
}

// recordCheck 记录限流检查指标
func (l *standaloneLimiter) recordCheck(ctx context.Context, allowed bool) {
	if l.meter == nil {
		return
	}
	name, desc := MetricAllowedTotal, "Requests admitted by the rate limiter"
	if !allowed {
		name, desc = MetricDeniedTotal, "Requests denied by the rate limiter"
	}
	if counter, err := l.meter.Counter(name, desc); err == nil {
		counter.Inc(ctx)
	}
}
