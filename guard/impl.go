package guard

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/breaker"
	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/idem"
	"github.com/ceyewan/aegis/ratelimit"
	"github.com/ceyewan/aegis/retry"
	"github.com/ceyewan/aegis/xerrors"
)

// guard 防护管道实现（非导出）
type guard struct {
	breaker breaker.Breaker
	retry   retry.Policy
	idem    idem.Idempotency
	limiter ratelimit.Limiter
	timeout time.Duration
	logger  clog.Logger
}

// Execute 按固定顺序执行防护管道
//
// 管道由内向外逐层包装：
//
//	fn → 幂等 → 超时 → 重试 → 熔断 →（限流检查）
//
// 包装完成后只执行最外层一次。
func (g *guard) Execute(ctx context.Context, call Call, fn func(ctx context.Context) (any, error)) (any, error) {
	if g.breaker != nil && call.Service == "" {
		return nil, ErrServiceEmpty
	}

	wrapped := fn

	// 幂等：最内层，缓存命中时不触发外层的重试和熔断计数
	if g.idem != nil && call.IdempotencyKey != "" {
		inner := wrapped
		wrapped = func(ctx context.Context) (any, error) {
			return g.idem.Execute(ctx, call.IdempotencyKey, call.TTL, inner)
		}
	}

	// 超时：每次尝试独立计时，重试的每一次调用都拿到新的 deadline
	if g.timeout > 0 {
		inner := wrapped
		wrapped = func(ctx context.Context) (any, error) {
			tctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return inner(tctx)
		}
	}

	// 重试：在熔断之内，一轮重试的最终结果被熔断器记为一次成败
	if g.retry != nil {
		inner := wrapped
		wrapped = func(ctx context.Context) (any, error) {
			return g.retry.Execute(ctx, inner)
		}
	}

	// 熔断
	if g.breaker != nil {
		inner := wrapped
		wrapped = func(ctx context.Context) (any, error) {
			return g.breaker.Execute(ctx, call.Service, inner)
		}
	}

	// 限流：最外层的快速检查，被拒绝的请求不进入任何后续阶段
	if g.limiter != nil && (call.Limit.Rate > 0 || call.Limit.Burst > 0) {
		key := call.Service
		if key == "" {
			key = call.IdempotencyKey
		}
		if key == "" {
			return nil, ErrLimitKeyEmpty
		}

		allowed, err := g.limiter.Allow(ctx, key, call.Limit)
		if err != nil {
			return nil, err
		}
		if !allowed {
			g.logger.Debug("call rejected by rate limiter",
				clog.String("service", call.Service), clog.String("key", key))
			return nil, xerrors.Wrapf(ratelimit.ErrLimitExceeded, "guard: key %q", key)
		}
	}

	return wrapped(ctx)
}
