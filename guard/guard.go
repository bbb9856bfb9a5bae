// Package guard 把限流、熔断、重试、超时和幂等缓存组合成一条
// 固定顺序的出站调用防护管道。
//
// 各组件可以单独使用，guard 的价值是把组合顺序写死在一处：
//
//	限流（最外层） → 熔断 → 重试 → 超时 → 幂等 → 业务函数
//
// 重试在熔断之内，熔断器把一轮重试的最终结果记为一次成败；
// 幂等缓存在最内层，缓存命中不消耗重试预算。所有阶段均可选，
// 未配置的阶段直接透传。
//
// ## 基本使用
//
//	g, _ := guard.New(
//	    guard.WithBreaker(brk),
//	    guard.WithRetry(policy),
//	    guard.WithIdempotency(cache),
//	    guard.WithTimeout(2*time.Second),
//	    guard.WithLogger(logger),
//	)
//
//	result, err := g.Execute(ctx, guard.Call{
//	    Service:        "payments",
//	    IdempotencyKey: "order:create:42",
//	}, func(ctx context.Context) (any, error) {
//	    return client.CreateOrder(ctx, req)
//	})
package guard

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/ratelimit"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Call 描述一次受防护的出站调用
type Call struct {
	// Service 熔断依赖名，配置了熔断器时必填
	Service string

	// IdempotencyKey 幂等键，为空时跳过幂等阶段
	IdempotencyKey string

	// TTL 幂等记录有效期，0 使用缓存默认值
	TTL time.Duration

	// Limit 限流规则，零值时跳过限流阶段
	Limit ratelimit.Limit
}

// Guard 出站调用防护管道核心接口
type Guard interface {
	// Execute 按固定顺序执行防护管道
	//
	// 阶段顺序：限流 → 熔断 → 重试 → 超时 → 幂等 → fn。
	// 未配置的组件和 Call 中未填写的字段对应的阶段被跳过；
	// 没有任何阶段的 Guard 等价于直接调用 fn。
	Execute(ctx context.Context, call Call, fn func(ctx context.Context) (any, error)) (any, error)
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建防护管道实例
//
// 参数:
//   - opts: 各阶段组件 (Breaker, Retry, Idempotency, RateLimiter, Timeout, Logger)
//
// 注入组件的生命周期归调用方所有，Guard 不负责关闭它们。
func New(opts ...Option) (Guard, error) {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}

	if opt.timeout < 0 {
		return nil, ErrInvalidTimeout
	}

	return &guard{
		breaker: opt.breaker,
		retry:   opt.retry,
		idem:    opt.idem,
		limiter: opt.limiter,
		timeout: opt.timeout,
		logger:  logger.WithNamespace("guard"),
	}, nil
}
