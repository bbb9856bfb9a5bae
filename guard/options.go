package guard

import (
	"time"

	"github.com/ceyewan/aegis/breaker"
	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/idem"
	"github.com/ceyewan/aegis/ratelimit"
	"github.com/ceyewan/aegis/retry"
)

// options 内部选项结构
type options struct {
	breaker breaker.Breaker
	retry   retry.Policy
	idem    idem.Idempotency
	limiter ratelimit.Limiter
	timeout time.Duration
	logger  clog.Logger
}

// Option 防护管道选项函数
type Option func(*options)

// WithBreaker 注入熔断器，Call.Service 作为依赖名
func WithBreaker(brk breaker.Breaker) Option {
	return func(o *options) {
		o.breaker = brk
	}
}

// WithRetry 注入重试策略
func WithRetry(policy retry.Policy) Option {
	return func(o *options) {
		o.retry = policy
	}
}

// WithIdempotency 注入幂等缓存，Call.IdempotencyKey 非空时生效
func WithIdempotency(cache idem.Idempotency) Option {
	return func(o *options) {
		o.idem = cache
	}
}

// WithRateLimiter 注入限流器，Call.Limit 非零时生效
func WithRateLimiter(limiter ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// WithTimeout 为每次尝试设置独立超时，0 表示不限制
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithLogger 注入日志器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
