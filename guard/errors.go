package guard

import "github.com/ceyewan/aegis/xerrors"

// 错误定义
var (
	// ErrServiceEmpty 配置了熔断器但 Call.Service 为空
	ErrServiceEmpty = xerrors.New("guard: service name is required when a breaker is configured")

	// ErrLimitKeyEmpty 配置了限流规则但无可用的限流键
	ErrLimitKeyEmpty = xerrors.New("guard: rate limit requires a service or idempotency key")

	// ErrInvalidTimeout 超时配置非法
	ErrInvalidTimeout = xerrors.New("guard: timeout must not be negative")
)
