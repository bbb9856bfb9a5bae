package ratelimit

import "github.com/ceyewan/aegis/xerrors"

// 错误定义
var (
	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidLimit 限流规则无效（Rate 或 Burst 非正）
	ErrInvalidLimit = xerrors.New("ratelimit: invalid limit")

	// ErrLimitExceeded 限流阈值超出，由调用方（如 guard）用于包装拒绝结果
	ErrLimitExceeded = xerrors.New("ratelimit: rate limit exceeded")
)
