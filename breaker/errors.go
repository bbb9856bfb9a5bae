package breaker

import (
	"fmt"
	"time"

	"github.com/ceyewan/aegis/xerrors"
)

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrConfigInvalid 配置非法
	ErrConfigInvalid = xerrors.New("breaker: invalid config")

	// ErrNameEmpty 依赖名为空
	ErrNameEmpty = xerrors.New("breaker: dependency name is empty")

	// ErrOpenState 熔断器处于打开状态，调用被快速拒绝
	// 实际返回的是 *OpenStateError，可通过 errors.Is(err, ErrOpenState) 判定
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")

	// ErrTooManyProbes 半开状态下探针额度已用尽，调用被快速拒绝
	ErrTooManyProbes = xerrors.New("breaker: too many half-open probes")
)

// OpenStateError 携带重试时间的熔断错误
// errors.Is(err, ErrOpenState) 为 true
type OpenStateError struct {
	// Name 被熔断的依赖名
	Name string

	// RetryAfter 允许下一次探测的时间
	RetryAfter time.Time
}

func (e *OpenStateError) Error() string {
	return fmt.Sprintf("breaker: circuit breaker %q is open, retry after %s",
		e.Name, e.RetryAfter.Format(time.RFC3339))
}

func (e *OpenStateError) Unwrap() error {
	return ErrOpenState
}
