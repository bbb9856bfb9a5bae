package retry

import (
	"fmt"

	"github.com/ceyewan/aegis/xerrors"
)

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("retry: config is nil")

	// ErrConfigInvalid 配置非法
	ErrConfigInvalid = xerrors.New("retry: invalid config")
)

// ExhaustedError 重试预算耗尽错误
// 包装最后一次尝试的错误并携带总尝试次数，
// Unwrap 保留原错误，errors.Is/As 可以穿透它
type ExhaustedError struct {
	// Attempts 实际执行的总尝试次数（含首次）
	Attempts int

	// Err 最后一次尝试的错误
	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
