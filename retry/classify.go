package retry

import (
	"context"
	"syscall"

	"github.com/ceyewan/aegis/xerrors"
)

// connectionCodes 可重试的底层连接错误码（字符串码，见 xerrors.CodedError）
var connectionCodes = map[string]struct{}{
	"ECONNRESET":   {},
	"ECONNABORTED": {},
	"ECONNREFUSED": {},
	"EPIPE":        {},
	"ETIMEDOUT":    {},
}

// connectionErrnos 可重试的底层连接 errno
var connectionErrnos = []syscall.Errno{
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ECONNREFUSED,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
}

// DefaultClassifier 返回默认错误分类器
//
// 按以下顺序判定，首个命中即返回：
//  1. 显式标记为网络/超时的错误（Timeout()/Temporary() 为 true、
//     context.DeadlineExceeded、xerrors.ErrTimeout、retry.Retriable 标记）→ 可重试。
//     context.Canceled 除外：调用方已经放弃，重试没有意义。
//  2. 错误链中携带 HTTP 状态码（HTTPStatus() int 或 StatusCode() int）：
//     状态码在 statusCodes 集合内 → 可重试，否则 → 不可重试。
//  3. 错误链中携带底层连接错误（syscall errno 或 xerrors.CodedError
//     的连接错误码）→ 可重试。
//  4. 其余一律不可重试，快速失败。
func DefaultClassifier(statusCodes []int) Classifier {
	codes := make(map[int]struct{}, len(statusCodes))
	for _, c := range statusCodes {
		codes[c] = struct{}{}
	}

	return func(err error) bool {
		if err == nil {
			return false
		}
		if xerrors.Is(err, context.Canceled) {
			return false
		}

		// 规则 1：网络/超时类错误
		if xerrors.Is(err, context.DeadlineExceeded) || xerrors.Is(err, xerrors.ErrTimeout) {
			return true
		}
		var timeoutErr interface{ Timeout() bool }
		if xerrors.As(err, &timeoutErr) && timeoutErr.Timeout() {
			return true
		}
		var temporaryErr interface{ Temporary() bool }
		if xerrors.As(err, &temporaryErr) && temporaryErr.Temporary() {
			return true
		}

		// 规则 2：HTTP 状态码，命中即定论（集合外的状态码不可重试）
		if status, ok := httpStatus(err); ok {
			_, retriable := codes[status]
			return retriable
		}

		// 规则 3：底层连接错误
		for _, errno := range connectionErrnos {
			if xerrors.Is(err, errno) {
				return true
			}
		}
		if code := xerrors.GetCode(err); code != "" {
			if _, ok := connectionCodes[code]; ok {
				return true
			}
		}

		// 规则 4：默认不可重试
		return false
	}
}

// httpStatus 从错误链中提取 HTTP 状态码
func httpStatus(err error) (int, bool) {
	var withHTTPStatus interface{ HTTPStatus() int }
	if xerrors.As(err, &withHTTPStatus) {
		return withHTTPStatus.HTTPStatus(), true
	}
	var withStatusCode interface{ StatusCode() int }
	if xerrors.As(err, &withStatusCode) {
		return withStatusCode.StatusCode(), true
	}
	return 0, false
}

// Retriable 将任意错误显式标记为可重试
// 标记后的错误命中默认分类器的规则 1，Unwrap 保留原错误
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return &retriableError{err: err}
}

// retriableError 可重试标记包装（非导出）
type retriableError struct {
	err error
}

func (e *retriableError) Error() string { return e.err.Error() }

func (e *retriableError) Unwrap() error { return e.err }

// Temporary 恒为 true，使其命中分类器的网络/超时规则
func (e *retriableError) Temporary() bool { return true }
