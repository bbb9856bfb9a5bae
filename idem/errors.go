package idem

import "github.com/ceyewan/aegis/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("idem: config is nil")

	// ErrConfigInvalid 配置非法
	ErrConfigInvalid = xerrors.New("idem: invalid config")

	// ErrKeyEmpty 幂等键为空（编程错误，立即失败）
	ErrKeyEmpty = xerrors.New("idem: key is empty")

	// ErrRecordNotFound 记录不存在或已过期（Store 实现返回）
	ErrRecordNotFound = xerrors.New("idem: record not found")

	// ErrClosed 组件已关闭
	ErrClosed = xerrors.New("idem: cache is closed")
)
