package connector

import "github.com/ceyewan/aegis/xerrors"

// Sentinel Errors - 连接器专用的哨兵错误
var (
	ErrConfig      = xerrors.New("connector: invalid config")
	ErrConnection  = xerrors.New("connector: connection failed")
	ErrHealthCheck = xerrors.New("connector: health check failed")
	ErrClientNil   = xerrors.New("connector: client not initialized")
)
