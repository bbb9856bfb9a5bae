package idem

import (
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/connector"
	"github.com/ceyewan/aegis/metrics"
)

// options 内部选项结构
type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	redisConn  connector.RedisConnector
	sqliteConn connector.SQLiteConnector
	store      Store
}

// Option 幂等缓存选项函数
type Option func(*options)

// WithLogger 注入日志器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 注入指标 Meter，用于上报命中/未命中/过期清除计数
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithRedisConnector 注入 Redis 连接器（Driver 为 redis 时必需）
// 连接器生命周期归调用方所有，Close 不会关闭它
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}

// WithSQLiteConnector 注入 SQLite 连接器（Driver 为 sqlite 时必需）
func WithSQLiteConnector(conn connector.SQLiteConnector) Option {
	return func(o *options) {
		o.sqliteConn = conn
	}
}

// WithStore 注入自定义耐久层实现，优先于 Config.Driver
func WithStore(store Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// ========================================
// 中间件选项 (Middleware Options)
// ========================================

// middlewareOptions Gin 中间件内部选项
type middlewareOptions struct {
	headerKey string
	ttl       time.Duration
}

// MiddlewareOption Gin 中间件选项函数
type MiddlewareOption func(*middlewareOptions)

// WithHeaderKey 自定义承载幂等键的请求头，默认 "X-Idempotency-Key"
func WithHeaderKey(header string) MiddlewareOption {
	return func(o *middlewareOptions) {
		if header != "" {
			o.headerKey = header
		}
	}
}

// WithMiddlewareTTL 自定义中间件缓存响应的 TTL，默认使用 Config.DefaultTTL
func WithMiddlewareTTL(ttl time.Duration) MiddlewareOption {
	return func(o *middlewareOptions) {
		o.ttl = ttl
	}
}
