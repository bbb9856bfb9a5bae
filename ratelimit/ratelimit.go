// Package ratelimit 提供了基于令牌桶的单机限流组件。
//
// ratelimit 是 Aegis 治理层的辅助组件，它提供了：
// - 按限流键隔离的令牌桶（golang.org/x/time/rate），支持突发流量
// - 非阻塞检查（Allow/AllowN）和阻塞等待（Wait）两种模式
// - 空闲限流器按 IdleTimeout 自动回收，内存占用有界
// - 与 L0 基础组件（日志、指标）的深度集成
//
// ## 基本使用
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{
//	    CleanupInterval: time.Minute,
//	    IdleTimeout:     5 * time.Minute,
//	}, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//
//	allowed, _ := limiter.Allow(ctx, "user:123", ratelimit.Limit{Rate: 10, Burst: 20})
//	if !allowed {
//	    return errors.New("rate limit exceeded")
//	}
package ratelimit

import (
	"context"

	"github.com/ceyewan/aegis/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Limit 定义限流规则（令牌桶算法）
type Limit struct {
	Rate  float64 // 令牌生成速率（每秒生成多少个令牌）
	Burst int     // 令牌桶容量（突发最大请求数）
}

// Limiter 限流器核心接口
type Limiter interface {
	// Allow 尝试获取 1 个令牌（非阻塞）
	// key: 限流标识（如 IP, UserID, ServiceName）
	// limit: 限流规则
	Allow(ctx context.Context, key string, limit Limit) (bool, error)

	// AllowN 尝试获取 N 个令牌（非阻塞）
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)

	// Wait 阻塞等待直到获取 1 个令牌或 ctx 取消
	Wait(ctx context.Context, key string, limit Limit) error

	// Close 停止后台回收协程，可安全重复调用
	Close() error
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建单机限流器
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
//
// 参数:
//   - cfg: 限流配置，nil 时使用默认值
//   - opts: 可选参数 (Logger, Meter)
//
// 空闲回收协程随实例启动，调用方负责在退出前 Close。
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}

	return newStandalone(cfg, logger.WithNamespace("ratelimit"), opt.meter), nil
}
