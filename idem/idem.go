// Package idem 提供了幂等缓存组件，保证同一幂等键下的操作在时间窗口内至多执行一次。
//
// idem 是 Aegis 业务层的核心组件，它提供了：
// - 双层存储：快速内存层 + 可持久化的耐久层（memory / redis / sqlite），
//   读穿透时自动把耐久层记录提升进内存层
// - 至多一次执行：同键并发调用经 singleflight 合并，只触发一次底层操作，
//   所有调用方观察到同一个结果
// - TTL 过期：过期记录视同不存在并被惰性清除，后台清扫协程定期清理两层
// - 有界内存层：超过容量时按创建时间淘汰最旧的约 10%（FIFO 风格，非 LRU）
// - 序列化可配置：记录跨耐久层边界时使用 json（默认）或 msgpack
// - 开箱即用的 Gin 中间件，按幂等键重放已缓存的 HTTP 响应
//
// ## 基本使用
//
//	cache, _ := idem.New(&idem.Config{
//	    Driver:     idem.DriverMemory,
//	    Prefix:     "myapp:idem:",
//	    DefaultTTL: time.Hour,
//	}, idem.WithLogger(logger))
//	defer cache.Close()
//
//	result, err := cache.Execute(ctx, "order:create:12345", 0, func(ctx context.Context) (any, error) {
//	    return createOrder(ctx)
//	})
//
// ## Redis 耐久层
//
//	redisConn, _ := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"})
//	cache, _ := idem.New(&idem.Config{Driver: idem.DriverRedis},
//	    idem.WithRedisConnector(redisConn), idem.WithLogger(logger))
//
// ## Gin 中间件
//
//	r := gin.Default()
//	r.POST("/orders", cache.GinMiddleware(), func(c *gin.Context) {
//	    c.JSON(200, gin.H{"order_id": "123"})
//	})
package idem

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/xerrors"

	"github.com/gin-gonic/gin"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Idempotency 幂等缓存核心接口
type Idempotency interface {
	// Execute 执行幂等操作
	//
	// 工作流程：
	//   1. key 为空立即返回 ErrKeyEmpty（编程错误，不做降级）
	//   2. 同键并发调用合并为一次穿透（singleflight）
	//   3. 内存层命中且未过期 → 直接返回缓存结果，不调用 fn
	//   4. 耐久层命中且未过期 → 提升进内存层并返回
	//   5. 任一层命中但已过期 → 视同不存在并清除该条目
	//   6. 未命中 → 调用 fn 恰好一次；成功则写穿两层，
	//      失败则不缓存（同键必须可以重试）并透传错误
	//
	// ttl <= 0 时使用 Config.DefaultTTL。
	Execute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error)

	// Has 判断 key 是否存在未过期的缓存记录（不触发执行）
	Has(ctx context.Context, key string) (bool, error)

	// Invalidate 使指定 key 的缓存记录立即失效（两层同时清除）
	// 随后对同一 key 的 Execute 会重新调用底层操作
	Invalidate(ctx context.Context, key string) error

	// Clear 清空两层中本实例前缀下的全部记录
	Clear(ctx context.Context) error

	// Stats 返回缓存统计快照
	Stats() Stats

	// GinMiddleware 创建 Gin 幂等中间件
	// 从 X-Idempotency-Key 请求头（可配置）提取幂等键，
	// 重放已缓存的 2xx 响应；请求头缺失时直接放行
	GinMiddleware(opts ...MiddlewareOption) gin.HandlerFunc

	// Close 停止后台清扫协程并关闭存储，可安全重复调用
	Close() error
}

// Stats 幂等缓存统计信息，用于健康面板和日志
type Stats struct {
	// MemoryEntries 内存层当前条目数
	MemoryEntries int

	// MaxMemoryEntries 内存层容量上限
	MaxMemoryEntries int

	// 累计计数
	MemoryHits  uint64 // 内存层命中
	DurableHits uint64 // 耐久层命中（含提升）
	Misses      uint64 // 两层均未命中
	Evictions   uint64 // 容量淘汰的条目数
	Expirations uint64 // 过期清除的条目数
	Executions  uint64 // 底层操作的实际执行次数
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建幂等缓存实例
// 这是标准的工厂函数，支持配置驱动和显式依赖注入
//
// 参数:
//   - cfg: 幂等缓存配置，nil 时返回 ErrConfigNil
//   - opts: 可选参数 (Logger, Meter, 连接器, 自定义 Store)
//
// 后台清扫协程随实例启动，调用方负责在退出前 Close。
func New(cfg *Config, opts ...Option) (Idempotency, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// 应用选项
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}

	serializer, err := newSerializer(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(cfg, &opt)
	if err != nil {
		return nil, err
	}

	logger.Info("creating idempotency cache",
		clog.String("driver", string(cfg.Driver)),
		clog.String("prefix", cfg.Prefix),
		clog.Duration("default_ttl", cfg.DefaultTTL),
		clog.Int("max_memory_entries", cfg.MaxMemoryEntries),
		clog.Duration("cleanup_interval", cfg.CleanupInterval))

	return newIdempotency(cfg, store, serializer, logger, opt.meter), nil
}

// buildStore 按驱动选择耐久层实现
func buildStore(cfg *Config, opt *options) (Store, error) {
	if opt.store != nil {
		return opt.store, nil
	}

	switch cfg.Driver {
	case DriverMemory:
		return newMemoryStore(), nil
	case DriverRedis:
		if opt.redisConn == nil {
			return nil, xerrors.New("idem: redis connector is required, use WithRedisConnector")
		}
		return newRedisStore(opt.redisConn), nil
	case DriverSQLite:
		if opt.sqliteConn == nil {
			return nil, xerrors.New("idem: sqlite connector is required, use WithSQLiteConnector")
		}
		return newSQLiteStore(opt.sqliteConn)
	default:
		return nil, xerrors.Wrapf(ErrConfigInvalid, "unsupported driver: %s", cfg.Driver)
	}
}
