// Package retry 提供了重试组件，用指数退避加抖动包装瞬时失败的出站调用。
//
// retry 是 Aegis 治理层的核心组件，它提供了：
// - 指数退避：delay = min(BaseDelay * BackoffMultiplier^attempt, MaxDelay)
// - 有界抖动：实际等待均匀分布在 [0.5*delay, delay]，打散并发重试风暴
// - 错误分类：网络/超时错误、可重试 HTTP 状态码、底层连接错误码可重试，
//   其余错误立即失败，不消耗剩余重试预算
// - 严格串行：尝试之间是真实的时间等待，永不并行，可被 ctx 取消
// - 与 L0 基础组件（日志、指标）的深度集成
//
// ## 基本使用
//
//	policy, _ := retry.New(&retry.Config{
//		MaxRetries:        3,
//		BaseDelay:         100 * time.Millisecond,
//		MaxDelay:          10 * time.Second,
//		BackoffMultiplier: 2,
//		JitterEnabled:     true,
//	}, retry.WithLogger(logger))
//
//	result, err := policy.Execute(ctx, func(ctx context.Context) (any, error) {
//		return client.Fetch(ctx, req)
//	})
//
//	var exhausted *retry.ExhaustedError
//	if errors.As(err, &exhausted) {
//		// 重试预算耗尽，exhausted.Attempts 为总尝试次数
//	}
//
// ## 自定义分类器
//
//	policy, _ := retry.New(cfg, retry.WithClassifier(func(err error) bool {
//		return errors.Is(err, ErrTransient)
//	}))
//
// 任意错误可通过 retry.Retriable(err) 显式标记为可重试。
package retry

import (
	"context"

	"github.com/ceyewan/aegis/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Policy 重试策略核心接口
//
// Policy 本身不持有每次调用的状态，同一个实例可以被任意多的
// goroutine 并发使用，每次 Execute 拥有独立的尝试计数。
type Policy interface {
	// Execute 执行带重试的函数
	//
	// fn 最多被调用 MaxRetries+1 次。最后一次尝试的错误会包装为
	// *ExhaustedError 返回（Unwrap 保留原错误）；
	// 不可重试的错误在首次出现时原样返回，不再消耗重试预算；
	// ctx 取消会中断退避等待并返回 ctx.Err()。
	Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
}

// Classifier 错误分类函数，返回 true 表示该错误可重试
type Classifier func(err error) bool

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建重试策略实例
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
//
// 参数:
//   - cfg: 重试配置，nil 时返回 ErrConfigNil
//   - opts: 可选参数 (Logger, Meter, Classifier)
func New(cfg *Config, opts ...Option) (Policy, error) {
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

	classifier := opt.classifier
	if classifier == nil {
		classifier = DefaultClassifier(cfg.RetriableStatusCodes)
	}

	logger.Info("creating retry policy",
		clog.Int("max_retries", cfg.MaxRetries),
		clog.Duration("base_delay", cfg.BaseDelay),
		clog.Duration("max_delay", cfg.MaxDelay),
		clog.Float64("backoff_multiplier", cfg.BackoffMultiplier),
		clog.Bool("jitter", cfg.JitterEnabled))

	return &policy{
		cfg:        cfg,
		logger:     logger.WithNamespace("retry"),
		meter:      opt.meter,
		classifier: classifier,
	}, nil
}
