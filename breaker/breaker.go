// Package breaker 提供了熔断器组件，用于出站调用的故障隔离与自动恢复。
//
// breaker 是 Aegis 治理层的核心组件，它提供了：
// - 按依赖名独立熔断：每个命名依赖（如 "api"、"auth"）对应一个独立的状态机
// - 连续失败策略（默认）：CLOSED → OPEN → HALF_OPEN 三态转换，阈值可配置
// - 失败率策略：基于 sony/gobreaker 的滑动窗口失败率熔断
// - 半开探测：OPEN 到期后放行有限探针，探测下游是否恢复
// - 灵活的降级策略：快速失败或自定义降级逻辑
// - gRPC Unary/Stream Interceptor 无侵入集成
//
// ## 基本使用
//
//	brk, _ := breaker.New(&breaker.Config{
//		FailureThreshold: 5,
//		SuccessThreshold: 2,
//		OpenDuration:     60 * time.Second,
//		HalfOpenMaxCalls: 3,
//	}, breaker.WithLogger(logger))
//
//	result, err := brk.Execute(ctx, "payments", func(ctx context.Context) (any, error) {
//		return client.CreatePayment(ctx, req)
//	})
//	if errors.Is(err, breaker.ErrOpenState) {
//		// 熔断中，下游不可用
//	}
//
// ## gRPC Interceptor
//
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(brk.UnaryClientInterceptor()),
//	)
//
// ## 降级策略
//
//	brk, _ := breaker.New(cfg,
//		breaker.WithFallback(func(ctx context.Context, name string, err error) (any, error) {
//			// 返回缓存数据或默认值
//			return cached, nil
//		}),
//	)
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/clog"

	"google.golang.org/grpc"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Breaker 熔断器核心接口
//
// 一个 Breaker 实例内部按依赖名管理多个独立的状态机，
// 同名调用共享同一个状态机，不同名互不影响。
type Breaker interface {
	// Execute 执行受熔断保护的函数
	// name: 依赖名（服务名、后端地址、方法名等）
	// fn: 要执行的函数，ctx 会透传给它
	//
	// 熔断器打开时立即返回 ErrOpenState（不调用 fn）；
	// 半开探针额度用尽时立即返回 ErrTooManyProbes（不调用 fn）；
	// 其余情况透传 fn 的结果与错误。
	Execute(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error)

	// State 获取指定依赖的熔断器状态
	// 从未使用过的依赖名返回 StateClosed
	State(name string) (State, error)

	// Stats 获取指定依赖的统计信息
	Stats(name string) (Stats, error)

	// Reset 将指定依赖的熔断器重置回 CLOSED 状态并清零计数器
	Reset(name string) error

	// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
	// 支持 InterceptorOption 配置熔断键的生成策略
	UnaryClientInterceptor(opts ...InterceptorOption) grpc.UnaryClientInterceptor

	// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器
	StreamClientInterceptor(opts ...InterceptorOption) grpc.StreamClientInterceptor
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常放行）
	StateClosed State = iota
	// StateHalfOpen 半开状态（有限探测恢复）
	StateHalfOpen
	// StateOpen 打开状态（熔断中，快速拒绝）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Stats 单个依赖的熔断器统计信息，用于健康面板和日志
type Stats struct {
	// State 当前状态
	State State

	// ConsecutiveFailures CLOSED 状态下的连续失败计数
	ConsecutiveFailures int

	// ConsecutiveSuccesses HALF_OPEN 状态下的连续成功计数
	ConsecutiveSuccesses int

	// HalfOpenInFlight 当前半开窗口中在途的探针数
	HalfOpenInFlight int

	// NextAttemptAt OPEN 状态下允许下一次探测的时间，零值表示不适用
	NextAttemptAt time.Time

	// 累计计数
	TotalSuccesses  uint64
	TotalFailures   uint64
	TotalRejections uint64
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建熔断器实例
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
//
// 参数:
//   - cfg: 熔断器配置，nil 时返回 ErrConfigNil
//   - opts: 可选参数 (Logger, Meter, Fallback, OnStateChange)
//
// 使用示例:
//
//	brk, _ := breaker.New(&breaker.Config{
//		FailureThreshold: 5,
//		SuccessThreshold: 2,
//		OpenDuration:     60 * time.Second,
//		HalfOpenMaxCalls: 3,
//	}, breaker.WithLogger(logger))
func New(cfg *Config, opts ...Option) (Breaker, error) {
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

	logger.Info("creating circuit breaker",
		clog.String("strategy", string(cfg.Strategy)),
		clog.Int("failure_threshold", cfg.FailureThreshold),
		clog.Int("success_threshold", cfg.SuccessThreshold),
		clog.Duration("open_duration", cfg.OpenDuration),
		clog.Int("half_open_max_calls", cfg.HalfOpenMaxCalls))

	return newBreaker(cfg, logger, opt.meter, opt.fallback, opt.onStateChange), nil
}
