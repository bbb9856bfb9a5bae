package breaker

import (
	"context"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// FallbackFunc 降级函数类型
// 仅在熔断器快速拒绝（ErrOpenState / ErrTooManyProbes）时调用，
// 业务函数自身的错误不会触发降级
//
// 参数:
//   - ctx: 上下文
//   - name: 依赖名
//   - err: 快速拒绝错误
//
// 返回:
//   - 降级结果与错误，返回 nil 错误表示降级成功
type FallbackFunc func(ctx context.Context, name string, err error) (any, error)

// StateChangeFunc 状态变更观察者
type StateChangeFunc func(name string, from, to State)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger        clog.Logger
	meter         metrics.Meter
	fallback      FallbackFunc
	onStateChange StateChangeFunc
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithFallback 设置降级函数
// 当熔断器快速拒绝时，会调用此函数进行降级处理
//
// 使用示例:
//
//	brk, _ := breaker.New(cfg,
//		breaker.WithFallback(func(ctx context.Context, name string, err error) (any, error) {
//			// 返回缓存数据或默认值
//			return cached, nil
//		}),
//	)
func WithFallback(fallback FallbackFunc) Option {
	return func(o *options) {
		o.fallback = fallback
	}
}

// WithOnStateChange 设置状态变更观察者
// 在每次状态转换后同步调用，回调内不要再调用 Breaker 自身的方法
func WithOnStateChange(fn StateChangeFunc) Option {
	return func(o *options) {
		o.onStateChange = fn
	}
}
