package ratelimit

import (
	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
)

// options 内部选项结构
type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// Option 限流器选项函数
type Option func(*options)

// WithLogger 注入日志器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 注入指标 Meter，用于上报允许/拒绝计数
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}
