package breaker

import (
	"time"

	"github.com/ceyewan/aegis/xerrors"
)

// Strategy 熔断策略
type Strategy string

const (
	// StrategyConsecutive 连续失败策略（默认）
	// CLOSED 状态下连续失败达到 FailureThreshold 即熔断
	StrategyConsecutive Strategy = "consecutive"

	// StrategyRate 失败率策略
	// 统计周期内失败率超过 FailureRatio 且请求数达到 MinimumRequests 即熔断，
	// 由 sony/gobreaker 驱动
	StrategyRate Strategy = "rate"
)

// Config 熔断器配置
// 同一个 Breaker 实例下所有命名依赖共享这份配置
type Config struct {
	// Strategy 熔断策略: "consecutive" | "rate" (默认 "consecutive")
	Strategy Strategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// ===== consecutive 策略 =====

	// FailureThreshold 触发熔断的连续失败次数（默认：5）
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// SuccessThreshold 半开状态下关闭熔断所需的连续成功次数（默认：1）
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold" mapstructure:"success_threshold"`

	// OpenDuration 打开状态持续时间（默认：60s）
	// 到期后的下一次调用触发进入半开状态
	OpenDuration time.Duration `json:"open_duration" yaml:"open_duration" mapstructure:"open_duration"`

	// HalfOpenMaxCalls 半开状态下允许在途的最大探针数（默认：1）
	HalfOpenMaxCalls int `json:"half_open_max_calls" yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`

	// ===== rate 策略 =====

	// FailureRatio 失败率阈值（默认：0.6，即 60%）
	FailureRatio float64 `json:"failure_ratio" yaml:"failure_ratio" mapstructure:"failure_ratio"`

	// MinimumRequests 触发熔断的最小请求数（默认：10）
	MinimumRequests uint32 `json:"minimum_requests" yaml:"minimum_requests" mapstructure:"minimum_requests"`

	// Interval 闭合状态下的统计周期（默认：0，不清空统计）
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`

	// MaxRequests 半开状态下允许通过的最大请求数（默认：HalfOpenMaxCalls）
	MaxRequests uint32 `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyConsecutive
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = 60 * time.Second
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 1
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 10
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = uint32(c.HalfOpenMaxCalls)
	}
}

// validate 校验配置
func (c *Config) validate() error {
	switch c.Strategy {
	case StrategyConsecutive, StrategyRate:
	default:
		return xerrors.Wrapf(ErrConfigInvalid, "unsupported strategy: %s", c.Strategy)
	}
	// 半开窗口必须能够积累足够的成功次数来关闭熔断器
	if c.SuccessThreshold > c.HalfOpenMaxCalls {
		return xerrors.Wrapf(ErrConfigInvalid,
			"success_threshold (%d) must not exceed half_open_max_calls (%d)",
			c.SuccessThreshold, c.HalfOpenMaxCalls)
	}
	if c.Strategy == StrategyRate && c.FailureRatio > 1 {
		return xerrors.Wrapf(ErrConfigInvalid, "failure_ratio must be in (0, 1], got %v", c.FailureRatio)
	}
	return nil
}
