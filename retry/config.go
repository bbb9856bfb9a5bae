package retry

import (
	"time"

	"github.com/ceyewan/aegis/xerrors"
)

// defaultRetriableStatusCodes 约定俗成的可重试 HTTP 状态码
var defaultRetriableStatusCodes = []int{408, 429, 500, 502, 503, 504}

// Config 重试策略配置（不可变，策略自身不持有每次调用的状态）
type Config struct {
	// MaxRetries 最大重试次数，总调用次数最多为 MaxRetries+1（默认：3）
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// BaseDelay 首次重试前的基础延迟（默认：100ms）
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`

	// MaxDelay 单次延迟上限（默认：30s）
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`

	// BackoffMultiplier 指数退避系数（默认：2.0）
	BackoffMultiplier float64 `json:"backoff_multiplier" yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`

	// JitterEnabled 是否启用抖动，启用后实际等待均匀分布在
	// [0.5*delay, delay]（默认：true，注意零值反序列化时为 false）
	JitterEnabled bool `json:"jitter_enabled" yaml:"jitter_enabled" mapstructure:"jitter_enabled"`

	// RetriableStatusCodes 可重试的 HTTP 状态码集合
	// （默认：408, 429, 500, 502, 503, 504）
	RetriableStatusCodes []int `json:"retriable_status_codes" yaml:"retriable_status_codes" mapstructure:"retriable_status_codes"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}
	if c.RetriableStatusCodes == nil {
		c.RetriableStatusCodes = defaultRetriableStatusCodes
	}
}

// validate 校验配置
func (c *Config) validate() error {
	if c.BackoffMultiplier < 1 {
		return xerrors.Wrapf(ErrConfigInvalid, "backoff_multiplier must be >= 1, got %v", c.BackoffMultiplier)
	}
	if c.MaxDelay < c.BaseDelay {
		return xerrors.Wrapf(ErrConfigInvalid, "max_delay (%v) must not be less than base_delay (%v)", c.MaxDelay, c.BaseDelay)
	}
	return nil
}
