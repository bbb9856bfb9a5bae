package ratelimit

// Metrics 指标常量定义
const (
	// MetricAllowedTotal 允许通过的请求数 (Counter)
	MetricAllowedTotal = "ratelimit_allowed_total"

	// MetricDeniedTotal 被拒绝的请求数 (Counter)
	MetricDeniedTotal = "ratelimit_denied_total"
)
