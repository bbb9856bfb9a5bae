package retry

// Metrics 指标常量定义
const (
	// MetricRetriesTotal 重试总次数 (Counter)
	MetricRetriesTotal = "retry_retries_total"

	// MetricExhaustedTotal 重试预算耗尽次数 (Counter)
	MetricExhaustedTotal = "retry_exhausted_total"

	// LabelAttempt 尝试序号标签
	LabelAttempt = "attempt"
)
