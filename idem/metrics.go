package idem

// Metrics 指标常量定义
const (
	// MetricHitsTotal 缓存命中数 (Counter, 按 tier 标签区分两层)
	MetricHitsTotal = "idem_hits_total"

	// MetricMissesTotal 缓存未命中数 (Counter)
	MetricMissesTotal = "idem_misses_total"

	// MetricExpiredTotal 清扫移除的过期记录数 (Counter)
	MetricExpiredTotal = "idem_expired_total"

	// LabelTier 存储层标签 (memory/durable)
	LabelTier = "tier"
)
