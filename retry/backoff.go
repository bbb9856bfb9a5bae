package retry

import (
	"math"
	"math/rand"
	"time"
)

// delayFor 计算第 attempt 次重试前的等待时间（attempt 从 0 开始）
//
// delay = min(BaseDelay * BackoffMultiplier^attempt, MaxDelay)
// 抖动启用时实际等待均匀分布在 [0.5*delay, delay]，
// 避免同时失败的并发调用方在同一时刻集体重试。
func (p *policy) delayFor(attempt int) time.Duration {
	delay := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.BackoffMultiplier, float64(attempt))
	if delay > float64(p.cfg.MaxDelay) {
		delay = float64(p.cfg.MaxDelay)
	}

	if p.cfg.JitterEnabled {
		delay *= 0.5 + rand.Float64()*0.5
	}

	return time.Duration(delay)
}
