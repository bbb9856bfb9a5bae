package retry

import (
	"context"
	"strconv"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
)

// policy 重试策略实现（非导出）
type policy struct {
	cfg        *Config
	logger     clog.Logger
	meter      metrics.Meter
	classifier Classifier
}

// Execute 执行带重试的函数
func (p *policy) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		// 重试预算耗尽：包装最后一次的错误并携带尝试次数
		if attempt >= p.cfg.MaxRetries {
			p.recordExhausted(ctx)
			return nil, &ExhaustedError{Attempts: attempt + 1, Err: err}
		}

		// 不可重试的错误立即失败，不消耗剩余预算
		if !p.classifier(err) {
			p.logger.Debug("error not retriable, failing fast",
				clog.Int("attempt", attempt+1),
				clog.Error(err))
			return nil, err
		}

		delay := p.delayFor(attempt)
		p.logger.Debug("retrying after transient failure",
			clog.Int("attempt", attempt+1),
			clog.Duration("delay", delay),
			clog.Error(err))
		p.recordRetry(ctx, attempt+1)

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// sleep 可取消的等待，永不忙等
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// recordRetry 记录重试指标
func (p *policy) recordRetry(ctx context.Context, attempt int) {
	if p.meter == nil {
		return
	}
	if counter, err := p.meter.Counter(MetricRetriesTotal, "Total retries"); err == nil {
		counter.Inc(ctx, metrics.L(LabelAttempt, strconv.Itoa(attempt)))
	}
}

// recordExhausted 记录重试耗尽指标
func (p *policy) recordExhausted(ctx context.Context) {
	if p.meter == nil {
		return
	}
	if counter, err := p.meter.Counter(MetricExhaustedTotal, "Exhausted retry budgets"); err == nil {
		counter.Inc(ctx)
	}
}
