package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
	"github.com/ceyewan/aegis/xerrors"
)

// circuitBreaker 熔断器实现（非导出）
//
// 内部维护一个按依赖名索引的实例注册表，
// 实例在第一次使用时惰性创建，进程生命周期内常驻。
type circuitBreaker struct {
	cfg           *Config
	logger        clog.Logger
	meter         metrics.Meter
	fallback      FallbackFunc
	onStateChange StateChangeFunc

	// 依赖级实例注册表
	instances sync.Map // map[string]instance
}

// newBreaker 创建熔断器实例（内部函数）
// 注意：cfg 已在 New() 中完成默认值填充与校验
func newBreaker(
	cfg *Config,
	logger clog.Logger,
	meter metrics.Meter,
	fallback FallbackFunc,
	onStateChange StateChangeFunc,
) Breaker {
	return &circuitBreaker{
		cfg:           cfg,
		logger:        logger.WithNamespace("breaker"),
		meter:         meter,
		fallback:      fallback,
		onStateChange: onStateChange,
	}
}

// Execute 执行受熔断保护的函数
func (cb *circuitBreaker) Execute(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}

	inst := cb.getOrCreate(name)

	start := time.Now()
	result, err := inst.Execute(ctx, fn)
	cb.recordMetrics(ctx, name, err, time.Since(start))

	// 快速拒绝时执行降级逻辑（如果配置了）
	if err != nil && isFastReject(err) {
		cb.logger.Warn("circuit breaker rejected call",
			clog.String("name", name),
			clog.Error(err))

		if cb.fallback != nil {
			return cb.fallback(ctx, name, err)
		}
	}

	return result, err
}

// State 获取指定依赖的熔断器状态
func (cb *circuitBreaker) State(name string) (State, error) {
	if name == "" {
		return StateClosed, ErrNameEmpty
	}
	val, ok := cb.instances.Load(name)
	if !ok {
		return StateClosed, nil
	}
	return val.(instance).State(), nil
}

// Stats 获取指定依赖的统计信息
func (cb *circuitBreaker) Stats(name string) (Stats, error) {
	if name == "" {
		return Stats{}, ErrNameEmpty
	}
	val, ok := cb.instances.Load(name)
	if !ok {
		return Stats{State: StateClosed}, nil
	}
	return val.(instance).Stats(), nil
}

// Reset 将指定依赖的熔断器重置回 CLOSED 状态
func (cb *circuitBreaker) Reset(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	val, ok := cb.instances.Load(name)
	if !ok {
		return nil
	}
	val.(instance).Reset()
	cb.logger.Info("circuit breaker reset", clog.String("name", name))
	return nil
}

// getOrCreate 获取或创建指定依赖的熔断器实例
func (cb *circuitBreaker) getOrCreate(name string) instance {
	if val, ok := cb.instances.Load(name); ok {
		return val.(instance)
	}

	onTransition := func(from, to State) {
		cb.handleTransition(name, from, to)
	}

	var inst instance
	switch cb.cfg.Strategy {
	case StrategyRate:
		inst = newRateBreaker(name, cb.cfg, onTransition)
	default:
		inst = newMachine(name, cb.cfg, onTransition)
	}

	// 可能有并发创建，使用 LoadOrStore 保证同名单例
	actual, _ := cb.instances.LoadOrStore(name, inst)
	return actual.(instance)
}

// handleTransition 状态转换回调：记日志、记指标、通知观察者
func (cb *circuitBreaker) handleTransition(name string, from, to State) {
	cb.logger.Info("circuit breaker state changed",
		clog.String("name", name),
		clog.String("from", from.String()),
		clog.String("to", to.String()))

	if cb.meter != nil {
		if counter, err := cb.meter.Counter(MetricStateChanges, "Circuit breaker state changes"); err == nil {
			counter.Inc(context.Background(),
				metrics.L(LabelName, name),
				metrics.L(LabelFromState, from.String()),
				metrics.L(LabelToState, to.String()))
		}
		if gauge, err := cb.meter.Gauge(MetricState, "Circuit breaker current state"); err == nil {
			gauge.Set(context.Background(), float64(to), metrics.L(LabelName, name))
		}
	}

	if cb.onStateChange != nil {
		cb.onStateChange(name, from, to)
	}
}

// recordMetrics 记录调用指标
func (cb *circuitBreaker) recordMetrics(ctx context.Context, name string, err error, duration time.Duration) {
	if cb.meter == nil {
		return
	}

	if counter, e := cb.meter.Counter(MetricRequestsTotal, "Total requests"); e == nil {
		counter.Inc(ctx, metrics.L(LabelName, name))
	}
	if histogram, e := cb.meter.Histogram(MetricRequestDuration, "Request duration", metrics.WithUnit("s")); e == nil {
		histogram.Record(ctx, duration.Seconds(), metrics.L(LabelName, name))
	}

	switch {
	case err == nil:
		if counter, e := cb.meter.Counter(MetricSuccessTotal, "Successful requests"); e == nil {
			counter.Inc(ctx, metrics.L(LabelName, name))
		}
	case isFastReject(err):
		if counter, e := cb.meter.Counter(MetricRejectsTotal, "Rejected requests"); e == nil {
			counter.Inc(ctx, metrics.L(LabelName, name))
		}
	default:
		if counter, e := cb.meter.Counter(MetricFailuresTotal, "Failed requests"); e == nil {
			counter.Inc(ctx, metrics.L(LabelName, name))
		}
	}
}

// isFastReject 判断是否为熔断器自身的快速拒绝错误
func isFastReject(err error) bool {
	return xerrors.Is(err, ErrOpenState) || xerrors.Is(err, ErrTooManyProbes)
}
