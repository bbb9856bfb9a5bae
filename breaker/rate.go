package breaker

import (
	"context"
	"sync"

	"github.com/ceyewan/aegis/xerrors"

	"github.com/sony/gobreaker/v2"
)

// rateBreaker 失败率策略实例，包装 sony/gobreaker（非导出）
//
// Reset 通过重建内层 gobreaker 实现（gobreaker 不提供手动复位），
// mu 保护 cb 指针的换入换出。
type rateBreaker struct {
	cfg  *Config
	name string

	mu sync.RWMutex
	cb *gobreaker.CircuitBreaker[any]

	onTransition transitionFunc
}

func newRateBreaker(name string, cfg *Config, onTransition transitionFunc) *rateBreaker {
	rb := &rateBreaker{
		cfg:          cfg,
		name:         name,
		onTransition: onTransition,
	}
	rb.cb = rb.build()
	return rb
}

func (rb *rateBreaker) build() *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        rb.name,
		MaxRequests: rb.cfg.MaxRequests,
		Interval:    rb.cfg.Interval,
		Timeout:     rb.cfg.OpenDuration,
		ReadyToTrip: rb.readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if rb.onTransition != nil {
				rb.onTransition(fromGobreakerState(from), fromGobreakerState(to))
			}
		},
	})
}

// readyToTrip 判断是否应该触发熔断
func (rb *rateBreaker) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < rb.cfg.MinimumRequests {
		return false
	}
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return failureRatio >= rb.cfg.FailureRatio
}

// Execute 执行受熔断保护的函数
// gobreaker 的拒绝错误会映射为本包的哨兵错误
func (rb *rateBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	rb.mu.RLock()
	cb := rb.cb
	rb.mu.RUnlock()

	result, err := cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		if xerrors.Is(err, gobreaker.ErrOpenState) {
			return nil, &OpenStateError{Name: rb.name}
		}
		if xerrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrTooManyProbes
		}
	}
	return result, err
}

// State 返回当前状态
func (rb *rateBreaker) State() State {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return fromGobreakerState(rb.cb.State())
}

// Stats 返回统计信息快照，计数来自 gobreaker 的当前统计窗口
func (rb *rateBreaker) Stats() Stats {
	rb.mu.RLock()
	cb := rb.cb
	rb.mu.RUnlock()

	counts := cb.Counts()
	return Stats{
		State:                fromGobreakerState(cb.State()),
		ConsecutiveFailures:  int(counts.ConsecutiveFailures),
		ConsecutiveSuccesses: int(counts.ConsecutiveSuccesses),
		TotalSuccesses:       uint64(counts.TotalSuccesses),
		TotalFailures:        uint64(counts.TotalFailures),
	}
}

// Reset 重置回 CLOSED 状态（重建内层实例）
func (rb *rateBreaker) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.cb = rb.build()
}

// fromGobreakerState 将 gobreaker.State 映射为本包 State
func fromGobreakerState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
