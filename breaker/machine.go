package breaker

import (
	"context"
	"sync"
	"time"
)

// instance 单个命名依赖的熔断器实例
// consecutive 策略由 machine 实现，rate 策略由 rateBreaker 实现
type instance interface {
	Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
	State() State
	Stats() Stats
	Reset()
}

// transitionFunc 状态转换回调，from == to 时不会触发
type transitionFunc func(from, to State)

// machine 连续失败策略的三态状态机（非导出）
//
// 所有字段的读改写都在 mu 保护下进行，探针准入判断与计数递增
// 不会被并发调用拆开，两个并发请求无法同时挤过 HalfOpenMaxCalls。
// 探针结果携带准入时观察到的 generation，状态转换会推进 generation，
// 迟到的过期结果直接丢弃，不会影响新窗口。
type machine struct {
	cfg *Config

	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	halfOpenInFlight int
	nextAttemptAt    time.Time
	generation       uint64

	totalSuccesses  uint64
	totalFailures   uint64
	totalRejections uint64

	name         string
	now          func() time.Time
	onTransition transitionFunc
}

func newMachine(name string, cfg *Config, onTransition transitionFunc) *machine {
	return &machine{
		cfg:          cfg,
		state:        StateClosed,
		name:         name,
		now:          time.Now,
		onTransition: onTransition,
	}
}

// Execute 执行受熔断保护的函数
func (m *machine) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	gen, err := m.acquire()
	if err != nil {
		return nil, err
	}

	result, err := fn(ctx)
	m.report(gen, err != nil)
	return result, err
}

// acquire 准入判定，返回准入时的 generation
// 快速拒绝时返回 *OpenStateError 或 ErrTooManyProbes，均不调用业务函数
func (m *machine) acquire() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateClosed:
		return m.generation, nil

	case StateOpen:
		// OPEN 的到期是惰性判定的：没有后台定时器，
		// 第一个在 nextAttemptAt 之后到达的调用触发转入半开并作为首个探针放行
		if m.now().Before(m.nextAttemptAt) {
			m.totalRejections++
			return 0, &OpenStateError{Name: m.name, RetryAfter: m.nextAttemptAt}
		}
		m.transition(StateHalfOpen)
		m.halfOpenInFlight = 1
		return m.generation, nil

	case StateHalfOpen:
		if m.halfOpenInFlight >= m.cfg.HalfOpenMaxCalls {
			m.totalRejections++
			return 0, ErrTooManyProbes
		}
		m.halfOpenInFlight++
		return m.generation, nil
	}

	return m.generation, nil
}

// report 记录调用结果并推进状态机
// gen 与当前 generation 不一致说明结果来自上一个窗口，直接丢弃
func (m *machine) report(gen uint64, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}

	if failed {
		m.totalFailures++
	} else {
		m.totalSuccesses++
	}

	switch m.state {
	case StateClosed:
		if failed {
			m.failureCount++
			if m.failureCount >= m.cfg.FailureThreshold {
				m.transition(StateOpen)
			}
		} else {
			m.failureCount = 0
		}

	case StateHalfOpen:
		m.halfOpenInFlight--
		if failed {
			// 一次失败即回到 OPEN，不做平均
			m.transition(StateOpen)
			return
		}
		m.successCount++
		if m.successCount >= m.cfg.SuccessThreshold {
			m.transition(StateClosed)
		}
	}
}

// transition 执行状态转换：重置计数器、推进 generation、
// 转入 OPEN 时重新计算 nextAttemptAt，最后通知观察者
// 调用方必须持有 m.mu
func (m *machine) transition(to State) {
	from := m.state
	if from == to {
		return
	}

	m.state = to
	m.generation++
	m.failureCount = 0
	m.successCount = 0
	m.halfOpenInFlight = 0

	if to == StateOpen {
		m.nextAttemptAt = m.now().Add(m.cfg.OpenDuration)
	} else {
		m.nextAttemptAt = time.Time{}
	}

	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}

// State 返回当前状态
func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats 返回统计信息快照
func (m *machine) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		State:                m.state,
		ConsecutiveFailures:  m.failureCount,
		ConsecutiveSuccesses: m.successCount,
		HalfOpenInFlight:     m.halfOpenInFlight,
		NextAttemptAt:        m.nextAttemptAt,
		TotalSuccesses:       m.totalSuccesses,
		TotalFailures:        m.totalFailures,
		TotalRejections:      m.totalRejections,
	}
}

// Reset 重置回 CLOSED 状态
func (m *machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transition(StateClosed)
	// 已处于 CLOSED 时 transition 不动作，这里仍需清零连续失败计数
	m.failureCount = 0
	m.successCount = 0
}
