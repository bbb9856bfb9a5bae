package guard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ceyewan/aegis/breaker"
	"github.com/ceyewan/aegis/idem"
	"github.com/ceyewan/aegis/ratelimit"
	"github.com/ceyewan/aegis/retry"
)

func newTestBreaker(t *testing.T) breaker.Breaker {
	t.Helper()
	brk, err := breaker.New(&breaker.Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		OpenDuration:     time.Minute,
		HalfOpenMaxCalls: 1,
	})
	if err != nil {
		t.Fatalf("breaker.New failed: %v", err)
	}
	return brk
}

func newTestRetry(t *testing.T) retry.Policy {
	t.Helper()
	policy, err := retry.New(&retry.Config{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("retry.New failed: %v", err)
	}
	return policy
}

func newTestIdem(t *testing.T) idem.Idempotency {
	t.Helper()
	cache, err := idem.New(&idem.Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("idem.New failed: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}

func newTestLimiter(t *testing.T) ratelimit.Limiter {
	t.Helper()
	limiter, err := ratelimit.New(nil)
	if err != nil {
		t.Fatalf("ratelimit.New failed: %v", err)
	}
	t.Cleanup(func() {
		_ = limiter.Close()
	})
	return limiter
}

// TestEmptyGuard 测试无阶段的 Guard 直接调用 fn
func TestEmptyGuard(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := g.Execute(context.Background(), Call{}, func(ctx context.Context) (any, error) {
		return "plain", nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "plain" {
		t.Fatalf("expected 'plain', got: %v", result)
	}
}

// TestNewNegativeTimeout 测试负超时配置
func TestNewNegativeTimeout(t *testing.T) {
	_, err := New(WithTimeout(-time.Second))
	if !errors.Is(err, ErrInvalidTimeout) {
		t.Fatalf("expected ErrInvalidTimeout, got: %v", err)
	}
}

// TestBreakerRequiresService 测试配置熔断器时 Service 必填
func TestBreakerRequiresService(t *testing.T) {
	g, err := New(WithBreaker(newTestBreaker(t)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = g.Execute(context.Background(), Call{}, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrServiceEmpty) {
		t.Fatalf("expected ErrServiceEmpty, got: %v", err)
	}
}

// TestBreakerStage 测试熔断阶段：连续失败后快速拒绝
func TestBreakerStage(t *testing.T) {
	brk := newTestBreaker(t)
	g, err := New(WithBreaker(brk))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	boom := errors.New("downstream down")
	call := Call{Service: "payments"}

	for i := 0; i < 2; i++ {
		if _, err := g.Execute(ctx, call, func(ctx context.Context) (any, error) {
			return nil, boom
		}); !errors.Is(err, boom) {
			t.Fatalf("attempt %d should propagate fn error, got: %v", i, err)
		}
	}

	var called bool
	_, err = g.Execute(ctx, call, func(ctx context.Context) (any, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, breaker.ErrOpenState) {
		t.Fatalf("open breaker should fast-reject, got: %v", err)
	}
	if called {
		t.Fatal("fn must not run while the breaker is open")
	}
}

// TestRetryStage 测试重试阶段：瞬时失败后成功
func TestRetryStage(t *testing.T) {
	g, err := New(WithRetry(newTestRetry(t)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var calls int32
	result, err := g.Execute(context.Background(), Call{}, func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, retry.Retriable(errors.New("flaky"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected 'ok', got: %v", result)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts, got: %d", n)
	}
}

// TestBreakerCountsRetryOutcome 测试熔断器把一轮重试记为一次成败
func TestBreakerCountsRetryOutcome(t *testing.T) {
	brk := newTestBreaker(t)
	g, err := New(WithBreaker(brk), WithRetry(newTestRetry(t)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	call := Call{Service: "inventory"}
	var calls int32

	// 一轮重试共 3 次尝试全部失败，熔断器只记 1 次失败，仍为 CLOSED
	_, err = g.Execute(ctx, call, func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, retry.Retriable(errors.New("still down"))
	})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts in one round, got: %d", n)
	}

	state, err := brk.State("inventory")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != breaker.StateClosed {
		t.Fatalf("one failed round should not open the breaker, got: %v", state)
	}
}

// TestTimeoutStage 测试超时阶段：每次尝试独立计时
func TestTimeoutStage(t *testing.T) {
	g, err := New(WithTimeout(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = g.Execute(context.Background(), Call{}, func(ctx context.Context) (any, error) {
		select {
		case <-time.After(time.Second):
			return "too late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got: %v", err)
	}
}

// TestIdemStage 测试幂等阶段：窗口内重复调用只执行一次
func TestIdemStage(t *testing.T) {
	g, err := New(WithIdempotency(newTestIdem(t)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	call := Call{IdempotencyKey: "order:42", TTL: time.Minute}
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "order-42", nil
	}

	for i := 0; i < 3; i++ {
		result, err := g.Execute(ctx, call, fn)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result != "order-42" {
			t.Fatalf("expected 'order-42', got: %v", result)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("idempotent call should execute once, got: %d", n)
	}

	// 无幂等键时跳过幂等阶段
	if _, err := g.Execute(ctx, Call{}, fn); err != nil {
		t.Fatalf("Execute without key failed: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("call without key must not be deduplicated, got: %d", n)
	}
}

// TestRateLimitStage 测试限流阶段：超出突发容量被拒绝
func TestRateLimitStage(t *testing.T) {
	g, err := New(WithRateLimiter(newTestLimiter(t)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	call := Call{Service: "search", Limit: ratelimit.Limit{Rate: 1, Burst: 1}}
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}

	if _, err := g.Execute(ctx, call, fn); err != nil {
		t.Fatalf("first call should pass, got: %v", err)
	}

	_, err = g.Execute(ctx, call, fn)
	if !errors.Is(err, ratelimit.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("rejected call must not reach fn, got: %d", n)
	}

	// 零值 Limit 跳过限流阶段
	if _, err := g.Execute(ctx, Call{Service: "search"}, fn); err != nil {
		t.Fatalf("call without limit should pass, got: %v", err)
	}
}

// TestRateLimitKeyFallback 测试限流键缺失
func TestRateLimitKeyFallback(t *testing.T) {
	g, err := New(WithRateLimiter(newTestLimiter(t)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = g.Execute(context.Background(), Call{Limit: ratelimit.Limit{Rate: 1, Burst: 1}},
		func(ctx context.Context) (any, error) {
			return nil, nil
		})
	if !errors.Is(err, ErrLimitKeyEmpty) {
		t.Fatalf("expected ErrLimitKeyEmpty, got: %v", err)
	}
}

// TestFullPipeline 测试全阶段组合
func TestFullPipeline(t *testing.T) {
	g, err := New(
		WithRateLimiter(newTestLimiter(t)),
		WithBreaker(newTestBreaker(t)),
		WithRetry(newTestRetry(t)),
		WithTimeout(100*time.Millisecond),
		WithIdempotency(newTestIdem(t)),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	call := Call{
		Service:        "checkout",
		IdempotencyKey: "txn:7",
		TTL:            time.Minute,
		Limit:          ratelimit.Limit{Rate: 100, Burst: 10},
	}

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, retry.Retriable(errors.New("first attempt flaky"))
		}
		return "committed", nil
	}

	result, err := g.Execute(ctx, call, fn)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "committed" {
		t.Fatalf("expected 'committed', got: %v", result)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected retry then success, got %d calls", n)
	}

	// 第二轮：幂等命中，fn 不再执行
	result, err = g.Execute(ctx, call, fn)
	if err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}
	if result != "committed" {
		t.Fatalf("expected cached 'committed', got: %v", result)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("cached round must not call fn, got: %d", n)
	}
}
