package idem

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		Driver:          DriverMemory,
		Prefix:          "test:idem:",
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Hour, // 测试中不依赖后台清扫
	}
}

func newTestCache(t *testing.T) Idempotency {
	t.Helper()
	cache, err := New(testConfig())
	if err != nil {
		t.Fatalf("New should not return error, got: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})
	return cache
}

// TestNewNilConfig 测试 nil 配置
func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	if !errors.Is(err, ErrConfigNil) {
		t.Fatalf("expected ErrConfigNil, got: %v", err)
	}
}

// TestNewInvalidConfig 测试非法配置
func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{Driver: "cassandra"})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for unknown driver, got: %v", err)
	}

	_, err = New(&Config{Serializer: "xml"})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for unknown serializer, got: %v", err)
	}
}

// TestNewMissingConnector 测试缺失连接器
func TestNewMissingConnector(t *testing.T) {
	if _, err := New(&Config{Driver: DriverRedis}); err == nil {
		t.Fatal("redis driver without connector should fail")
	}
	if _, err := New(&Config{Driver: DriverSQLite}); err == nil {
		t.Fatal("sqlite driver without connector should fail")
	}
}

// TestExecuteEmptyKey 测试空幂等键
func TestExecuteEmptyKey(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.Execute(context.Background(), "", 0, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrKeyEmpty) {
		t.Fatalf("expected ErrKeyEmpty, got: %v", err)
	}
}

// TestExecuteOnce 测试窗口内至多一次执行
func TestExecuteOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "order-42", nil
	}

	for i := 0; i < 5; i++ {
		result, err := cache.Execute(ctx, "order:create:42", time.Minute, fn)
		if err != nil {
			t.Fatalf("Execute should not return error, got: %v", err)
		}
		if result != "order-42" {
			t.Fatalf("expected 'order-42', got: %v", result)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("fn should be executed exactly once, got: %d", n)
	}

	stats := cache.Stats()
	if stats.Executions != 1 {
		t.Fatalf("expected 1 execution, got: %d", stats.Executions)
	}
	if stats.MemoryHits != 4 {
		t.Fatalf("expected 4 memory hits, got: %d", stats.MemoryHits)
	}
}

// TestExecuteFailureNotCached 测试失败结果不缓存
func TestExecuteFailureNotCached(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("downstream unavailable")
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return "recovered", nil
	}

	if _, err := cache.Execute(ctx, "payment:77", 0, fn); !errors.Is(err, boom) {
		t.Fatalf("first call should propagate fn error, got: %v", err)
	}

	result, err := cache.Execute(ctx, "payment:77", 0, fn)
	if err != nil {
		t.Fatalf("retry after failure should succeed, got: %v", err)
	}
	if result != "recovered" {
		t.Fatalf("expected 'recovered', got: %v", result)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("failed result must stay retriable, calls: %d", n)
	}
}

// TestExecuteTTLExpiry 测试 TTL 过期后重新执行
func TestExecuteTTLExpiry(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	if _, err := cache.Execute(ctx, "job:9", 30*time.Millisecond, fn); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	result, err := cache.Execute(ctx, "job:9", 30*time.Millisecond, fn)
	if err != nil {
		t.Fatalf("Execute after expiry failed: %v", err)
	}
	if result != int32(2) {
		t.Fatalf("expired record should trigger re-execution, got: %v", result)
	}
}

// TestExecuteConcurrent 测试同键并发合并
func TestExecuteConcurrent(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "winner", nil
	}

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]any, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = cache.Execute(ctx, "flash-sale:1", time.Minute, fn)
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d got error: %v", i, errs[i])
		}
		if results[i] != "winner" {
			t.Fatalf("goroutine %d got result: %v", i, results[i])
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("concurrent calls should merge into one execution, got: %d", n)
	}
}

// TestHas 测试记录存在性查询
func TestHas(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	ok, err := cache.Has(ctx, "nothing")
	if err != nil || ok {
		t.Fatalf("Has on missing key: ok=%v err=%v", ok, err)
	}

	if _, err := cache.Execute(ctx, "seen", 0, func(ctx context.Context) (any, error) {
		return 1, nil
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	ok, err = cache.Has(ctx, "seen")
	if err != nil || !ok {
		t.Fatalf("Has on cached key: ok=%v err=%v", ok, err)
	}

	if _, err := cache.Has(ctx, ""); !errors.Is(err, ErrKeyEmpty) {
		t.Fatalf("Has with empty key should return ErrKeyEmpty, got: %v", err)
	}
}

// TestInvalidate 测试记录失效
func TestInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	if _, err := cache.Execute(ctx, "draft:5", 0, fn); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := cache.Invalidate(ctx, "draft:5"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	result, err := cache.Execute(ctx, "draft:5", 0, fn)
	if err != nil {
		t.Fatalf("Execute after invalidate failed: %v", err)
	}
	if result != int32(2) {
		t.Fatalf("invalidated key should re-execute, got: %v", result)
	}
}

// TestClear 测试清空缓存
func TestClear(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := cache.Execute(ctx, key, 0, func(ctx context.Context) (any, error) {
			return key, nil
		}); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n := cache.Stats().MemoryEntries; n != 0 {
		t.Fatalf("memory tier should be empty after Clear, got: %d", n)
	}
	for _, key := range []string{"a", "b", "c"} {
		if ok, _ := cache.Has(ctx, key); ok {
			t.Fatalf("key %q should be gone after Clear", key)
		}
	}
}

// TestDurablePromotion 测试耐久层命中后提升进内存层
// 两个实例共享同一个 Store，模拟进程重启后从耐久层恢复
func TestDurablePromotion(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	first, err := New(testConfig(), WithStore(store))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer first.Close()
	if _, err := first.Execute(ctx, "invoice:3", time.Minute, func(ctx context.Context) (any, error) {
		return "paid", nil
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	second, err := New(testConfig(), WithStore(store))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer second.Close()

	var called bool
	result, err := second.Execute(ctx, "invoice:3", time.Minute, func(ctx context.Context) (any, error) {
		called = true
		return "paid-again", nil
	})
	if err != nil {
		t.Fatalf("Execute on second instance failed: %v", err)
	}
	if called {
		t.Fatal("durable hit should not re-execute fn")
	}
	if result != "paid" {
		t.Fatalf("expected durable value 'paid', got: %v", result)
	}

	stats := second.Stats()
	if stats.DurableHits != 1 {
		t.Fatalf("expected 1 durable hit, got: %d", stats.DurableHits)
	}
	if stats.MemoryEntries != 1 {
		t.Fatalf("durable hit should promote into memory tier, got: %d entries", stats.MemoryEntries)
	}
}

// TestMsgpackSerializer 测试 msgpack 序列化经耐久层往返
func TestMsgpackSerializer(t *testing.T) {
	cfg := testConfig()
	cfg.Serializer = SerializerMsgpack
	store := newMemoryStore()

	first, err := New(cfg, WithStore(store))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer first.Close()
	ctx := context.Background()
	if _, err := first.Execute(ctx, "binary:1", time.Minute, func(ctx context.Context) (any, error) {
		return map[string]any{"amount": "99.50"}, nil
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	second, err := New(cfg, WithStore(store))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer second.Close()

	result, err := second.Execute(ctx, "binary:1", time.Minute, func(ctx context.Context) (any, error) {
		t.Fatal("should hit durable tier")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got: %T", result)
	}
	if m["amount"] != "99.50" {
		t.Fatalf("expected amount '99.50', got: %v", m["amount"])
	}
}

// TestCleanupSweep 测试后台清扫两层过期记录
func TestCleanupSweep(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = 20 * time.Millisecond

	cache, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if _, err := cache.Execute(ctx, "ephemeral", 10*time.Millisecond, func(ctx context.Context) (any, error) {
		return "gone soon", nil
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cache.Stats().MemoryEntries == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	stats := cache.Stats()
	if stats.MemoryEntries != 0 {
		t.Fatalf("sweep should remove expired entry, memory entries: %d", stats.MemoryEntries)
	}
	if stats.Expirations == 0 {
		t.Fatal("expected expiration counter to increase")
	}
}

// TestCloseIdempotent 测试 Close 可重复调用
func TestCloseIdempotent(t *testing.T) {
	cache, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := cache.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	_, err = cache.Execute(context.Background(), "after-close", 0, func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Execute after Close should return ErrClosed, got: %v", err)
	}
}

// TestDefaultTTLFallback 测试 ttl <= 0 使用默认值
func TestDefaultTTLFallback(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultTTL = 40 * time.Millisecond
	cache, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	if _, err := cache.Execute(ctx, "default-ttl", 0, fn); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := cache.Execute(ctx, "default-ttl", 0, fn); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("within default TTL fn should run once, got: %d", n)
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := cache.Execute(ctx, "default-ttl", 0, fn); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("after default TTL fn should run again, got: %d", n)
	}
}
