//go:build integration

package idem

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ceyewan/aegis/testkit"
)

// 集成测试需要本地 Redis，运行方式：
//
//	go test -tags=integration ./idem/...
//
// Redis 地址可通过 AEGIS_TEST_REDIS_ADDR 环境变量覆盖。

// TestRedisStoreCRUD 测试 Redis 耐久层的基本契约
func TestRedisStoreCRUD(t *testing.T) {
	conn := testkit.GetRedisConnector(t)
	store := newRedisStore(conn)
	ctx := context.Background()

	prefix := "aegis:test:" + testkit.NewID() + ":"
	key := prefix + "a"

	if _, err := store.Get(ctx, key); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("Get on missing key should return ErrRecordNotFound, got: %v", err)
	}

	if err := store.Set(ctx, key, []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	defer store.Remove(ctx, key)

	val, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "v1" {
		t.Fatalf("expected 'v1', got: %q", val)
	}

	keys, err := store.ListKeys(ctx, prefix)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Fatalf("unexpected key listing: %v", keys)
	}

	if err := store.Remove(ctx, key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("removed key should be gone, got: %v", err)
	}
}

// TestRedisDriverEndToEnd 测试 redis 驱动下跨实例的幂等保证
func TestRedisDriverEndToEnd(t *testing.T) {
	conn := testkit.GetRedisConnector(t)
	cfg := testConfig()
	cfg.Driver = DriverRedis
	cfg.Prefix = "aegis:test:" + testkit.NewID() + ":"
	ctx := context.Background()

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "committed", nil
	}

	first, err := New(cfg, WithRedisConnector(conn))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := first.Execute(ctx, "order:1", time.Minute, fn); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := New(cfg, WithRedisConnector(conn))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer second.Close()
	defer second.Clear(ctx)

	result, err := second.Execute(ctx, "order:1", time.Minute, fn)
	if err != nil {
		t.Fatalf("Execute on second instance failed: %v", err)
	}
	if result != "committed" {
		t.Fatalf("expected durable value 'committed', got: %v", result)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("record should survive across instances, calls: %d", n)
	}
}
