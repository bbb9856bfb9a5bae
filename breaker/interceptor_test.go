package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestConn(t *testing.T) *grpc.ClientConn {
	cc, err := grpc.NewClient("passthrough:///test-service",
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to create client conn: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })
	return cc
}

// TestUnaryClientInterceptor 一元拦截器透传结果并驱动熔断
func TestUnaryClientInterceptor(t *testing.T) {
	brk, _ := New(&Config{FailureThreshold: 2, OpenDuration: time.Minute, HalfOpenMaxCalls: 1})
	interceptor := brk.UnaryClientInterceptor()
	cc := newTestConn(t)
	ctx := context.Background()

	// 成功调用
	err := interceptor(ctx, "/test.Service/Method", nil, nil, cc,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			return nil
		})
	if err != nil {
		t.Fatalf("interceptor should pass through success: %v", err)
	}

	// 连续失败触发熔断
	opErr := errors.New("rpc failed")
	for i := 0; i < 2; i++ {
		_ = interceptor(ctx, "/test.Service/Method", nil, nil, cc,
			func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
				return opErr
			})
	}

	state, _ := brk.State(cc.Target())
	if state != StateOpen {
		t.Fatalf("expected StateOpen, got: %v", state)
	}

	err = interceptor(ctx, "/test.Service/Method", nil, nil, cc,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			t.Fatal("invoker must not run while open")
			return nil
		})
	if !errors.Is(err, ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got: %v", err)
	}
}

// TestUnaryClientInterceptorMethodLevelKey 方法级别依赖名隔离熔断
func TestUnaryClientInterceptorMethodLevelKey(t *testing.T) {
	brk, _ := New(&Config{FailureThreshold: 1, OpenDuration: time.Minute, HalfOpenMaxCalls: 1})
	interceptor := brk.UnaryClientInterceptor(WithMethodLevelKey())
	cc := newTestConn(t)
	ctx := context.Background()

	_ = interceptor(ctx, "/test.Service/Failing", nil, nil, cc,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			return errors.New("boom")
		})

	failingState, _ := brk.State("/test.Service/Failing")
	if failingState != StateOpen {
		t.Fatalf("expected StateOpen for failing method, got: %v", failingState)
	}

	// 同一连接上的其他方法不受影响
	err := interceptor(ctx, "/test.Service/Healthy", nil, nil, cc,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			return nil
		})
	if err != nil {
		t.Fatalf("healthy method should pass through: %v", err)
	}
}

// TestKeyFuncVariations 内置 KeyFunc 的取值
func TestKeyFuncVariations(t *testing.T) {
	cc := newTestConn(t)
	ctx := context.Background()
	method := "/test.Service/Method"

	if got := ServiceLevelKey()(ctx, method, cc); got != cc.Target() {
		t.Errorf("ServiceLevelKey = %q, want %q", got, cc.Target())
	}
	if got := MethodLevelKey()(ctx, method, cc); got != method {
		t.Errorf("MethodLevelKey = %q, want %q", got, method)
	}
	// 无 peer 信息时回退到服务名
	if got := BackendLevelKey()(ctx, method, cc); got != cc.Target() {
		t.Errorf("BackendLevelKey fallback = %q, want %q", got, cc.Target())
	}

	composite := CompositeKey(ServiceLevelKey(), MethodLevelKey())(ctx, method, cc)
	if want := cc.Target() + "@" + method; composite != want {
		t.Errorf("CompositeKey = %q, want %q", composite, want)
	}

	sep := CompositeKeyWithSeparator("|", ServiceLevelKey(), MethodLevelKey())(ctx, method, cc)
	if want := cc.Target() + "|" + method; sep != want {
		t.Errorf("CompositeKeyWithSeparator = %q, want %q", sep, want)
	}
}
