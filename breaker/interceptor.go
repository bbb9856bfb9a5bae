package breaker

import (
	"context"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"

	"google.golang.org/grpc"
)

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
// 为每个 gRPC 调用提供熔断保护
//
// 使用示例:
//
//	brk, _ := breaker.New(cfg, breaker.WithLogger(logger))
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(brk.UnaryClientInterceptor()),
//	)
func (cb *circuitBreaker) UnaryClientInterceptor(opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	cfg := newInterceptorConfig(opts...)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		name := cfg.keyFunc(ctx, method, cc)

		cb.logger.Debug("unary call with circuit breaker",
			clog.String("name", name),
			clog.String("method", method))

		_, err := cb.Execute(ctx, name, func(ctx context.Context) (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, callOpts...)
		})

		cb.recordMethodMetrics(ctx, name, method, err)
		return err
	}
}

// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器
// 熔断保护覆盖流的建立，流建立后的收发错误不计入熔断统计
func (cb *circuitBreaker) StreamClientInterceptor(opts ...InterceptorOption) grpc.StreamClientInterceptor {
	cfg := newInterceptorConfig(opts...)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		name := cfg.keyFunc(ctx, method, cc)

		cb.logger.Debug("stream call with circuit breaker",
			clog.String("name", name),
			clog.String("method", method))

		result, err := cb.Execute(ctx, name, func(ctx context.Context) (any, error) {
			return streamer(ctx, desc, cc, method, callOpts...)
		})

		cb.recordMethodMetrics(ctx, name, method, err)
		if err != nil {
			return nil, err
		}
		return result.(grpc.ClientStream), nil
	}
}

// recordMethodMetrics 记录方法级别的指标
func (cb *circuitBreaker) recordMethodMetrics(ctx context.Context, name, method string, err error) {
	if cb.meter == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "failure"
	}

	if counter, e := cb.meter.Counter(MetricRequestsTotal, "Total requests"); e == nil {
		counter.Inc(ctx,
			metrics.L(LabelName, name),
			metrics.L(LabelMethod, method),
			metrics.L(LabelResult, result))
	}
}
