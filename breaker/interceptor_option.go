package breaker

// InterceptorOption 拦截器选项函数类型
type InterceptorOption func(*interceptorConfig)

// interceptorConfig 拦截器内部配置（非导出）
type interceptorConfig struct {
	keyFunc KeyFunc
}

// newInterceptorConfig 应用拦截器选项，默认使用服务级别依赖名
func newInterceptorConfig(opts ...InterceptorOption) *interceptorConfig {
	cfg := &interceptorConfig{
		keyFunc: ServiceLevelKey(),
	}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithKeyFunc 设置依赖名生成函数
func WithKeyFunc(fn KeyFunc) InterceptorOption {
	return func(cfg *interceptorConfig) {
		if fn != nil {
			cfg.keyFunc = fn
		}
	}
}

// WithServiceLevelKey 使用服务级别依赖名（默认）
func WithServiceLevelKey() InterceptorOption {
	return WithKeyFunc(ServiceLevelKey())
}

// WithBackendLevelKey 使用后端级别依赖名
// 推荐用于负载均衡场景，实现后端级别的熔断隔离
func WithBackendLevelKey() InterceptorOption {
	return WithKeyFunc(BackendLevelKey())
}

// WithMethodLevelKey 使用方法级别依赖名
func WithMethodLevelKey() InterceptorOption {
	return WithKeyFunc(MethodLevelKey())
}

// WithCompositeKey 使用组合依赖名（服务 + 后端）
func WithCompositeKey() InterceptorOption {
	return WithKeyFunc(CompositeKey(ServiceLevelKey(), BackendLevelKey()))
}
