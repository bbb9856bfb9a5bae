package metrics

// Config 指标系统配置
//
// 典型配置（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "order-service"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回空实现，所有操作零开销
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ServiceName 写入 OpenTelemetry Resource 的 service.name 属性
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Version 写入 service.version 属性
	Version string `json:"version" yaml:"version" mapstructure:"version"`

	// Port 大于 0 时启动 Prometheus HTTP 服务器暴露指标
	Port int `json:"port" yaml:"port" mapstructure:"port"`

	// Path Prometheus 指标的 HTTP 路径，须以 "/" 开头
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "aegis"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
