package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config - 日志配置，为 nil 时使用开发默认配置
// opts   - 函数式选项列表，用于命名空间、Context 字段等配置
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("aegis")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := applyOptions(opts...)

	return newLogger(config, options)
}

// NewDefaultConfig 返回生产环境默认配置：info 级别，json 格式，stdout 输出。
func NewDefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// NewDevDefaultConfig 返回开发环境默认配置：debug 级别，console 格式，
// 并以 name 作为根命名空间写入预设字段。
func NewDevDefaultConfig(name string) *Config {
	return &Config{
		Level:     "debug",
		Format:    "console",
		Output:    "stdout",
		AddSource: true,
		AppName:   name,
	}
}
