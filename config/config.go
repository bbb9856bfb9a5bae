package config

import (
	"context"
	"strings"
)

// Config 配置加载器的配置
type Config struct {
	Name      string   `json:"name" yaml:"name" mapstructure:"name"`                // 配置文件名称（不含扩展名，默认 "config"）
	Paths     []string `json:"paths" yaml:"paths" mapstructure:"paths"`             // 配置文件搜索路径，默认 ["./", "./config"]
	FileType  string   `json:"file_type" yaml:"file_type" mapstructure:"file_type"` // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string   `json:"env_prefix" yaml:"env_prefix" mapstructure:"env_prefix"` // 环境变量前缀，默认 "AEGIS"
}

// validate 设置默认值并验证配置
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "AEGIS"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
	return nil
}

// New 创建配置加载器。
//
// 如果 cfg 为 nil，使用默认配置。实际加载在调用 Load() 时进行。
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return newLoader(cfg, opts...), nil
}

// MustLoad 创建加载器并立即加载配置，出错时 panic。
// 适用于应用启动阶段，配置加载失败无法继续的场景。
func MustLoad(cfg *Config, opts ...Option) Loader {
	l, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}
