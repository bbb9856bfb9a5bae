package idem

import (
	"time"

	"github.com/ceyewan/aegis/xerrors"
)

// DriverType 耐久层驱动类型
type DriverType string

const (
	// DriverMemory 使用内存作为耐久层（仅单机，进程重启后丢失）
	DriverMemory DriverType = "memory"
	// DriverRedis 使用 Redis 作为耐久层
	DriverRedis DriverType = "redis"
	// DriverSQLite 使用嵌入式 SQLite 作为耐久层
	DriverSQLite DriverType = "sqlite"
)

// SerializerType 记录序列化方式
type SerializerType string

const (
	// SerializerJSON JSON 序列化（默认，兼容性最好）
	SerializerJSON SerializerType = "json"
	// SerializerMsgpack MessagePack 二进制序列化，体积更小、速度更快
	SerializerMsgpack SerializerType = "msgpack"
)

// Config 幂等缓存配置
type Config struct {
	// Driver 耐久层类型: "memory" | "redis" | "sqlite" (默认 "memory")
	Driver DriverType `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Prefix 耐久层键前缀，默认 "idem:"
	// 例如："myapp:idem:" 将使用 "myapp:idem:{key}" 作为存储键
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// DefaultTTL 幂等记录默认有效期，默认 1h
	// 超过此时间后记录视同不存在，后续相同请求将重新执行
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// MaxMemoryEntries 内存层容量上限，默认 1000
	// 写入超过容量时按创建时间淘汰最旧的约 10%（至少 1 条）
	MaxMemoryEntries int `json:"max_memory_entries" yaml:"max_memory_entries" mapstructure:"max_memory_entries"`

	// CleanupInterval 后台清扫两层过期记录的间隔，默认 5m
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	// Serializer 记录跨耐久层边界的序列化方式: "json" | "msgpack" (默认 "json")
	Serializer SerializerType `json:"serializer" yaml:"serializer" mapstructure:"serializer"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Prefix == "" {
		c.Prefix = "idem:"
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = time.Hour
	}
	if c.MaxMemoryEntries <= 0 {
		c.MaxMemoryEntries = 1000
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.Serializer == "" {
		c.Serializer = SerializerJSON
	}
}

// validate 校验配置
func (c *Config) validate() error {
	switch c.Driver {
	case DriverMemory, DriverRedis, DriverSQLite:
	default:
		return xerrors.Wrapf(ErrConfigInvalid, "unsupported driver: %s", c.Driver)
	}
	switch c.Serializer {
	case SerializerJSON, SerializerMsgpack:
	default:
		return xerrors.Wrapf(ErrConfigInvalid, "unsupported serializer: %s", c.Serializer)
	}
	return nil
}
