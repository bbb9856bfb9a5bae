// Package connector 提供有状态资源的统一连接管理。
//
// 连接器封装底层客户端的创建、连接、健康检查与关闭，使上层组件
// （如 idem 的持久化存储）只依赖接口而不关心客户端的生命周期。
//
// 使用示例：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"})
//	if err != nil {
//		return err
//	}
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	defer conn.Close()
//	client := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Connector 定义连接器的通用生命周期
type Connector interface {
	// Connect 建立连接，阻塞直到成功或 ctx 取消
	Connect(ctx context.Context) error
	// Close 关闭连接并释放资源
	Close() error
	// HealthCheck 主动检查连接健康状态
	HealthCheck(ctx context.Context) error
	// IsHealthy 返回最近一次检查缓存的健康状态
	IsHealthy() bool
	// Name 返回连接器名称
	Name() string
}

// TypedConnector 带类型客户端的连接器
type TypedConnector[T any] interface {
	Connector
	// GetClient 返回底层客户端，未连接时返回零值
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector = TypedConnector[*redis.Client]

// SQLiteConnector SQLite 连接器，客户端为 GORM 实例
type SQLiteConnector = TypedConnector[*gorm.DB]
