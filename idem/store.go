package idem

import "context"

// Store 耐久层存储接口
//
// 一个满足该契约的字节级键值存储即可作为耐久层：
// 内嵌数据库、文件存储、Redis 等均可。键的命名空间由调用方
// 通过前缀管理，Store 实现只做透明的字节存取。
//
// 默认提供 memory / redis / sqlite 实现，
// 自定义实现通过 WithStore 注入。
type Store interface {
	// Get 读取指定键的值，键不存在时返回 ErrRecordNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入指定键的值，已存在时覆盖
	Set(ctx context.Context, key string, value []byte) error

	// Remove 删除指定键，键不存在时不报错
	Remove(ctx context.Context, key string) error

	// ListKeys 列出指定前缀下的全部键，供后台清扫使用
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Close 释放 Store 自身持有的资源
	// 注入的连接器由调用方管理生命周期，实现不应关闭它们
	Close() error
}
