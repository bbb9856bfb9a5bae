package idem

import (
	"context"

	"github.com/ceyewan/aegis/connector"
	"github.com/ceyewan/aegis/xerrors"

	"github.com/redis/go-redis/v9"
)

// redisStore Redis 耐久层实现（非导出）
// 连接器由调用方注入并管理生命周期，Close 不会关闭它
type redisStore struct {
	conn connector.RedisConnector
}

// newRedisStore 创建 Redis 耐久层实例（内部函数）
func newRedisStore(conn connector.RedisConnector) Store {
	return &redisStore{conn: conn}
}

func (rs *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rs.conn.GetClient().Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "idem: redis get failed")
	}
	return val, nil
}

func (rs *redisStore) Set(ctx context.Context, key string, value []byte) error {
	// TTL 语义由记录自身的 ExpiresAt 承载，过期记录由清扫协程回收，
	// 这里不设置 Redis 级别的过期
	if err := rs.conn.GetClient().Set(ctx, key, value, 0).Err(); err != nil {
		return xerrors.Wrap(err, "idem: redis set failed")
	}
	return nil
}

func (rs *redisStore) Remove(ctx context.Context, key string) error {
	if err := rs.conn.GetClient().Del(ctx, key).Err(); err != nil {
		return xerrors.Wrap(err, "idem: redis del failed")
	}
	return nil
}

func (rs *redisStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	// SCAN 游标遍历，避免 KEYS 阻塞 Redis
	var keys []string
	iter := rs.conn.GetClient().Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, xerrors.Wrap(err, "idem: redis scan failed")
	}
	return keys, nil
}

func (rs *redisStore) Close() error {
	return nil
}
