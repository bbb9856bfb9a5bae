package idem

import (
	"context"
	"errors"

	"github.com/ceyewan/aegis/connector"
	"github.com/ceyewan/aegis/xerrors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// idemRecord 耐久层记录的 GORM 模型
type idemRecord struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value []byte `gorm:"column:value"`
}

// TableName 指定表名
func (idemRecord) TableName() string {
	return "idem_records"
}

// sqliteStore 嵌入式 SQLite 耐久层实现（非导出）
// 连接器由调用方注入并管理生命周期，Close 不会关闭它
type sqliteStore struct {
	conn connector.SQLiteConnector
}

// newSQLiteStore 创建 SQLite 耐久层实例并自动建表（内部函数）
func newSQLiteStore(conn connector.SQLiteConnector) (Store, error) {
	db := conn.GetClient()
	if db == nil {
		return nil, xerrors.New("idem: sqlite connector is not connected")
	}
	if err := db.AutoMigrate(&idemRecord{}); err != nil {
		return nil, xerrors.Wrap(err, "idem: sqlite migrate failed")
	}
	return &sqliteStore{conn: conn}, nil
}

func (ss *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec idemRecord
	err := ss.conn.GetClient().WithContext(ctx).
		Where("key = ?", key).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "idem: sqlite get failed")
	}
	return rec.Value, nil
}

func (ss *sqliteStore) Set(ctx context.Context, key string, value []byte) error {
	rec := idemRecord{Key: key, Value: value}
	err := ss.conn.GetClient().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&rec).Error
	if err != nil {
		return xerrors.Wrap(err, "idem: sqlite set failed")
	}
	return nil
}

func (ss *sqliteStore) Remove(ctx context.Context, key string) error {
	err := ss.conn.GetClient().WithContext(ctx).
		Where("key = ?", key).
		Delete(&idemRecord{}).Error
	if err != nil {
		return xerrors.Wrap(err, "idem: sqlite delete failed")
	}
	return nil
}

func (ss *sqliteStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := ss.conn.GetClient().WithContext(ctx).
		Model(&idemRecord{}).
		Where("key LIKE ?", prefix+"%").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, xerrors.Wrap(err, "idem: sqlite list keys failed")
	}
	return keys, nil
}

func (ss *sqliteStore) Close() error {
	return nil
}
