package idem

import "time"

// Record 幂等记录
// 由缓存独占持有，调用方不得修改返回的记录内容。
// 记录在首次成功执行时创建，窗口内的后续调用只会重读，不会重建。
type Record struct {
	// Key 幂等键（调用方提供，非空）
	Key string `json:"key" msgpack:"key"`

	// Value 被缓存的成功结果
	// 经过耐久层序列化往返后，具体类型可能退化为 map/slice 等通用形态
	Value any `json:"value" msgpack:"value"`

	// CreatedAt 创建时间
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`

	// ExpiresAt 过期时间，恒晚于 CreatedAt
	ExpiresAt time.Time `json:"expires_at" msgpack:"expires_at"`
}

// expired 判断记录在 now 时刻是否已过期
func (r *Record) expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
