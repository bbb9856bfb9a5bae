package idem

import (
	"encoding/json"

	"github.com/ceyewan/aegis/xerrors"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer 记录跨耐久层边界的序列化接口
type Serializer interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, dest any) error
}

// jsonSerializer JSON 序列化器（非导出）
type jsonSerializer struct{}

func (jsonSerializer) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonSerializer) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

// msgpackSerializer MessagePack 序列化器（非导出）
// 相比 JSON 序列化速度快 2-3 倍，数据体积小 20-30%
type msgpackSerializer struct{}

func (msgpackSerializer) Marshal(value any) ([]byte, error) {
	return msgpack.Marshal(value)
}

func (msgpackSerializer) Unmarshal(data []byte, dest any) error {
	return msgpack.Unmarshal(data, dest)
}

// newSerializer 按配置创建序列化器
func newSerializer(typ SerializerType) (Serializer, error) {
	switch typ {
	case SerializerJSON, "":
		return jsonSerializer{}, nil
	case SerializerMsgpack:
		return msgpackSerializer{}, nil
	default:
		return nil, xerrors.Wrapf(ErrConfigInvalid, "unsupported serializer: %s", typ)
	}
}
