// JSON编解码器，供connect在没有protobuf生成代码的情况下传输普通Go结构体
package codec

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// JSON connect的JSON编解码器
// 说明：覆盖connect内置的同名protojson编解码器，消息类型可以是任意可JSON序列化的结构体
type JSON struct{}

var _ connect.Codec = JSON{}

func (JSON) Name() string {
	return "json"
}

func (JSON) Marshal(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("json marshal %T: %w", message, err)
	}
	return data, nil
}

func (JSON) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("json unmarshal %T: %w", message, err)
	}
	return nil
}

// WithJSON 用于handler与client的connect选项
func WithJSON() connect.Option {
	return connect.WithCodec(JSON{})
}
