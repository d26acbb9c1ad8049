package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack serializes with MessagePack for deployments that prefer a
// compact binary wire format over JSON.
type MsgPack struct{}

func (MsgPack) ContentType() string {
	return "application/msgpack"
}

func (MsgPack) Marshal(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshal, err)
	}
	return data, nil
}

func (MsgPack) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnmarshal, err)
	}
	return nil
}
