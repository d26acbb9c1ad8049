package codec

import (
	"encoding/json"
	"fmt"
)

// JSON is the default codec. Decoding is lenient: unknown fields in the
// input are ignored rather than rejected.
type JSON struct{}

func (JSON) ContentType() string {
	return "application/json"
}

func (JSON) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshal, err)
	}
	return data, nil
}

func (JSON) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnmarshal, err)
	}
	return nil
}
