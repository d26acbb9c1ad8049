// Package codec holds the serialization collaborators used for request
// bodies and response payloads. The dispatch core depends only on the
// Codec interface, so the wire format is swappable per engine.
package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrMarshal wraps serialization failures.
	ErrMarshal = errors.New("marshal failed")

	// ErrUnmarshal wraps deserialization failures.
	ErrUnmarshal = errors.New("unmarshal failed")
)

// Codec serializes response bodies and deserializes request bodies.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ForName resolves a codec from its configuration name. An empty name
// selects JSON.
func ForName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack", "messagepack":
		return MsgPack{}, nil
	default:
		return nil, fmt.Errorf("unknown serialization format: %q", name)
	}
}
