package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownCodec     = errors.New("unknown codec")
)

// Codec names, also used as WebSocket subprotocols.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Subprotocols lists the codecs in server preference order.
var Subprotocols = []string{CodecJSON, CodecMsgpack}

// Codec turns envelopes into WebSocket frames and back.
type Codec interface {
	Name() string
	// FrameType is the websocket message type frames are written with.
	FrameType() int
	Encode(msg *Message) ([]byte, error)

	split(data []byte) (event string, payload []byte, err error)
	unmarshal(data []byte, v any) error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecFor returns the codec for a negotiated subprotocol. An empty name
// means the peer did not negotiate and gets JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSON, nil
	case CodecMsgpack:
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

type jsonCodec struct{}

type jsonEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (jsonCodec) Name() string   { return CodecJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) split(data []byte) (string, []byte, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return env.Event, env.Payload, nil
}

func (jsonCodec) unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type msgpackCodec struct{}

type msgpackEnvelope struct {
	Event   string             `msgpack:"event"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

func (msgpackCodec) Name() string   { return CodecMsgpack }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(msg *Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (msgpackCodec) split(data []byte) (string, []byte, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return env.Event, env.Payload, nil
}

func (msgpackCodec) unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func decodePayload(c Codec, event string, payload []byte, v any) error {
	if len(payload) == 0 {
		return malformed(event, "missing payload")
	}
	if err := c.unmarshal(payload, v); err != nil {
		return malformed(event, err.Error())
	}
	return nil
}

func malformed(event, detail string) error {
	return fmt.Errorf("%s: %w: %s", event, ErrMalformedPayload, detail)
}

func unknown(event string) error {
	return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
}
