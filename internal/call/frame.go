package call

import "github.com/vmihailenco/msgpack/v5"

// Frame types exchanged on the call's data channel.
const (
	FrameText   = "text"
	FrameHangup = "hangup"
)

// Frame represents every data channel message of a call
type Frame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// TextPayload is one line typed by a party
type TextPayload struct {
	Text   string `msgpack:"text"`
	SentAt int64  `msgpack:"sentAt"`
}

// HangupPayload is sent by the party ending the call
type HangupPayload struct {
	Reason string `msgpack:"reason"`
}

// Decode decodes the frame payload into the provided struct
func (f Frame) Decode(v any) error {
	return msgpack.Unmarshal(f.Payload, v)
}

// NewFrame creates a new Frame with the given type and payload
func NewFrame(t string, payload any) (Frame, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: b}, nil
}

func encodeFrame(t string, payload any) ([]byte, error) {
	f, err := NewFrame(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(f)
}

func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}
