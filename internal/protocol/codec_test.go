package protocol

import (
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecodeCommandJSON(t *testing.T) {
	t.Run("join carries a bare community name", func(t *testing.T) {
		cmd, err := DecodeCommand(JSON, []byte(`{"event":"join-community","payload":"support"}`))
		require.NoError(t, err)
		require.Equal(t, JoinCommunity{CommunityID: "support"}, cmd)
	})

	t.Run("community message", func(t *testing.T) {
		cmd, err := DecodeCommand(JSON, []byte(`{"event":"community-message","payload":{"communityId":"support","message":"hi"}}`))
		require.NoError(t, err)
		require.Equal(t, SendCommunityMessage{CommunityID: "support", Message: "hi"}, cmd)
	})

	t.Run("call signal with candidate", func(t *testing.T) {
		raw := `{"event":"call-signal","payload":{"connectionId":"n1","signal":{"type":"candidate","candidate":{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host","sdpMid":"0","sdpMLineIndex":0}}}}`
		cmd, err := DecodeCommand(JSON, []byte(raw))
		require.NoError(t, err)

		sig, ok := cmd.(SendCallSignal)
		require.True(t, ok)
		require.Equal(t, "n1", sig.ConnectionID)
		require.Equal(t, SignalCandidate, sig.Signal.Type)
		require.NotNil(t, sig.Signal.Candidate)
		require.Equal(t, "0", *sig.Signal.Candidate.SDPMid)
		require.Equal(t, uint16(0), *sig.Signal.Candidate.SDPMLineIndex)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := DecodeCommand(JSON, []byte(`{"event":"sdp-offer","payload":{}}`))
		require.ErrorIs(t, err, ErrUnknownEvent)
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := DecodeCommand(JSON, []byte(`{"event":"call-request"}`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("empty community", func(t *testing.T) {
		_, err := DecodeCommand(JSON, []byte(`{"event":"leave-community","payload":""}`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeCommand(JSON, []byte(`hello`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("wrong payload shape", func(t *testing.T) {
		_, err := DecodeCommand(JSON, []byte(`{"event":"private-message","payload":"bob"}`))
		require.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestEncodeUsesWireFieldNames(t *testing.T) {
	data, err := JSON.Encode(NewMessage(CommunityMembers{CommunityID: "support", Members: []string{"a", "b"}}))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"community-members","payload":{"communityId":"support","members":["a","b"]}}`, string(data))

	data, err = JSON.Encode(NewMessage(UserAssigned{UserID: "abc"}))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"user-id","payload":"abc"}`, string(data))

	data, err = JSON.Encode(NewMessage(CallFailed{RecipientID: "ghost", Reason: ReasonUserNotFound}))
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"call-failed","payload":{"recipientId":"ghost","reason":"User not found"}}`, string(data))
}

func TestMsgpackCarriesVoiceAsBinary(t *testing.T) {
	blob := []byte{0x00, 0xff, 0x10, 0x80}

	data, err := Msgpack.Encode(NewMessage(SendVoiceMessage{RecipientID: "bob", AudioBlob: blob}))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &generic))
	payload := generic["payload"].(map[string]any)
	require.Equal(t, blob, payload["audioBlob"])

	cmd, err := DecodeCommand(Msgpack, data)
	require.NoError(t, err)
	require.Equal(t, SendVoiceMessage{RecipientID: "bob", AudioBlob: blob}, cmd)
}

func TestDecodeEvent(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		t.Run(c.Name(), func(t *testing.T) {
			events := []Event{
				UserAssigned{UserID: "me"},
				CommunityMembers{CommunityID: "r", Members: []string{"me"}},
				UserLeft{UserID: "x", CommunityID: "r"},
				CommunityMessage{UserID: "me", CommunityID: "r", Message: "hi", Timestamp: 1700000000000},
				VoiceMessage{SenderID: "x", AudioBlob: []byte("ogg"), Timestamp: 1},
				IncomingCall{CallerID: "x", ConnectionID: "n"},
				CallEnded{ConnectionID: "n"},
			}
			for _, ev := range events {
				data, err := c.Encode(NewMessage(ev))
				require.NoError(t, err)

				got, err := DecodeEvent(c, data)
				require.NoError(t, err)
				require.Equal(t, ev, got)
			}
		})
	}
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("")
	require.NoError(t, err)
	require.Equal(t, JSON, c)
	require.Equal(t, websocket.TextMessage, c.FrameType())

	c, err = CodecFor(CodecMsgpack)
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, c.FrameType())

	_, err = CodecFor("xml")
	require.ErrorIs(t, err, ErrUnknownCodec)
}

func TestVoiceBlobIsBase64InJSON(t *testing.T) {
	data, err := JSON.Encode(NewMessage(VoiceMessage{SenderID: "a", AudioBlob: []byte("hello"), Timestamp: 5}))
	require.NoError(t, err)

	var env struct {
		Payload struct {
			AudioBlob string `json:"audioBlob"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	require.Equal(t, "aGVsbG8=", env.Payload.AudioBlob)
}
