package signaling

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/hearth/internal/protocol"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHub(t *testing.T, mutate ...func(*Options)) *Hub {
	t.Helper()

	opts := Options{
		Clock:  func() time.Time { return fixedNow },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewHub(opts)
}

// open starts a session and consumes its user-id announcement.
func open(t *testing.T, h *Hub) *Session {
	t.Helper()

	s := h.Open()
	msgs := drain(s)
	require.Len(t, msgs, 1)
	require.Equal(t, protocol.EventUserID, msgs[0].Event)
	require.Equal(t, s.ID().String(), msgs[0].Payload)
	return s
}

// drain returns everything currently queued for s without blocking.
func drain(s *Session) []*protocol.Message {
	var out []*protocol.Message
	for {
		select {
		case msg, ok := <-s.Outbox():
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func only(msgs []*protocol.Message, event string) []*protocol.Message {
	var out []*protocol.Message
	for _, m := range msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func payload[T any](t *testing.T, msg *protocol.Message) T {
	t.Helper()

	v, ok := msg.Payload.(T)
	require.Truef(t, ok, "payload of %s is %T", msg.Event, msg.Payload)
	return v
}

func ids(sessions ...*Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID().String()
	}
	return out
}
