package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/hearth/internal/protocol"
)

func ring(t *testing.T, h *Hub, caller, callee *Session) NegotiationID {
	t.Helper()

	id, err := h.Calls().Request(caller.ID(), callee.ID())
	require.NoError(t, err)

	msgs := drain(callee)
	require.Len(t, msgs, 1)
	incoming := payload[protocol.IncomingCall](t, msgs[0])
	require.Equal(t, caller.ID().String(), incoming.CallerID)
	require.Equal(t, id.String(), incoming.ConnectionID)
	require.Empty(t, drain(caller))
	return id
}

func TestCallAccept(t *testing.T) {
	h := newTestHub(t)
	calls := h.Calls()
	a := open(t, h)
	b := open(t, h)

	id := ring(t, h, a, b)
	n, ok := calls.Get(id)
	require.True(t, ok)
	require.Equal(t, Requested, n.State)
	require.Equal(t, fixedNow, n.CreatedAt)

	t.Run("only the callee may answer", func(t *testing.T) {
		require.ErrorIs(t, calls.Accept(id, a.ID()), ErrNotParticipant)
		require.ErrorIs(t, calls.Reject(id, "stranger"), ErrNotParticipant)
		require.Empty(t, drain(a))
	})

	require.NoError(t, calls.Accept(id, b.ID()))
	msgs := drain(a)
	require.Len(t, msgs, 1)
	require.Equal(t, protocol.CallAccepted{ConnectionID: id.String()}, payload[protocol.CallAccepted](t, msgs[0]))
	require.Empty(t, drain(b))

	n, ok = calls.Get(id)
	require.True(t, ok)
	require.Equal(t, Accepted, n.State)

	t.Run("second accept is a no-op", func(t *testing.T) {
		require.ErrorIs(t, calls.Accept(id, b.ID()), ErrInvalidTransition)
		require.ErrorIs(t, calls.Reject(id, b.ID()), ErrInvalidTransition)
		require.Empty(t, drain(a))
	})

	t.Run("either party ends", func(t *testing.T) {
		require.NoError(t, calls.End(id, b.ID()))
		msgs := drain(a)
		require.Len(t, msgs, 1)
		require.Equal(t, protocol.EventCallEnded, msgs[0].Event)
		require.Empty(t, drain(b))

		_, ok := calls.Get(id)
		require.False(t, ok)
		require.ErrorIs(t, calls.End(id, a.ID()), ErrUnknownNegotiation)
	})
}

func TestCallReject(t *testing.T) {
	h := newTestHub(t)
	calls := h.Calls()
	a := open(t, h)
	b := open(t, h)

	id := ring(t, h, a, b)
	require.NoError(t, calls.Reject(id, b.ID()))

	msgs := drain(a)
	require.Len(t, msgs, 1)
	require.Equal(t, protocol.CallRejected{ConnectionID: id.String()}, payload[protocol.CallRejected](t, msgs[0]))

	_, ok := calls.Get(id)
	require.False(t, ok)
	require.Zero(t, calls.Len())

	require.ErrorIs(t, calls.Accept(id, b.ID()), ErrUnknownNegotiation)
	require.Empty(t, drain(a))
}

func TestCallRequestUnknownCallee(t *testing.T) {
	h := newTestHub(t)
	a := open(t, h)

	_, err := h.Calls().Request(a.ID(), "ghost")
	require.ErrorIs(t, err, ErrTargetNotFound)
	require.Zero(t, h.Calls().Len())
}

func TestCallRelay(t *testing.T) {
	h := newTestHub(t)
	calls := h.Calls()
	a := open(t, h)
	b := open(t, h)
	c := open(t, h)

	id := ring(t, h, a, b)
	offer := protocol.Signal{Type: protocol.SignalOffer, SDP: "v=0"}

	require.NoError(t, calls.Relay(id, a.ID(), offer))
	msgs := drain(b)
	require.Len(t, msgs, 1)
	got := payload[protocol.CallSignal](t, msgs[0])
	require.Equal(t, a.ID().String(), got.SenderID)
	require.Equal(t, offer, got.Signal)

	require.ErrorIs(t, calls.Relay(id, c.ID(), offer), ErrNotParticipant)
	require.ErrorIs(t, calls.Relay("stale", a.ID(), offer), ErrUnknownNegotiation)
	require.Empty(t, drain(a))
	require.Empty(t, drain(c))
}

func TestCallTimeout(t *testing.T) {
	h := newTestHub(t, func(o *Options) { o.NegotiationTimeout = 20 * time.Millisecond })
	a := open(t, h)
	b := open(t, h)

	id := ring(t, h, a, b)

	require.Eventually(t, func() bool {
		_, ok := h.Calls().Get(id)
		return !ok
	}, time.Second, 5*time.Millisecond)

	for _, s := range []*Session{a, b} {
		msgs := drain(s)
		require.Len(t, msgs, 1)
		require.Equal(t, protocol.CallEnded{ConnectionID: id.String()}, payload[protocol.CallEnded](t, msgs[0]))
	}

	t.Run("accepted calls do not expire", func(t *testing.T) {
		id := ring(t, h, a, b)
		require.NoError(t, h.Calls().Accept(id, b.ID()))
		drain(a)

		time.Sleep(60 * time.Millisecond)
		n, ok := h.Calls().Get(id)
		require.True(t, ok)
		require.Equal(t, Accepted, n.State)
		require.Empty(t, drain(a))
		require.Empty(t, drain(b))
	})
}

func TestNegotiationStateString(t *testing.T) {
	require.Equal(t, "requested", Requested.String())
	require.Equal(t, "accepted", Accepted.String())
	require.Equal(t, "rejected", Rejected.String())
	require.Equal(t, "ended", Ended.String())
	require.Equal(t, "unknown", NegotiationState(42).String())
}
