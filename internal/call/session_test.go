package call

import (
	"io"
	"log/slog"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/hearth/internal/config"
	"github.com/BioHazard786/hearth/internal/protocol"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func loopbackAPI() *pion.API {
	se := pion.SettingEngine{}
	se.SetIncludeLoopbackCandidate(true)
	se.SetNetworkTypes([]pion.NetworkType{pion.NetworkTypeUDP4})
	return pion.NewAPI(pion.WithSettingEngine(se))
}

// wire connects two sessions the way the relay would, forwarding every
// call-signal command to the other party.
func wire(t *testing.T) (caller, callee *Session) {
	t.Helper()

	toCallee := make(chan protocol.Signal, 64)
	toCaller := make(chan protocol.Signal, 64)
	forward := func(ch chan<- protocol.Signal) func(protocol.Command) error {
		return func(cmd protocol.Command) error {
			sig, ok := cmd.(protocol.SendCallSignal)
			if !ok || sig.ConnectionID != "n-1" {
				t.Errorf("unexpected command %#v", cmd)
				return nil
			}
			select {
			case ch <- sig.Signal:
			default:
			}
			return nil
		}
	}

	api := loopbackAPI()
	var err error
	callee, err = Start(Options{Role: Callee, Negotiation: "n-1", SendCommand: forward(toCaller), Logger: quiet, API: api})
	require.NoError(t, err)
	caller, err = Start(Options{Role: Caller, Negotiation: "n-1", SendCommand: forward(toCallee), Logger: quiet, API: api})
	require.NoError(t, err)

	pump := func(s *Session, ch <-chan protocol.Signal) {
		for {
			select {
			case sig := <-ch:
				// A failed step surfaces as a channel that never opens.
				_ = s.HandleSignal(sig)
			case <-s.Closed():
				return
			}
		}
	}
	go pump(callee, toCallee)
	go pump(caller, toCaller)

	t.Cleanup(func() {
		caller.Close()
		callee.Close()
	})
	return caller, callee
}

func nextFrame(t *testing.T, s *Session) Frame {
	t.Helper()
	select {
	case f := <-s.Frames():
		return f
	case <-time.After(10 * time.Second):
		t.Fatal("no frame")
		return Frame{}
	}
}

func TestSessionExchangesText(t *testing.T) {
	caller, callee := wire(t)

	require.NoError(t, caller.WaitOpen(10*time.Second))
	require.NoError(t, callee.WaitOpen(10*time.Second))

	require.NoError(t, caller.SendText("ping"))
	f := nextFrame(t, callee)
	require.Equal(t, FrameText, f.Type)
	var text TextPayload
	require.NoError(t, f.Decode(&text))
	require.Equal(t, "ping", text.Text)
	require.NotZero(t, text.SentAt)

	require.NoError(t, callee.SendText("pong"))
	require.NoError(t, nextFrame(t, caller).Decode(&text))
	require.Equal(t, "pong", text.Text)
}

func TestSessionHangup(t *testing.T) {
	caller, callee := wire(t)
	require.NoError(t, caller.WaitOpen(10*time.Second))
	require.NoError(t, callee.WaitOpen(10*time.Second))

	require.NoError(t, callee.Hangup("bye"))

	f := nextFrame(t, caller)
	require.Equal(t, FrameHangup, f.Type)
	var hangup HangupPayload
	require.NoError(t, f.Decode(&hangup))
	require.Equal(t, "bye", hangup.Reason)

	select {
	case <-caller.Closed():
	case <-time.After(10 * time.Second):
		t.Fatal("caller still open after hangup")
	}
	require.ErrorIs(t, callee.WaitOpen(time.Millisecond), ErrClosed)
}

func TestSessionRejectsWrongSignals(t *testing.T) {
	sent := func(protocol.Command) error { return nil }

	caller, err := Start(Options{Role: Caller, Negotiation: "n", SendCommand: sent, Logger: quiet, API: loopbackAPI()})
	require.NoError(t, err)
	defer caller.Close()
	callee, err := Start(Options{Role: Callee, Negotiation: "n", SendCommand: sent, Logger: quiet, API: loopbackAPI()})
	require.NoError(t, err)
	defer callee.Close()

	require.ErrorIs(t, caller.HandleSignal(protocol.Signal{Type: protocol.SignalOffer, SDP: "x"}), ErrUnexpectedSignal)
	require.ErrorIs(t, callee.HandleSignal(protocol.Signal{Type: protocol.SignalAnswer, SDP: "x"}), ErrUnexpectedSignal)
	require.ErrorIs(t, callee.HandleSignal(protocol.Signal{Type: "bogus"}), ErrUnexpectedSignal)
	require.NoError(t, callee.HandleSignal(protocol.Signal{Type: protocol.SignalCandidate}))

	// Before the remote description arrives candidates are held back.
	require.NoError(t, callee.HandleSignal(protocol.Signal{
		Type:      protocol.SignalCandidate,
		Candidate: &protocol.Candidate{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 50000 typ host"},
	}))
	callee.mu.Lock()
	require.Len(t, callee.pending, 1)
	callee.mu.Unlock()

	require.ErrorIs(t, callee.SendText("too early"), ErrNotOpen)
	require.ErrorIs(t, callee.WaitOpen(time.Millisecond), ErrNotOpen)
}

func TestFrameRoundTrip(t *testing.T) {
	data, err := encodeFrame(FrameText, TextPayload{Text: "hi", SentAt: 42})
	require.NoError(t, err)

	f, err := decodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, FrameText, f.Type)

	var p TextPayload
	require.NoError(t, f.Decode(&p))
	require.Equal(t, TextPayload{Text: "hi", SentAt: 42}, p)

	_, err = decodeFrame([]byte{0xc1})
	require.Error(t, err)
}

func TestICEServers(t *testing.T) {
	cfg := &config.Config{STUNServer: "stun:stun.example.org:3478", TURNServer: "turn.example.org", TURNUser: "u", TURNPass: "p"}
	servers := ICEServers(cfg)
	require.Len(t, servers, 2)
	require.Equal(t, []string{"stun:stun.example.org:3478"}, servers[0].URLs)
	require.Equal(t, "u", servers[1].Username)
	require.Equal(t, "p", servers[1].Credential)

	require.Len(t, ICEServers(&config.Config{}), 0)
}
