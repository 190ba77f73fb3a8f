// Package call runs the peer-to-peer side of an accepted call: a WebRTC data
// channel whose offer, answer and ICE candidates travel through the relay as
// call-signal events.
package call

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/hearth/internal/protocol"
)

const channelLabel = "hearth"

var (
	ErrUnexpectedSignal = errors.New("unexpected signal")
	ErrNotOpen          = errors.New("data channel not open")
	ErrClosed           = errors.New("call closed")
)

// Role is the side of the call a Session plays. The caller makes the offer.
type Role int

const (
	Caller Role = iota
	Callee
)

// Options configures a Session.
type Options struct {
	Role        Role
	Negotiation string
	ICEServers  []pion.ICEServer
	SendCommand func(protocol.Command) error
	Logger      *slog.Logger

	// ForceRelay limits ICE to TURN relay candidates.
	ForceRelay bool

	// API overrides the pion API, e.g. to tune its SettingEngine.
	API *pion.API
}

// Session is one party's end of a call's data channel.
type Session struct {
	opts   Options
	pc     *pion.PeerConnection
	logger *slog.Logger

	frames chan Frame
	opened chan struct{}
	closed chan struct{}

	openOnce  sync.Once
	closeOnce sync.Once

	mu      sync.Mutex
	dc      *pion.DataChannel
	remote  bool
	pending []pion.ICECandidateInit
}

// Start creates the peer connection. The caller side immediately creates the
// data channel and sends its offer through the relay.
func Start(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pc, err := newPeerConnection(opts.API, opts.ICEServers, opts.ForceRelay)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	s := &Session{
		opts:   opts,
		pc:     pc,
		logger: opts.Logger.With("negotiation", opts.Negotiation),
		frames: make(chan Frame, 32),
		opened: make(chan struct{}),
		closed: make(chan struct{}),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		s.signal(protocol.Signal{Type: protocol.SignalCandidate, Candidate: fromICECandidateInit(c.ToJSON())})
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		s.logger.Debug("peer connection state", "state", state.String())
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			s.shutdown()
		}
	})

	if opts.Role == Callee {
		pc.OnDataChannel(func(dc *pion.DataChannel) {
			if dc.Label() == channelLabel {
				s.bind(dc)
			}
		})
		return s, nil
	}

	dc, err := createDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	s.bind(dc)

	offer, err := createOffer(pc)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}
	s.signal(protocol.Signal{Type: protocol.SignalOffer, SDP: offer.SDP})

	return s, nil
}

func (s *Session) bind(dc *pion.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.logger.Debug("data channel open")
		s.openOnce.Do(func() { close(s.opened) })
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		f, err := decodeFrame(msg.Data)
		if err != nil {
			s.logger.Warn("ignoring data channel frame", "error", err)
			return
		}
		select {
		case s.frames <- f:
		case <-s.closed:
		}
		if f.Type == FrameHangup {
			s.shutdown()
		}
	})

	dc.OnClose(s.shutdown)
}

func (s *Session) signal(sig protocol.Signal) {
	err := s.opts.SendCommand(protocol.SendCallSignal{ConnectionID: s.opts.Negotiation, Signal: sig})
	if err != nil {
		s.logger.Warn("relaying call signal", "type", sig.Type, "error", err)
	}
}

// HandleSignal applies a negotiation step relayed from the other party.
func (s *Session) HandleSignal(sig protocol.Signal) error {
	switch sig.Type {
	case protocol.SignalOffer:
		if s.opts.Role != Callee {
			return fmt.Errorf("%w: offer on the calling side", ErrUnexpectedSignal)
		}
		answer, err := createAnswer(s.pc, pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sig.SDP})
		if err != nil {
			return fmt.Errorf("answer offer: %w", err)
		}
		if err := s.remoteReady(); err != nil {
			return err
		}
		s.signal(protocol.Signal{Type: protocol.SignalAnswer, SDP: answer.SDP})
		return nil

	case protocol.SignalAnswer:
		if s.opts.Role != Caller {
			return fmt.Errorf("%w: answer on the answering side", ErrUnexpectedSignal)
		}
		if err := s.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sig.SDP}); err != nil {
			return fmt.Errorf("set remote description: %w", err)
		}
		return s.remoteReady()

	case protocol.SignalCandidate:
		if sig.Candidate == nil {
			return nil
		}
		ice := toICECandidateInit(sig.Candidate)

		s.mu.Lock()
		if !s.remote {
			// Candidates can overtake the description they belong to.
			s.pending = append(s.pending, ice)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		if err := s.pc.AddICECandidate(ice); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedSignal, sig.Type)
	}
}

// remoteReady flushes candidates queued before the remote description.
func (s *Session) remoteReady() error {
	s.mu.Lock()
	s.remote = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ice := range pending {
		if err := s.pc.AddICECandidate(ice); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

// Opened is closed once the data channel is usable.
func (s *Session) Opened() <-chan struct{} { return s.opened }

// Closed is closed when the call ends for any reason.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// Frames is the stream of frames from the other party.
func (s *Session) Frames() <-chan Frame { return s.frames }

// WaitOpen blocks until the data channel opens, the call ends or timeout
// passes.
func (s *Session) WaitOpen(timeout time.Duration) error {
	select {
	case <-s.opened:
		return nil
	case <-s.closed:
		return ErrClosed
	case <-time.After(timeout):
		return fmt.Errorf("%w: still connecting after %s", ErrNotOpen, timeout)
	}
}

// SendText sends one line to the other party.
func (s *Session) SendText(text string) error {
	return s.send(FrameText, TextPayload{Text: text, SentAt: time.Now().UnixMilli()})
}

func (s *Session) send(t string, payload any) error {
	select {
	case <-s.opened:
	default:
		return ErrNotOpen
	}

	data, err := encodeFrame(t, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	return dc.Send(data)
}

// Hangup tells the other party the call is over and closes the session.
func (s *Session) Hangup(reason string) error {
	err := s.send(FrameHangup, HangupPayload{Reason: reason})
	if errors.Is(err, ErrNotOpen) {
		err = nil
	}
	if err == nil {
		s.drain(time.Second)
	}
	return errors.Join(err, s.Close())
}

// drain waits for queued data channel messages to leave, up to timeout.
func (s *Session) drain(timeout time.Duration) {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	if dc == nil {
		return
	}

	deadline := time.Now().Add(timeout)
	for dc.BufferedAmount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

// Close tears the peer connection down.
func (s *Session) Close() error {
	s.shutdown()
	return s.pc.Close()
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}
