package signaling

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// Session binds one connection to its identity. It turns inbound commands
// into directory, negotiation and router operations, and unwinds everything
// the identity took part in when the connection goes away.
type Session struct {
	hub    *Hub
	peer   *Peer
	logger *slog.Logger

	closeOnce sync.Once
}

// ID returns the session's identity.
func (s *Session) ID() Identity { return s.peer.ID() }

// Outbox is the stream of messages to write to the connection.
func (s *Session) Outbox() <-chan *protocol.Message { return s.peer.Outbox() }

// Handle applies one inbound command. It never fails: unknown targets,
// stale negotiations and non-member leaves are logged and ignored.
func (s *Session) Handle(cmd protocol.Command) {
	h := s.hub
	me := s.ID()

	switch c := cmd.(type) {
	case protocol.JoinCommunity:
		h.rooms.Join(c.CommunityID, me)

	case protocol.LeaveCommunity:
		if err := h.rooms.Leave(c.CommunityID, me); err != nil {
			s.logger.Debug("leave had no effect", "community", c.CommunityID, "error", err)
		}

	case protocol.SendCommunityMessage:
		h.rooms.BroadcastMessage(c.CommunityID, me, c.Message)

	case protocol.SendPrivateMessage:
		// No receipt either way: an unknown recipient is a silent drop.
		h.router.SendTo(Identity(c.RecipientID), protocol.PrivateMessage{
			SenderID:  me.String(),
			Message:   c.Message,
			Timestamp: h.timestamp(),
		})

	case protocol.SendVoiceMessage:
		h.router.SendTo(Identity(c.RecipientID), protocol.VoiceMessage{
			SenderID:  me.String(),
			AudioBlob: c.AudioBlob,
			Timestamp: h.timestamp(),
		})

	case protocol.RequestCall:
		if _, err := h.calls.Request(me, Identity(c.RecipientID)); err != nil {
			s.logger.Info("call request failed", "recipient", c.RecipientID, "error", err)
			if errors.Is(err, ErrTargetNotFound) {
				h.router.SendTo(me, protocol.CallFailed{
					RecipientID: c.RecipientID,
					Reason:      protocol.ReasonUserNotFound,
				})
			}
		}

	case protocol.AcceptCall:
		s.ignore("accept", c.ConnectionID, h.calls.Accept(NegotiationID(c.ConnectionID), me))

	case protocol.RejectCall:
		s.ignore("reject", c.ConnectionID, h.calls.Reject(NegotiationID(c.ConnectionID), me))

	case protocol.EndCall:
		s.ignore("end", c.ConnectionID, h.calls.End(NegotiationID(c.ConnectionID), me))

	case protocol.SendCallSignal:
		s.ignore("signal", c.ConnectionID, h.calls.Relay(NegotiationID(c.ConnectionID), me, c.Signal))

	default:
		s.logger.Warn("unhandled command", "event", cmd.Name())
	}
}

func (s *Session) ignore(op, negotiation string, err error) {
	if err != nil {
		s.logger.Debug("call "+op+" ignored", "negotiation", negotiation, "error", err)
	}
}

// Close tears the session down: the peer stops accepting deliveries, the
// identity leaves every room and ends every negotiation it is party to, and
// the identity is unregistered. Only the first call does anything.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		h := s.hub
		me := s.ID()

		// Closing first makes concurrent call requests against this
		// identity fail instead of creating negotiations nobody will end.
		s.peer.Close()

		rooms := h.rooms.LeaveAll(me)

		negotiations := h.calls.NegotiationsInvolving(me)
		for _, id := range negotiations {
			s.ignore("end", id.String(), h.calls.End(id, me))
		}

		h.peers.Unregister(me)
		h.forget(s)

		s.logger.Info("session closed", "rooms", len(rooms), "negotiations", len(negotiations))
	})
}
