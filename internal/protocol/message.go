// Package protocol defines the event envelope exchanged between Hearth
// clients and the relay, the typed payloads carried inside it, and the codecs
// used to put them on the wire.
package protocol

// Message is the envelope for every frame in both directions.
type Message struct {
	Event   string `json:"event" msgpack:"event"`
	Payload any    `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Client to server event names.
const (
	EventJoinCommunity    = "join-community"
	EventLeaveCommunity   = "leave-community"
	EventCommunityMessage = "community-message"
	EventPrivateMessage   = "private-message"
	EventVoiceMessage     = "voice-message"
	EventCallRequest      = "call-request"
	EventCallAccepted     = "call-accepted"
	EventCallRejected     = "call-rejected"
	EventCallEnded        = "call-ended"
	EventCallSignal       = "call-signal"
)

// Server to client event names. Events shared with the list above
// (community-message, private-message, voice-message, call-accepted,
// call-rejected, call-ended, call-signal) use the same name in both
// directions with a different payload shape.
const (
	EventUserID           = "user-id"
	EventCommunityMembers = "community-members"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventIncomingCall     = "incoming-call"
	EventCallFailed       = "call-failed"
)

// ReasonUserNotFound is the call-failed reason for an unknown callee.
const ReasonUserNotFound = "User not found"

// Named is implemented by every command and event type.
type Named interface {
	Name() string
}

// NewMessage wraps a command or event in an envelope. Room join/leave
// commands and the identity announcement carry a bare string payload.
func NewMessage(v Named) *Message {
	var payload any = v
	switch p := v.(type) {
	case UserAssigned:
		payload = p.UserID
	case JoinCommunity:
		payload = p.CommunityID
	case LeaveCommunity:
		payload = p.CommunityID
	}
	return &Message{Event: v.Name(), Payload: payload}
}

// Signal carries one step of WebRTC session negotiation: an SDP offer or
// answer, or a trickled ICE candidate.
type Signal struct {
	Type      string     `json:"type" msgpack:"type"`
	SDP       string     `json:"sdp,omitempty" msgpack:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
}

// Signal types.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// Candidate mirrors the browser RTCIceCandidateInit dictionary.
type Candidate struct {
	Candidate        string  `json:"candidate" msgpack:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty" msgpack:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty" msgpack:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty" msgpack:"usernameFragment,omitempty"`
}
