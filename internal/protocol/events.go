package protocol

// Event is a server to client event.
type Event interface {
	Named
	isEvent()
}

// UserAssigned announces the identity given to a fresh connection.
type UserAssigned struct {
	UserID string
}

type CommunityMembers struct {
	CommunityID string   `json:"communityId" msgpack:"communityId"`
	Members     []string `json:"members" msgpack:"members"`
}

type UserJoined struct {
	UserID      string `json:"userId" msgpack:"userId"`
	CommunityID string `json:"communityId" msgpack:"communityId"`
}

type UserLeft struct {
	UserID      string `json:"userId" msgpack:"userId"`
	CommunityID string `json:"communityId" msgpack:"communityId"`
}

// CommunityMessage is a room chat line; Timestamp is unix milliseconds
// stamped by the relay.
type CommunityMessage struct {
	UserID      string `json:"userId" msgpack:"userId"`
	CommunityID string `json:"communityId" msgpack:"communityId"`
	Message     string `json:"message" msgpack:"message"`
	Timestamp   int64  `json:"timestamp" msgpack:"timestamp"`
}

type PrivateMessage struct {
	SenderID  string `json:"senderId" msgpack:"senderId"`
	Message   string `json:"message" msgpack:"message"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
}

type VoiceMessage struct {
	SenderID  string `json:"senderId" msgpack:"senderId"`
	AudioBlob []byte `json:"audioBlob" msgpack:"audioBlob"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
}

type IncomingCall struct {
	CallerID     string `json:"callerId" msgpack:"callerId"`
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
}

type CallAccepted struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
}

type CallRejected struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
}

type CallEnded struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
}

type CallFailed struct {
	RecipientID string `json:"recipientId" msgpack:"recipientId"`
	Reason      string `json:"reason" msgpack:"reason"`
}

// CallSignal is a relayed negotiation step, tagged with the party that sent it.
type CallSignal struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
	SenderID     string `json:"senderId" msgpack:"senderId"`
	Signal       Signal `json:"signal" msgpack:"signal"`
}

func (UserAssigned) Name() string     { return EventUserID }
func (CommunityMembers) Name() string { return EventCommunityMembers }
func (UserJoined) Name() string       { return EventUserJoined }
func (UserLeft) Name() string         { return EventUserLeft }
func (CommunityMessage) Name() string { return EventCommunityMessage }
func (PrivateMessage) Name() string   { return EventPrivateMessage }
func (VoiceMessage) Name() string     { return EventVoiceMessage }
func (IncomingCall) Name() string     { return EventIncomingCall }
func (CallAccepted) Name() string     { return EventCallAccepted }
func (CallRejected) Name() string     { return EventCallRejected }
func (CallEnded) Name() string        { return EventCallEnded }
func (CallFailed) Name() string       { return EventCallFailed }
func (CallSignal) Name() string       { return EventCallSignal }

func (UserAssigned) isEvent()     {}
func (CommunityMembers) isEvent() {}
func (UserJoined) isEvent()       {}
func (UserLeft) isEvent()         {}
func (CommunityMessage) isEvent() {}
func (PrivateMessage) isEvent()   {}
func (VoiceMessage) isEvent()     {}
func (IncomingCall) isEvent()     {}
func (CallAccepted) isEvent()     {}
func (CallRejected) isEvent()     {}
func (CallEnded) isEvent()        {}
func (CallFailed) isEvent()       {}
func (CallSignal) isEvent()       {}

// DecodeEvent parses a relay frame into its typed event.
func DecodeEvent(c Codec, data []byte) (Event, error) {
	event, payload, err := c.split(data)
	if err != nil {
		return nil, err
	}

	var ev Event
	switch event {
	case EventUserID:
		var id string
		if err := decodePayload(c, event, payload, &id); err != nil {
			return nil, err
		}
		return UserAssigned{UserID: id}, nil
	case EventCommunityMembers:
		ev = decodeInto[CommunityMembers](c, event, payload, &err)
	case EventUserJoined:
		ev = decodeInto[UserJoined](c, event, payload, &err)
	case EventUserLeft:
		ev = decodeInto[UserLeft](c, event, payload, &err)
	case EventCommunityMessage:
		ev = decodeInto[CommunityMessage](c, event, payload, &err)
	case EventPrivateMessage:
		ev = decodeInto[PrivateMessage](c, event, payload, &err)
	case EventVoiceMessage:
		ev = decodeInto[VoiceMessage](c, event, payload, &err)
	case EventIncomingCall:
		ev = decodeInto[IncomingCall](c, event, payload, &err)
	case EventCallAccepted:
		ev = decodeInto[CallAccepted](c, event, payload, &err)
	case EventCallRejected:
		ev = decodeInto[CallRejected](c, event, payload, &err)
	case EventCallEnded:
		ev = decodeInto[CallEnded](c, event, payload, &err)
	case EventCallFailed:
		ev = decodeInto[CallFailed](c, event, payload, &err)
	case EventCallSignal:
		ev = decodeInto[CallSignal](c, event, payload, &err)
	default:
		return nil, unknown(event)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeInto[T Event](c Codec, event string, payload []byte, errp *error) Event {
	var v T
	if err := decodePayload(c, event, payload, &v); err != nil {
		*errp = err
		return nil
	}
	return v
}
