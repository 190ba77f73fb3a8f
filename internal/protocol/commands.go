package protocol

// Command is a client to server event. The set of implementations is closed;
// the relay dispatches on it with an exhaustive type switch.
type Command interface {
	Named
	isCommand()
}

type JoinCommunity struct {
	CommunityID string
}

type LeaveCommunity struct {
	CommunityID string
}

type SendCommunityMessage struct {
	CommunityID string `json:"communityId" msgpack:"communityId"`
	Message     string `json:"message" msgpack:"message"`
}

type SendPrivateMessage struct {
	RecipientID string `json:"recipientId" msgpack:"recipientId"`
	Message     string `json:"message" msgpack:"message"`
}

type SendVoiceMessage struct {
	RecipientID string `json:"recipientId" msgpack:"recipientId"`
	AudioBlob   []byte `json:"audioBlob" msgpack:"audioBlob"`
}

type RequestCall struct {
	RecipientID string `json:"recipientId" msgpack:"recipientId"`
}

type AcceptCall struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
}

type RejectCall struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
}

type EndCall struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
}

type SendCallSignal struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
	Signal       Signal `json:"signal" msgpack:"signal"`
}

func (JoinCommunity) Name() string        { return EventJoinCommunity }
func (LeaveCommunity) Name() string       { return EventLeaveCommunity }
func (SendCommunityMessage) Name() string { return EventCommunityMessage }
func (SendPrivateMessage) Name() string   { return EventPrivateMessage }
func (SendVoiceMessage) Name() string     { return EventVoiceMessage }
func (RequestCall) Name() string          { return EventCallRequest }
func (AcceptCall) Name() string           { return EventCallAccepted }
func (RejectCall) Name() string           { return EventCallRejected }
func (EndCall) Name() string              { return EventCallEnded }
func (SendCallSignal) Name() string       { return EventCallSignal }

func (JoinCommunity) isCommand()        {}
func (LeaveCommunity) isCommand()       {}
func (SendCommunityMessage) isCommand() {}
func (SendPrivateMessage) isCommand()   {}
func (SendVoiceMessage) isCommand()     {}
func (RequestCall) isCommand()          {}
func (AcceptCall) isCommand()           {}
func (RejectCall) isCommand()           {}
func (EndCall) isCommand()              {}
func (SendCallSignal) isCommand()       {}

// DecodeCommand parses a client frame into its typed command.
func DecodeCommand(c Codec, data []byte) (Command, error) {
	event, payload, err := c.split(data)
	if err != nil {
		return nil, err
	}

	switch event {
	case EventJoinCommunity:
		var room string
		if err := decodePayload(c, event, payload, &room); err != nil {
			return nil, err
		}
		if room == "" {
			return nil, malformed(event, "empty community id")
		}
		return JoinCommunity{CommunityID: room}, nil

	case EventLeaveCommunity:
		var room string
		if err := decodePayload(c, event, payload, &room); err != nil {
			return nil, err
		}
		if room == "" {
			return nil, malformed(event, "empty community id")
		}
		return LeaveCommunity{CommunityID: room}, nil

	case EventCommunityMessage:
		var cmd SendCommunityMessage
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		if cmd.CommunityID == "" {
			return nil, malformed(event, "empty community id")
		}
		return cmd, nil

	case EventPrivateMessage:
		var cmd SendPrivateMessage
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil

	case EventVoiceMessage:
		var cmd SendVoiceMessage
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil

	case EventCallRequest:
		var cmd RequestCall
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil

	case EventCallAccepted:
		var cmd AcceptCall
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil

	case EventCallRejected:
		var cmd RejectCall
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil

	case EventCallEnded:
		var cmd EndCall
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil

	case EventCallSignal:
		var cmd SendCallSignal
		if err := decodePayload(c, event, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil

	default:
		return nil, unknown(event)
	}
}
