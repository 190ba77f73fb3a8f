package signaling

import "errors"

// None of these are fatal: sessions log them and keep reading.
var (
	ErrTargetNotFound     = errors.New("target not found")
	ErrUnknownNegotiation = errors.New("unknown negotiation")
	ErrUnknownRoom        = errors.New("unknown room")
	ErrNotAMember         = errors.New("not a member")
	ErrNotParticipant     = errors.New("not a participant of the negotiation")
	ErrInvalidTransition  = errors.New("invalid negotiation transition")
)
