package signaling

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// NegotiationID identifies one call handshake. On the wire it is the
// connectionId field.
type NegotiationID string

func (id NegotiationID) String() string { return string(id) }

// NegotiationState is the lifecycle position of a call handshake.
type NegotiationState int

const (
	Requested NegotiationState = iota
	Accepted
	Rejected
	Ended
)

func (s NegotiationState) String() string {
	switch s {
	case Requested:
		return "requested"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Negotiation is a snapshot of one call handshake.
type Negotiation struct {
	ID        NegotiationID
	Caller    Identity
	Callee    Identity
	State     NegotiationState
	CreatedAt time.Time
}

// other returns the party opposite to id, and false when id is not a party.
func (n *Negotiation) other(id Identity) (Identity, bool) {
	switch id {
	case n.Caller:
		return n.Callee, true
	case n.Callee:
		return n.Caller, true
	default:
		return "", false
	}
}

type negotiationEntry struct {
	Negotiation
	timer *time.Timer
}

// Calls is the call negotiation table. Rejected and ended negotiations are
// deleted, not archived.
type Calls struct {
	mu    sync.Mutex
	byID  map[NegotiationID]*negotiationEntry
	peers *Registry

	router  *Router
	timeout time.Duration
	clock   func() time.Time
	logger  *slog.Logger
}

func newCalls(peers *Registry, router *Router, timeout time.Duration, clock func() time.Time, logger *slog.Logger) *Calls {
	return &Calls{
		byID:    make(map[NegotiationID]*negotiationEntry),
		peers:   peers,
		router:  router,
		timeout: timeout,
		clock:   clock,
		logger:  logger,
	}
}

// Request opens a negotiation from caller to callee and rings the callee.
func (c *Calls) Request(caller, callee Identity) (NegotiationID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.peers.Lookup(callee); !ok {
		return "", ErrTargetNotFound
	}

	var id NegotiationID
	for {
		id = NegotiationID(uuid.NewString())
		if _, taken := c.byID[id]; !taken {
			break
		}
	}

	entry := &negotiationEntry{Negotiation: Negotiation{
		ID:        id,
		Caller:    caller,
		Callee:    callee,
		State:     Requested,
		CreatedAt: c.clock(),
	}}
	if c.timeout > 0 {
		entry.timer = time.AfterFunc(c.timeout, func() { c.expire(id) })
	}
	c.byID[id] = entry

	c.router.SendTo(callee, protocol.IncomingCall{CallerID: caller.String(), ConnectionID: id.String()})
	c.logger.Info("call requested", "negotiation", id, "caller", caller, "callee", callee)
	return id, nil
}

// Accept moves a requested negotiation to Accepted on behalf of its callee
// and tells the caller. The entry stays until the call is ended.
func (c *Calls) Accept(id NegotiationID, by Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.answerableLocked(id, by)
	if err != nil {
		return err
	}

	entry.State = Accepted
	entry.stopTimer()
	c.router.SendTo(entry.Caller, protocol.CallAccepted{ConnectionID: id.String()})
	c.logger.Info("call accepted", "negotiation", id)
	return nil
}

// Reject declines a requested negotiation on behalf of its callee, tells
// the caller and deletes the entry.
func (c *Calls) Reject(id NegotiationID, by Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.answerableLocked(id, by)
	if err != nil {
		return err
	}

	entry.State = Rejected
	c.deleteLocked(entry)
	c.router.SendTo(entry.Caller, protocol.CallRejected{ConnectionID: id.String()})
	c.logger.Info("call rejected", "negotiation", id)
	return nil
}

// End terminates a requested or accepted negotiation on behalf of either
// party, tells the other party and deletes the entry.
func (c *Calls) End(id NegotiationID, by Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byID[id]
	if !ok {
		return ErrUnknownNegotiation
	}
	other, ok := entry.other(by)
	if !ok {
		return ErrNotParticipant
	}

	entry.State = Ended
	c.deleteLocked(entry)
	c.router.SendTo(other, protocol.CallEnded{ConnectionID: id.String()})
	c.logger.Info("call ended", "negotiation", id, "by", by)
	return nil
}

// Relay forwards a session negotiation step from one party to the other.
func (c *Calls) Relay(id NegotiationID, from Identity, signal protocol.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byID[id]
	if !ok {
		return ErrUnknownNegotiation
	}
	other, ok := entry.other(from)
	if !ok {
		return ErrNotParticipant
	}

	c.router.SendTo(other, protocol.CallSignal{
		ConnectionID: id.String(),
		SenderID:     from.String(),
		Signal:       signal,
	})
	return nil
}

// NegotiationsInvolving returns every live negotiation id is a party to.
func (c *Calls) NegotiationsInvolving(id Identity) []NegotiationID {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []NegotiationID
	for nid, entry := range c.byID {
		if entry.Caller == id || entry.Callee == id {
			out = append(out, nid)
		}
	}
	slices.Sort(out)
	return out
}

// Get returns a snapshot of a live negotiation.
func (c *Calls) Get(id NegotiationID) (Negotiation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byID[id]
	if !ok {
		return Negotiation{}, false
	}
	return entry.Negotiation, true
}

// Len returns the number of live negotiations.
func (c *Calls) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

// expire ends a negotiation that is still ringing when its timeout fires.
// Both parties are told the call ended.
func (c *Calls) expire(id NegotiationID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.byID[id]
	if !ok || entry.State != Requested {
		return
	}

	entry.State = Ended
	c.deleteLocked(entry)
	c.router.SendToAll([]Identity{entry.Caller, entry.Callee}, protocol.CallEnded{ConnectionID: id.String()})
	c.logger.Info("call request timed out", "negotiation", id)
}

func (c *Calls) answerableLocked(id NegotiationID, by Identity) (*negotiationEntry, error) {
	entry, ok := c.byID[id]
	if !ok {
		return nil, ErrUnknownNegotiation
	}
	if entry.Callee != by {
		return nil, ErrNotParticipant
	}
	if entry.State != Requested {
		return nil, ErrInvalidTransition
	}
	return entry, nil
}

func (c *Calls) deleteLocked(entry *negotiationEntry) {
	entry.stopTimer()
	delete(c.byID, entry.ID)
}

func (e *negotiationEntry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
