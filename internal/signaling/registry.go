package signaling

import (
	"sync"

	"github.com/google/uuid"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// Identity is the opaque per-connection addressing token. It has no meaning
// beyond the lifetime of the connection it was issued to.
type Identity string

func (id Identity) String() string { return string(id) }

// Peer is the outbound side of one connection.
type Peer struct {
	id Identity

	// send is drained by the connection's write pump. It is closed exactly
	// once, by Close, and never written to afterwards.
	send chan *protocol.Message

	mu     sync.Mutex
	closed bool
}

func newPeer(id Identity, buffer int) *Peer {
	return &Peer{
		id:   id,
		send: make(chan *protocol.Message, buffer),
	}
}

// ID returns the identity the peer is bound to.
func (p *Peer) ID() Identity { return p.id }

// Outbox is the stream of messages queued for this connection. It is closed
// when the peer is closed.
func (p *Peer) Outbox() <-chan *protocol.Message { return p.send }

// Deliver queues msg without blocking. It reports false when the peer is
// closed or its buffer is full; neither is an error for the caller.
func (p *Peer) Deliver(msg *protocol.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

// Close makes the peer unusable and closes its outbox. It reports whether
// this call was the one that closed it.
func (p *Peer) Close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.closed = true
	close(p.send)
	return true
}

// Closed reports whether Close has been called.
func (p *Peer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Registry maps identities to their connection handles.
type Registry struct {
	mu     sync.RWMutex
	peers  map[Identity]*Peer
	buffer int
}

// NewRegistry creates a registry whose peers buffer up to buffer outbound
// messages each.
func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = 1
	}
	return &Registry{
		peers:  make(map[Identity]*Peer),
		buffer: buffer,
	}
}

// Register issues a fresh identity bound to a new outbound channel.
func (r *Registry) Register() *Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id := Identity(uuid.NewString())
		if _, taken := r.peers[id]; taken {
			continue
		}
		p := newPeer(id, r.buffer)
		r.peers[id] = p
		return p
	}
}

// Lookup returns the live peer for id. A peer that has been closed but not
// yet unregistered is reported as missing.
func (r *Registry) Lookup(id Identity) (*Peer, bool) {
	r.mu.RLock()
	p, ok := r.peers[id]
	r.mu.RUnlock()

	if !ok || p.Closed() {
		return nil, false
	}
	return p, true
}

// Unregister drops the binding for id and closes its peer. Unknown
// identities and repeated calls are no-ops.
func (r *Registry) Unregister(id Identity) {
	r.mu.Lock()
	p, ok := r.peers[id]
	delete(r.peers, id)
	r.mu.Unlock()

	if ok {
		p.Close()
	}
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
