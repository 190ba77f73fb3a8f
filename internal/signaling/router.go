package signaling

import (
	"log/slog"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// Router fans events out to identities. A dead or saturated recipient only
// loses its own copy.
type Router struct {
	peers  *Registry
	rooms  *Directory
	logger *slog.Logger
}

// SendTo delivers ev to a single identity.
func (r *Router) SendTo(id Identity, ev protocol.Event) bool {
	return r.deliver(id, protocol.NewMessage(ev))
}

// SendToAll delivers ev to every identity in ids and returns how many
// accepted it.
func (r *Router) SendToAll(ids []Identity, ev protocol.Event) int {
	if len(ids) == 0 {
		return 0
	}

	msg := protocol.NewMessage(ev)
	sent := 0
	for _, id := range ids {
		if r.deliver(id, msg) {
			sent++
		}
	}
	return sent
}

// SendToRoom delivers ev to the current members of room, skipping exclude
// when it is non-empty.
func (r *Router) SendToRoom(room string, ev protocol.Event, exclude Identity) int {
	members := r.rooms.Members(room)
	if exclude != "" {
		kept := members[:0]
		for _, id := range members {
			if id != exclude {
				kept = append(kept, id)
			}
		}
		members = kept
	}
	return r.SendToAll(members, ev)
}

func (r *Router) deliver(id Identity, msg *protocol.Message) bool {
	p, ok := r.peers.Lookup(id)
	if !ok {
		r.logger.Debug("dropping event for unknown identity", "identity", id, "event", msg.Event)
		return false
	}
	if !p.Deliver(msg) {
		r.logger.Warn("dropping event for unavailable identity", "identity", id, "event", msg.Event)
		return false
	}
	return true
}
